package metrics

// Reserved tag names the engine sets itself; user-supplied tags of the same
// name are ignored for these (§3).
const (
	TagScenario = "scenario"
	TagMethod   = "method"
	TagStatus   = "status"
	TagGroup    = "group"
	TagCheck    = "check"
)

// Built-in series names (§3, §4.5, §4.6). A user metric name sharing one of
// these collides with the engine's own bookkeeping and is rejected by the
// script host with InvalidUsage.
const (
	MetricHTTPReqDuration   = "http_req_duration"
	MetricHTTPReqFailed     = "http_req_failed"
	MetricHTTPReqs          = "http_reqs"
	MetricIterations        = "iterations"
	MetricVUActive          = "vu_active"
	MetricVUActiveMax       = "vu_active_max"
	MetricDataReceived      = "data_received"
	MetricDataSent          = "data_sent"
	MetricChecks            = "checks"
	MetricChecksFailed      = "checks_failed"
	MetricDroppedIterations = "dropped_iterations"
	MetricGRPCReqDuration   = "grpc_req_duration"
	MetricGRPCReqs          = "grpc_reqs"
	MetricGRPCReqFailed     = "grpc_req_failed"
	MetricMetricsDropped    = "metrics_dropped"
)

var builtinNames = map[string]bool{
	MetricHTTPReqDuration:   true,
	MetricHTTPReqFailed:     true,
	MetricHTTPReqs:          true,
	MetricIterations:        true,
	MetricVUActive:          true,
	MetricVUActiveMax:       true,
	MetricDataReceived:      true,
	MetricDataSent:          true,
	MetricChecks:            true,
	MetricChecksFailed:      true,
	MetricDroppedIterations: true,
	MetricGRPCReqDuration:   true,
	MetricGRPCReqs:          true,
	MetricGRPCReqFailed:     true,
	MetricMetricsDropped:    true,
}

// IsBuiltinName reports whether name is one of the engine's own reserved
// series names.
func IsBuiltinName(name string) bool { return builtinNames[name] }
