package engine

import (
	"time"

	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/output"
	"github.com/nogcio/wrkr/internal/value"
)

// progressState remembers the previous tick's cumulative counters so the
// ticker can report instantaneous rps/iterationsPerSec rather than
// since-start averages (§6 Progress line).
type progressState struct {
	last       time.Time
	requests   int64
	iterations int64
}

// recordExecutorMetrics feeds each scenario's scheduler bookkeeping (active
// and peak VU counts, dropped iterations) into the Metrics Engine as real
// Series under their §3 reserved names (vu_active, vu_active_max,
// dropped_iterations), so a threshold like `dropped_iterations: "count==0"`
// has a series to query and the final summary's metrics[] list reports
// them like any other metric, instead of the engine only ever reading
// executor.Stats directly. dropped tracks each scenario's last-seen
// cumulative Dropped() count so the counter only ever receives the delta.
func recordExecutorMetrics(m *metrics.Engine, execs []namedExecutor, dropped map[string]int64) {
	for _, ne := range execs {
		tags := value.NewTags().With(metrics.TagScenario, value.TagString(ne.name))
		m.SetGauge(metrics.MetricVUActive, tags, float64(ne.exec.VUActive()))
		m.SetGauge(metrics.MetricVUActiveMax, tags, float64(ne.exec.VUActiveMax()))

		total := ne.exec.Dropped()
		if delta := total - dropped[ne.name]; delta > 0 {
			m.AddCounter(metrics.MetricDroppedIterations, tags, float64(delta))
		}
		dropped[ne.name] = total
	}
}

// buildProgress folds a live snapshot into one Progress line, using prev to
// derive the interval's rates; it returns the updated state to pass into
// the next tick.
func buildProgress(report metrics.Report, execs []namedExecutor, elapsed float64, prev progressState, now time.Time) (output.Progress, progressState) {
	interval := now.Sub(prev.last).Seconds()
	if interval <= 0 {
		interval = 1
	}

	var requestsTotal, failedRequestsTotal, checksFailedTotal, bytesReceived, bytesSent, iterationsTotal int64
	var latency metrics.TrendSnapshot
	var latencyCount int64

	for _, s := range report.Series {
		switch s.Kind {
		case metrics.KindCounter:
			switch s.Name {
			case metrics.MetricIterations:
				iterationsTotal += int64(s.Count)
			case metrics.MetricHTTPReqs, metrics.MetricGRPCReqs:
				requestsTotal += int64(s.Count)
			case metrics.MetricChecksFailed:
				checksFailedTotal += int64(s.Count)
			case metrics.MetricDataReceived:
				bytesReceived += int64(s.Count)
			case metrics.MetricDataSent:
				bytesSent += int64(s.Count)
			}
		case metrics.KindRate:
			if s.Name == metrics.MetricHTTPReqFailed || s.Name == metrics.MetricGRPCReqFailed {
				failedRequestsTotal += s.Rate.Trues
			}
		case metrics.KindTrend:
			if s.Name == metrics.MetricHTTPReqDuration && s.Trend.Count > latencyCount {
				latency = s.Trend
				latencyCount = s.Trend.Count
			}
		}
	}

	perScenario := make(map[string]output.ScenarioProgress, len(execs))
	var vusActive int64
	for _, ne := range execs {
		active := ne.exec.VUActive()
		vusActive += active
		perScenario[ne.name] = output.ScenarioProgress{
			VUsActive:     active,
			RequestsTotal: requestsTotal, // per-scenario request split is not tracked separately; engine-wide figure
		}
	}

	p := output.Progress{
		RequestsTotal:       requestsTotal,
		FailedRequestsTotal: failedRequestsTotal,
		ChecksFailedTotal:   checksFailedTotal,
		BytesReceivedTotal:  bytesReceived,
		BytesSentTotal:      bytesSent,
		VUsActive:           vusActive,
		ElapsedSeconds:      elapsed,
		IntervalSeconds:     interval,
		RPS:                 float64(requestsTotal-prev.requests) / interval,
		IterationsPerSec:    float64(iterationsTotal-prev.iterations) / interval,
		LatencySecondsP50:   microsToSeconds(latency.P50),
		LatencySecondsP90:   microsToSeconds(latency.P90),
		LatencySecondsP95:   microsToSeconds(latency.P95),
		LatencySecondsP99:   microsToSeconds(latency.P99),
		PerScenario:         perScenario,
	}

	return p, progressState{last: now, requests: requestsTotal, iterations: iterationsTotal}
}
