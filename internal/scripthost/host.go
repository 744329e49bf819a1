// Package scripthost defines the ScriptHost contract (§6) the engine drives
// scenarios through; gojahost provides the default goja-backed
// implementation.
package scripthost

import "github.com/nogcio/wrkr/internal/value"

// RunDefaults is the top-level run configuration a script's parse_options
// may declare (§6 scenario YAML's flat top-level fields).
type RunDefaults struct {
	VUs         int
	Duration    string
	Iterations  int64
	Thresholds  map[string][]string
	SetupFirst  bool
}

// ScenarioSpec mirrors the §3 Scenario data model as produced by
// parse_options/scenario YAML.
type ScenarioSpec struct {
	Name             string
	Executor         string
	ExecFn           string
	VUs              int
	Duration         string
	Iterations       int64
	StartVUs         int
	StartRate        float64
	TimeUnit         string
	PreAllocatedVUs  int
	MaxVUs           int
	Stages           []StageSpec
	Tags             map[string]string
}

// StageSpec is one (duration, target) pair in a ramping executor.
type StageSpec struct {
	Duration string
	Target   float64
}

// Options is parse_options' return shape (§6).
type Options struct {
	TopLevel  RunDefaults
	Scenarios []ScenarioSpec
}

// IterationResult is what iteration(fn_name, vu_id) returns to the VU
// runner: either a clean completion or a script-level error, which the
// runner turns into a single aborted iteration (§4.4, §7).
type IterationResult struct {
	Err error
}

// Host is the contract a VU's script runtime implements. Exactly one Host
// instance is pinned to one VU for the run's lifetime (§3 Lifecycle,
// §5 "one ScriptHost is pinned to a single VU task").
type Host interface {
	// ParseOptions reads the script's exported options (scenarios,
	// thresholds, top-level run defaults) without executing any iteration.
	ParseOptions(scriptPath string) (Options, error)

	// Setup runs once, before any scenario's first iteration.
	Setup() error

	// Teardown runs once, after every scenario has stopped.
	Teardown() error

	// Iteration invokes the named exported function for one VU iteration.
	Iteration(fnName string, vuID int) IterationResult

	// HandleSummary invokes the script's optional handle_summary callback,
	// returning output-key -> bytes (§6 "stdout","stderr", else file
	// paths). A Host with no handle_summary export returns (nil, nil).
	HandleSummary(summary value.Value) (map[string][]byte, error)

	// Close releases the underlying runtime. Idempotent.
	Close() error
}
