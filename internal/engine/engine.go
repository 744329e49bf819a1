// Package engine implements the top-level run orchestration (§5, §6):
// it resolves a parsed scenario document into scheduler executors, drives
// one VU runner/ScriptHost per (scenario, VU id), ticks progress into the
// output sink and resolves the final exit code from checks/thresholds.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nogcio/wrkr/infrastructure/logging"
	"github.com/nogcio/wrkr/infrastructure/middleware"
	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/config"
	"github.com/nogcio/wrkr/internal/executor"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/output"
	"github.com/nogcio/wrkr/internal/scripthost"
	"github.com/nogcio/wrkr/internal/shared"
	"github.com/nogcio/wrkr/internal/threshold"
	"github.com/nogcio/wrkr/internal/vu"
)

// DefaultProgressInterval is the periodic Progress line cadence (§6: "every
// second by default"); exported so a caller resolving a CLI/env override has
// a fallback to resolve against.
const DefaultProgressInterval = time.Second

// HostFactory builds one ScriptHost pinned to runner for the run's
// lifetime (§5 "one ScriptHost is pinned to a single VU task"). Engine
// calls it lazily, the first time a given (scenario, vuID) pair is
// scheduled an iteration.
type HostFactory func(runner *vu.Runner) (scripthost.Host, error)

// namedExecutor pairs one scenario's scheduler state machine with its name
// and exported iteration function, the unit runScenario drives.
type namedExecutor struct {
	name   string
	execFn string
	exec   executor.Executor
}

// RunResult is what Run returns to the CLI layer: the resolved process
// exit code (§6: 0/10/11/12/20/30/40) and the final Summary that was also
// written to the sink.
type RunResult struct {
	ExitCode int
	Summary  output.Summary
}

// Engine drives one run end to end. It owns the shared Metrics Engine and
// Shared Store for the run's lifetime and reports its RunPhase so an
// optional stats server can expose it.
type Engine struct {
	newHost  HostFactory
	metrics  *metrics.Engine
	shared   *shared.Store
	sink     output.Writer
	logger   *logging.Logger
	progress time.Duration

	mu    sync.Mutex
	phase middleware.RunPhase
}

// New builds an Engine around an already-constructed Metrics Engine, Shared
// Store and output Sink (§5 "these are constructed once per run and shared
// by every scenario/VU"). logger may be nil to disable structured logging.
func New(newHost HostFactory, metricsEngine *metrics.Engine, sharedStore *shared.Store, sink output.Writer, logger *logging.Logger) *Engine {
	return &Engine{
		newHost:  newHost,
		metrics:  metricsEngine,
		shared:   sharedStore,
		sink:     sink,
		logger:   logger,
		progress: DefaultProgressInterval,
		phase:    middleware.PhaseInitializing,
	}
}

// SetProgressInterval overrides the Progress line cadence set by New; it
// must be called before Run. A non-positive d is ignored.
func (e *Engine) SetProgressInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	e.progress = d
	e.mu.Unlock()
}

// Phase reports the run's current lifecycle phase (§3 "Initializing →
// Running → Draining → Done"); safe to poll concurrently, e.g. from
// statsserver's /healthz handler.
func (e *Engine) Phase() middleware.RunPhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) setPhase(p middleware.RunPhase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

// Snapshot exposes the live Metrics Engine report, used by statsserver's
// Prometheus bridge between progress ticks.
func (e *Engine) Snapshot() metrics.Report {
	return e.metrics.Snapshot()
}

// Run drives every scenario in doc to completion and returns the resolved
// exit code (§6). It blocks until the run is Done; ctx cancellation begins
// an immediate drain.
func (e *Engine) Run(ctx context.Context, doc config.Document) (RunResult, error) {
	e.setPhase(middleware.PhaseInitializing)

	thresholds, err := resolveThresholds(doc.RunDefaults)
	if err != nil {
		return RunResult{ExitCode: wrkrerr.KindInvalidThreshold.ExitCode()}, err
	}

	scenarios := doc.Scenarios
	if len(scenarios) == 0 {
		scenarios = []config.Scenario{{
			Name:       "default",
			Executor:   "constant-vus",
			ExecFn:     "default",
			VUs:        doc.VUs,
			Duration:   doc.Duration,
			Iterations: doc.Iterations,
		}}
	}

	execs := make([]namedExecutor, 0, len(scenarios))
	for _, sc := range scenarios {
		ex, err := buildExecutor(sc)
		if err != nil {
			return RunResult{ExitCode: wrkrerr.KindInvalidOptions.ExitCode()}, err
		}
		fn := sc.ExecFn
		if fn == "" {
			fn = "default"
		}
		execs = append(execs, namedExecutor{name: sc.Name, execFn: fn, exec: ex})
	}

	controlRunner := &vu.Runner{ID: 0, Metrics: e.metrics, Scenario: "__control__"}
	controlHost, err := e.newHost(controlRunner)
	if err != nil {
		return RunResult{ExitCode: wrkrerr.KindFatal.ExitCode()}, wrkrerr.Wrap(wrkrerr.KindFatal, "control host", err)
	}
	defer controlHost.Close()

	if err := controlHost.Setup(); err != nil {
		return RunResult{ExitCode: wrkrerr.KindScriptError.ExitCode()}, wrkrerr.Wrap(wrkrerr.KindScriptError, "setup", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.setPhase(middleware.PhaseRunning)
	start := time.Now()

	dropped := make(map[string]int64, len(execs))

	tickerDone := make(chan struct{})
	go e.runProgressTicker(runCtx, execs, start, dropped, tickerDone)

	var wg sync.WaitGroup
	for _, ne := range execs {
		wg.Add(1)
		ne := ne
		go func() {
			defer wg.Done()
			e.runScenario(runCtx, ne)
		}()
	}
	wg.Wait()
	cancel()
	<-tickerDone

	e.setPhase(middleware.PhaseDraining)
	if err := controlHost.Teardown(); err != nil && e.logger != nil {
		e.logger.WithError(err).Error("teardown failed")
	}

	// Final flush: the ticker goroutine has already exited, so this is the
	// last write to vu_active/vu_active_max/dropped_iterations before the
	// terminal snapshot, capturing each executor's final tallies.
	recordExecutorMetrics(e.metrics, execs, dropped)

	report := e.metrics.Snapshot()
	verdicts := make([]threshold.Verdict, 0, len(thresholds))
	for _, t := range thresholds {
		v, err := threshold.Evaluate(e.metrics, t)
		if err != nil {
			if e.logger != nil {
				e.logger.WithError(err).Error("threshold evaluation failed")
			}
			continue
		}
		verdicts = append(verdicts, v)
		if e.logger != nil {
			e.logger.LogThresholdVerdict(ctx, t.Raw, v.Pass, v.Observed)
		}
	}

	summary := buildSummary(report, execs, time.Since(start).Seconds(), verdicts)
	e.sink.Summary(summary)
	e.setPhase(middleware.PhaseDone)

	return RunResult{ExitCode: exitCode(summary, verdicts), Summary: summary}, nil
}

// runScenario owns the lazily-created (vu.Runner, scripthost.Host) pairs
// for one scenario's executor, closing every Host once the executor stops
// scheduling new iterations (§5).
func (e *Engine) runScenario(ctx context.Context, ne namedExecutor) {
	var mu sync.Mutex
	runners := make(map[int]*vu.Runner)

	iterate := func(ctx context.Context, vuID int) bool {
		mu.Lock()
		r, ok := runners[vuID]
		if !ok {
			r = &vu.Runner{ID: vuID, Metrics: e.metrics, Scenario: ne.name}
			host, err := e.newHost(r)
			if err != nil {
				mu.Unlock()
				e.sink.Event(output.Event{Type: "fatal", Scenario: ne.name, Message: err.Error()})
				return false
			}
			r.Host = host
			runners[vuID] = r
		}
		mu.Unlock()
		return r.Iterate(ctx, ne.execFn)
	}

	ne.exec.Run(ctx, iterate)

	mu.Lock()
	defer mu.Unlock()
	for _, r := range runners {
		if err := r.Host.Close(); err != nil && e.logger != nil {
			e.logger.WithError(err).Error("host close failed")
		}
	}
}

// runProgressTicker emits one Progress line per tick until ctx is done,
// coalescing naturally through Sink.Progress's 1-slot channel (§6).
func (e *Engine) runProgressTicker(ctx context.Context, execs []namedExecutor, start time.Time, dropped map[string]int64, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.progress)
	defer ticker.Stop()

	state := progressState{last: start}
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			recordExecutorMetrics(e.metrics, execs, dropped)
			report := e.metrics.Snapshot()
			var p output.Progress
			p, state = buildProgress(report, execs, now.Sub(start).Seconds(), state, now)
			e.sink.Progress(p)
		}
	}
}

// resolveThresholds parses the YAML/script-exported `thresholds` map
// (metric-or-selector -> []expr) into evaluator Thresholds (§4.7).
func resolveThresholds(defaults config.RunDefaults) ([]threshold.Threshold, error) {
	out := make([]threshold.Threshold, 0, len(defaults.Thresholds))
	for key, exprs := range defaults.Thresholds {
		for _, expr := range exprs {
			t, err := threshold.ParseKeyAndExpr(key, expr)
			if err != nil {
				return nil, wrkrerr.Wrap(wrkrerr.KindInvalidThreshold, fmt.Sprintf("threshold %q", key), err)
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// exitCode resolves the §6 exit code scheme from the final summary: checks
// failing contributes 10, any threshold violation contributes 11, both
// contribute 12.
func exitCode(summary output.Summary, verdicts []threshold.Verdict) int {
	checksFailed := summary.Totals.ChecksFailedTotal > 0
	thresholdsFailed := len(summary.Thresholds.Violations) > 0

	switch {
	case checksFailed && thresholdsFailed:
		return 12
	case thresholdsFailed:
		return 11
	case checksFailed:
		return 10
	default:
		return 0
	}
}
