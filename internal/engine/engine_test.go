package engine

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogcio/wrkr/internal/config"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/output"
	"github.com/nogcio/wrkr/internal/scripthost"
	"github.com/nogcio/wrkr/internal/shared"
	"github.com/nogcio/wrkr/internal/value"
	"github.com/nogcio/wrkr/internal/vu"
)

// fakeHost is a minimal scripthost.Host that records one HTTP-shaped
// iteration and one named check, without involving goja at all, so the
// engine's orchestration can be exercised in isolation.
type fakeHost struct {
	runner    *vu.Runner
	checkName string
	passCheck bool
}

func (h *fakeHost) ParseOptions(string) (scripthost.Options, error) { return scripthost.Options{}, nil }
func (h *fakeHost) Setup() error                                    { return nil }
func (h *fakeHost) Teardown() error                                 { return nil }

func (h *fakeHost) Iteration(fnName string, vuID int) scripthost.IterationResult {
	tags := h.runner.BaseTags()
	h.runner.Metrics.AddCounter(metrics.MetricHTTPReqs, tags, 1)
	h.runner.Metrics.RecordTrend(metrics.MetricHTTPReqDuration, tags, 1500)

	checkTags := tags.With(metrics.TagCheck, value.TagString(h.checkName))
	h.runner.Metrics.ObserveRate(metrics.MetricChecks, checkTags, h.passCheck)
	if !h.passCheck {
		h.runner.Metrics.AddCounter(metrics.MetricChecksFailed, checkTags, 1)
	}
	return scripthost.IterationResult{}
}

func (h *fakeHost) HandleSummary(value.Value) (map[string][]byte, error) { return nil, nil }
func (h *fakeHost) Close() error                                        { return nil }

func newTestEngine(passCheck bool) (*Engine, *metrics.Engine) {
	m := metrics.New()
	s := shared.New()
	sink := output.New(&bytes.Buffer{}, nil)
	factory := func(r *vu.Runner) (scripthost.Host, error) {
		return &fakeHost{runner: r, checkName: "status is 200", passCheck: passCheck}, nil
	}
	return New(factory, m, s, sink, nil), m
}

func testDoc(thresholds map[string][]string) config.Document {
	return config.Document{
		RunDefaults: config.RunDefaults{Thresholds: thresholds},
		Scenarios: []config.Scenario{{
			Name:       "default",
			Executor:   "constant-vus",
			ExecFn:     "default",
			VUs:        2,
			Iterations: 10,
		}},
	}
}

func TestRunSucceedsWhenChecksAndThresholdsPass(t *testing.T) {
	e, _ := newTestEngine(true)
	result, err := e.Run(context.Background(), testDoc(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.EqualValues(t, 10, result.Summary.Totals.RequestsTotal)
	assert.EqualValues(t, 0, result.Summary.Totals.ChecksFailedTotal)
	assert.EqualValues(t, 10, result.Summary.Checks[0].Passed)
}

func TestRunReportsChecksFailedExitCode(t *testing.T) {
	e, _ := newTestEngine(false)
	result, err := e.Run(context.Background(), testDoc(nil))
	require.NoError(t, err)
	assert.Equal(t, 10, result.ExitCode)
	assert.EqualValues(t, 10, result.Summary.Totals.ChecksFailedTotal)
}

func TestRunReportsThresholdViolationExitCode(t *testing.T) {
	e, _ := newTestEngine(true)
	doc := testDoc(map[string][]string{"http_req_duration": {"avg<0"}})
	result, err := e.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 11, result.ExitCode)
	require.Len(t, result.Summary.Thresholds.Violations, 1)
	assert.Equal(t, "http_req_duration", result.Summary.Thresholds.Violations[0].Metric)
}

func TestRunReportsBothFailuresAsTwelve(t *testing.T) {
	e, _ := newTestEngine(false)
	doc := testDoc(map[string][]string{"http_req_duration": {"avg<0"}})
	result, err := e.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 12, result.ExitCode)
}

func TestRunRejectsUnknownExecutor(t *testing.T) {
	e, _ := newTestEngine(true)
	doc := testDoc(nil)
	doc.Scenarios[0].Executor = "not-a-real-executor"
	_, err := e.Run(context.Background(), doc)
	assert.Error(t, err)
}

func TestPhaseTransitionsToDone(t *testing.T) {
	e, _ := newTestEngine(true)
	assert.Equal(t, "initializing", string(e.Phase()))
	_, err := e.Run(context.Background(), testDoc(nil))
	require.NoError(t, err)
	assert.Equal(t, "done", string(e.Phase()))
}

func TestRunRespectsContextCancellation(t *testing.T) {
	e, _ := newTestEngine(true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	doc := testDoc(nil)
	doc.Scenarios[0].Iterations = 0
	doc.Scenarios[0].Duration = "1h"
	doc.Scenarios[0].VUs = 1
	_, err := e.Run(ctx, doc)
	require.NoError(t, err)
}
