package vu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/scripthost"
	"github.com/nogcio/wrkr/internal/value"
)

// stubHost is a minimal scripthost.Host whose Iteration result is
// programmed by the test.
type stubHost struct {
	err       error
	callCount int
}

func (h *stubHost) ParseOptions(string) (scripthost.Options, error) { return scripthost.Options{}, nil }
func (h *stubHost) Setup() error                                    { return nil }
func (h *stubHost) Teardown() error                                 { return nil }
func (h *stubHost) Iteration(fnName string, vuID int) scripthost.IterationResult {
	h.callCount++
	return scripthost.IterationResult{Err: h.err}
}
func (h *stubHost) HandleSummary(value.Value) (map[string][]byte, error) { return nil, nil }
func (h *stubHost) Close() error                                        { return nil }

func TestIterateRecordsIterationsAndDuration(t *testing.T) {
	e := metrics.New()
	host := &stubHost{}
	r := &Runner{ID: 1, Host: host, Metrics: e, Scenario: "main"}

	ok := r.Iterate(context.Background(), "default")
	require.True(t, ok)
	assert.Equal(t, 1, host.callCount)

	report := e.Snapshot()
	var sawIterations, sawDuration bool
	for _, s := range report.Series {
		if s.Name == metrics.MetricIterations {
			sawIterations = true
			assert.Equal(t, 1.0, s.Count)
		}
		if s.Name == "iteration_duration" {
			sawDuration = true
			assert.Equal(t, int64(1), s.Trend.Count)
		}
	}
	assert.True(t, sawIterations)
	assert.True(t, sawDuration)
}

func TestIterateRecordsErroredIterations(t *testing.T) {
	e := metrics.New()
	host := &stubHost{err: errors.New("boom")}
	r := &Runner{ID: 1, Host: host, Metrics: e, Scenario: "main"}

	ok := r.Iterate(context.Background(), "default")
	require.True(t, ok, "a script error aborts only the current iteration, scheduling continues")

	report := e.Snapshot()
	var errored float64
	for _, s := range report.Series {
		if s.Name == "iterations_errored" {
			errored = s.Count
		}
	}
	assert.Equal(t, 1.0, errored)
}

func TestIterateReturnsFalseWhenContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	host := &stubHost{}
	r := &Runner{ID: 1, Host: host, Metrics: metrics.New(), Scenario: "main"}

	ok := r.Iterate(ctx, "default")
	assert.False(t, ok)
	assert.Equal(t, 0, host.callCount)
}

func TestGroupStackDottedNames(t *testing.T) {
	r := &Runner{ID: 1, Scenario: "main"}
	assert.Equal(t, "", r.GroupTag())

	tag, err := r.PushGroup("outer")
	require.NoError(t, err)
	assert.Equal(t, "outer", tag)

	tag, err = r.PushGroup("inner")
	require.NoError(t, err)
	assert.Equal(t, "outer.inner", tag)

	r.PopGroup()
	assert.Equal(t, "outer", r.GroupTag())

	r.PopGroup()
	assert.Equal(t, "", r.GroupTag())

	// Popping past empty is a no-op, not a panic.
	r.PopGroup()
	assert.Equal(t, "", r.GroupTag())
}

func TestPushGroupRejectsExcessiveNesting(t *testing.T) {
	r := &Runner{ID: 1, Scenario: "main"}
	for i := 0; i < maxGroupDepth; i++ {
		_, err := r.PushGroup("g")
		require.NoError(t, err)
	}
	_, err := r.PushGroup("one-too-many")
	assert.Error(t, err)
}

func TestBaseTagsIncludesScenarioAndGroup(t *testing.T) {
	r := &Runner{ID: 1, Scenario: "checkout"}
	tags := r.BaseTags()
	scenario, ok := tags.Get(metrics.TagScenario)
	require.True(t, ok)
	assert.Equal(t, "checkout", scenario.Canonical())

	_, ok = tags.Get(metrics.TagGroup)
	assert.False(t, ok, "no group tag when no group is active")

	r.groupStack = []string{"setup"}
	tags = r.BaseTags()
	group, ok := tags.Get(metrics.TagGroup)
	require.True(t, ok)
	assert.Equal(t, "setup", group.Canonical())
}
