package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkProgressAndSummaryEnvelope(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, nil)

	s.Progress(Progress{RequestsTotal: 5, VUsActive: 2})
	s.Summary(Summary{Totals: ScenarioTotals{RequestsTotal: 5}})
	s.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var progressLine map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &progressLine))
	assert.Equal(t, SchemaVersion, progressLine["schema"])
	assert.Equal(t, "progress", progressLine["kind"])
	assert.Equal(t, float64(5), progressLine["requestsTotal"])

	var summaryLine map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &summaryLine))
	assert.Equal(t, "summary", summaryLine["kind"])
}

func TestSinkProgressCoalescesUnderBackpressure(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, nil)
	// Block the writer goroutine briefly by flooding progress updates
	// faster than they can be consumed; none should be lost beyond
	// coalescing (the channel never blocks the caller).
	for i := 0; i < 50; i++ {
		s.Progress(Progress{RequestsTotal: int64(i)})
	}
	s.Summary(Summary{})
	s.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// At least one progress line plus the guaranteed summary survive;
	// exact coalesced count is nondeterministic by design.
	require.GreaterOrEqual(t, len(lines), 2)
	last := lines[len(lines)-1]
	var summaryLine map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(last), &summaryLine))
	assert.Equal(t, "summary", summaryLine["kind"])
}

func TestSinkEventNeverCoalesces(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, nil)
	s.Event(Event{Type: "dropped_iteration", Message: "vu overrun"})
	time.Sleep(10 * time.Millisecond)
	s.Summary(Summary{})
	s.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var eventLine map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &eventLine))
	assert.Equal(t, "event", eventLine["kind"])
	assert.Equal(t, "dropped_iteration", eventLine["type"])
}

func TestHumanWriterDoesNotPanicOnEmptySummary(t *testing.T) {
	var buf bytes.Buffer
	h := NewHumanWriter(&buf)
	h.Progress(Progress{ElapsedSeconds: 1.5, VUsActive: 3})
	h.Summary(Summary{})
	h.Event(Event{Type: "info", Message: "done"})
	assert.Contains(t, buf.String(), "summary")
}
