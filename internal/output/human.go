package output

import (
	"fmt"
	"io"
)

// HumanWriter renders progress/summary/event lines as operator-friendly
// text instead of NDJSON, backing `--output human` (§6).
type HumanWriter struct {
	w io.Writer
}

// NewHumanWriter wraps w.
func NewHumanWriter(w io.Writer) *HumanWriter {
	return &HumanWriter{w: w}
}

// Close satisfies Writer; HumanWriter has no background goroutine to stop.
func (h *HumanWriter) Close() {}

// Progress prints one progress line.
func (h *HumanWriter) Progress(p Progress) {
	fmt.Fprintf(h.w, "[%6.1fs] vus=%d reqs=%d failed=%d rps=%.1f p95=%.3fs checks_failed=%d\n",
		p.ElapsedSeconds, p.VUsActive, p.RequestsTotal, p.FailedRequestsTotal, p.RPS, p.LatencySecondsP95, p.ChecksFailedTotal)
}

// Summary prints the terminal report.
func (h *HumanWriter) Summary(s Summary) {
	fmt.Fprintf(h.w, "\n--- summary ---\n")
	fmt.Fprintf(h.w, "requests: %d (failed: %d)\n", s.Totals.RequestsTotal, s.Totals.FailedRequestsTotal)
	fmt.Fprintf(h.w, "iterations: %d (dropped: %d)\n", s.Totals.IterationsTotal, s.Totals.DroppedIterations)
	fmt.Fprintf(h.w, "checks:\n")
	for _, c := range s.Checks {
		fmt.Fprintf(h.w, "  %-40s %d passed, %d failed\n", c.Name, c.Passed, c.Failed)
	}
	if len(s.Thresholds.Violations) == 0 {
		fmt.Fprintf(h.w, "thresholds: all passed\n")
	} else {
		fmt.Fprintf(h.w, "thresholds: %d violation(s)\n", len(s.Thresholds.Violations))
		for _, v := range s.Thresholds.Violations {
			fmt.Fprintf(h.w, "  FAIL %s %s (observed=%.4f)\n", v.Metric, v.Expr, v.Observed)
		}
	}
}

// Event prints a single event line.
func (h *HumanWriter) Event(e Event) {
	fmt.Fprintf(h.w, "[%6.1fs] %s: %s\n", e.TS, e.Type, e.Message)
}
