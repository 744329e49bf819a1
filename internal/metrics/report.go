package metrics

import "github.com/nogcio/wrkr/internal/value"

// SeriesSnapshot is a consistent, point-in-time read of one series (§4.2
// "snapshot() is consistent within a single scenario tick").
type SeriesSnapshot struct {
	Name  string
	Kind  Kind
	Tags  value.Tags
	Trend TrendSnapshot
	Count float64 // Counter sum
	Gauge float64 // Gauge last value
	Rate  RateSnapshot
}

// Report is the full engine snapshot handed to the progress ticker, the
// final summary and the threshold evaluator.
type Report struct {
	Series       []SeriesSnapshot
	MetricsDropped int64
}

// Snapshot reads every series into a Report. It is not atomic across series
// (§4.2 only requires per-series consistency), matching the engine's
// sharded, lock-free-drain design.
func (e *Engine) Snapshot() Report {
	series := e.All()
	out := make([]SeriesSnapshot, 0, len(series))
	for _, s := range series {
		snap := SeriesSnapshot{Name: s.Name, Kind: s.Kind, Tags: s.Tags}
		switch s.Kind {
		case KindTrend:
			snap.Trend = s.trend.snapshot()
		case KindCounter:
			snap.Count = s.counter.snapshot()
		case KindGauge:
			snap.Gauge = s.gauge.snapshot()
		case KindRate:
			snap.Rate = s.rate.snapshot()
		}
		out = append(out, snap)
	}
	return Report{Series: out, MetricsDropped: e.Dropped()}
}
