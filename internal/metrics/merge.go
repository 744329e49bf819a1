package metrics

import "github.com/nogcio/wrkr/internal/value"

// Matching returns every series for name whose tags are a superset of
// selector (§3 Threshold: "a selector matches any series whose tags are a
// superset of the selector's tags").
func (e *Engine) Matching(name string, selector value.Tags) []*Series {
	var out []*Series
	for _, s := range e.ByName(name) {
		if s.Tags.IsSupersetOf(selector) {
			out = append(out, s)
		}
	}
	return out
}

// MergedTrend unions every sample in the matched Trend series into one
// digest, the merge rule the threshold evaluator uses for p(N)/avg/min/max
// aggregations spanning more than one series (§4.7).
func MergedTrend(series []*Series) TrendSnapshot {
	merged := newTrendDigest()
	for _, s := range series {
		if s.Kind != KindTrend {
			continue
		}
		merged.merge(s.trend)
	}
	return merged.snapshot()
}

// MergedTrendQuantile unions every matched Trend series' digest and queries
// it directly for quantile p/100, rather than snapping to one of
// TrendSnapshot's five precomputed brackets — the threshold grammar allows
// any p(1)..p(100) (§4.3), and beorn7/perks' quantile.Stream.Query accepts
// any q.
func MergedTrendQuantile(series []*Series, p int) float64 {
	merged := newTrendDigest()
	for _, s := range series {
		if s.Kind != KindTrend {
			continue
		}
		merged.merge(s.trend)
	}
	return merged.query(float64(p) / 100)
}

// MergedCounter sums every matched Counter series (§4.7).
func MergedCounter(series []*Series) float64 {
	var total float64
	for _, s := range series {
		if s.Kind == KindCounter {
			total += s.counter.snapshot()
		}
	}
	return total
}

// MergedRate sums trues and totals across every matched Rate series before
// dividing (§4.7 "weighted").
func MergedRate(series []*Series) RateSnapshot {
	var out RateSnapshot
	for _, s := range series {
		if s.Kind != KindRate {
			continue
		}
		snap := s.rate.snapshot()
		out.Trues += snap.Trues
		out.Total += snap.Total
	}
	return out
}

// MergedGauge returns the last value among matched Gauge series. Since
// individual gauge timestamps aren't tracked, "last by timestamp" (§4.7) is
// approximated by the most recently registered series in iteration order;
// a scenario normally has at most one Gauge series per selector in practice.
func MergedGauge(series []*Series) float64 {
	var out float64
	for _, s := range series {
		if s.Kind == KindGauge {
			out = s.gauge.snapshot()
		}
	}
	return out
}
