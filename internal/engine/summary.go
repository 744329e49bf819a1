package engine

import (
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/output"
	"github.com/nogcio/wrkr/internal/threshold"
	"github.com/nogcio/wrkr/internal/value"
)

// microsToSeconds converts the engine's microsecond-denominated trend
// samples (iteration_duration, http_req_duration, grpc_req_duration; see
// httpclient/grpcclient) into the NDJSON schema's seconds fields.
func microsToSeconds(v float64) float64 { return v / 1e6 }

// scenarioTally accumulates one scenario's terminal counters while walking
// a Report's series.
type scenarioTally struct {
	requestsTotal       int64
	failedRequestsTotal int64
	iterationsTotal     int64
	checksFailedTotal   int64
}

// buildSummary folds a final metrics snapshot, the per-scenario executor
// bookkeeping and the evaluated thresholds into the terminal NDJSON Summary
// line (§6).
func buildSummary(report metrics.Report, execs []namedExecutor, runDuration float64, verdicts []threshold.Verdict) output.Summary {
	tallies := map[string]*scenarioTally{}
	tallyFor := func(name string) *scenarioTally {
		t, ok := tallies[name]
		if !ok {
			t = &scenarioTally{}
			tallies[name] = t
		}
		return t
	}

	metricsOut := make([]output.MetricSummary, 0, len(report.Series))
	checks := map[string]*output.CheckSummary{}

	for _, s := range report.Series {
		scenario, _ := s.Tags.Get(metrics.TagScenario)
		scenarioName := scenario.Canonical()

		ms := output.MetricSummary{
			Name: s.Name,
			Kind: s.Kind.String(),
			Tags: tagsToMap(s.Tags),
		}

		switch s.Kind {
		case metrics.KindTrend:
			ms.Count = float64(s.Trend.Count)
			ms.Min = microsToSeconds(s.Trend.Min)
			ms.Max = microsToSeconds(s.Trend.Max)
			ms.Mean = microsToSeconds(s.Trend.Mean)
			ms.P50 = microsToSeconds(s.Trend.P50)
			ms.P90 = microsToSeconds(s.Trend.P90)
			ms.P95 = microsToSeconds(s.Trend.P95)
			ms.P99 = microsToSeconds(s.Trend.P99)
		case metrics.KindCounter:
			ms.Count = s.Count
			switch s.Name {
			case metrics.MetricIterations:
				tallyFor(scenarioName).iterationsTotal += int64(s.Count)
			case metrics.MetricHTTPReqs, metrics.MetricGRPCReqs:
				tallyFor(scenarioName).requestsTotal += int64(s.Count)
			case metrics.MetricChecksFailed:
				tallyFor(scenarioName).checksFailedTotal += int64(s.Count)
				if c, ok := s.Tags.Get(metrics.TagCheck); ok {
					checkTally(checks, c.Canonical()).Failed += int64(s.Count)
				}
			}
		case metrics.KindGauge:
			ms.Gauge = s.Gauge
		case metrics.KindRate:
			ms.Rate = s.Rate.Rate()
			switch s.Name {
			case metrics.MetricHTTPReqFailed, metrics.MetricGRPCReqFailed:
				tallyFor(scenarioName).failedRequestsTotal += s.Rate.Trues
			case metrics.MetricChecks:
				if c, ok := s.Tags.Get(metrics.TagCheck); ok {
					ct := checkTally(checks, c.Canonical())
					ct.Passed += s.Rate.Trues
				}
			}
		}

		metricsOut = append(metricsOut, ms)
	}

	perScenario := make(map[string]output.ScenarioTotals, len(execs))
	var totals output.ScenarioTotals
	for _, ne := range execs {
		t := tallyFor(ne.name)
		st := output.ScenarioTotals{
			RequestsTotal:       t.requestsTotal,
			FailedRequestsTotal: t.failedRequestsTotal,
			IterationsTotal:     t.iterationsTotal,
			ChecksFailedTotal:   t.checksFailedTotal,
			DroppedIterations:   ne.exec.Dropped(),
			VUsActiveMax:        ne.exec.VUActiveMax(),
			DurationSeconds:     runDuration,
		}
		perScenario[ne.name] = st
		totals.RequestsTotal += st.RequestsTotal
		totals.FailedRequestsTotal += st.FailedRequestsTotal
		totals.IterationsTotal += st.IterationsTotal
		totals.ChecksFailedTotal += st.ChecksFailedTotal
		totals.DroppedIterations += st.DroppedIterations
		if st.VUsActiveMax > totals.VUsActiveMax {
			totals.VUsActiveMax = st.VUsActiveMax
		}
	}
	totals.DurationSeconds = runDuration

	checksOut := make([]output.CheckSummary, 0, len(checks))
	for _, c := range checks {
		checksOut = append(checksOut, *c)
	}

	violations := make([]output.ThresholdViolation, 0)
	for _, v := range verdicts {
		if !v.Pass {
			violations = append(violations, output.ThresholdViolation{
				Metric:   v.Threshold.Metric,
				Expr:     v.Threshold.Raw,
				Observed: v.Observed,
				Pass:     v.Pass,
			})
		}
	}

	return output.Summary{
		Totals:         totals,
		PerScenario:     perScenario,
		Metrics:        metricsOut,
		Checks:         checksOut,
		Thresholds:     output.ThresholdResult{Violations: violations, Total: len(verdicts)},
		MetricsDropped: report.MetricsDropped,
	}
}

func checkTally(checks map[string]*output.CheckSummary, name string) *output.CheckSummary {
	c, ok := checks[name]
	if !ok {
		c = &output.CheckSummary{Name: name}
		checks[name] = c
	}
	return c
}

func tagsToMap(tags value.Tags) map[string]string {
	pairs := tags.SortedPairs()
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.Name] = p.Value.Canonical()
	}
	return out
}
