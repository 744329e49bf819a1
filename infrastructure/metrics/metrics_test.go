package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/value"
)

func gather(t *testing.T, b *Bridge) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestBridgeSyncCounterAndGauge(t *testing.T) {
	b := NewBridge()
	report := metrics.Report{
		Series: []metrics.SeriesSnapshot{
			{Name: "http_reqs", Kind: metrics.KindCounter, Tags: value.NewTags().With("method", value.TagString("GET")), Count: 42},
			{Name: "vus", Kind: metrics.KindGauge, Tags: value.NewTags(), Gauge: 10},
		},
		MetricsDropped: 3,
	}
	b.Sync(report)

	families := gather(t, b)
	if families["http_reqs"] == nil {
		t.Fatal("expected http_reqs family to be registered")
	}
	if families["vus"] == nil {
		t.Fatal("expected vus family to be registered")
	}
	if families["wrkr_metrics_dropped"] == nil {
		t.Fatal("expected wrkr_metrics_dropped family to be registered")
	}
	if got := families["wrkr_metrics_dropped"].Metric[0].GetGauge().GetValue(); got != 3 {
		t.Errorf("expected wrkr_metrics_dropped=3, got %v", got)
	}
}

func TestBridgeSyncTrendExpandsIntoFields(t *testing.T) {
	b := NewBridge()
	report := metrics.Report{
		Series: []metrics.SeriesSnapshot{
			{
				Name: "http_req_duration",
				Kind: metrics.KindTrend,
				Tags: value.NewTags(),
				Trend: metrics.TrendSnapshot{
					Count: 5, Min: 1, Max: 9, Mean: 5, P50: 4, P90: 8, P95: 9, P99: 9,
				},
			},
		},
	}
	b.Sync(report)

	families := gather(t, b)
	fam := families["http_req_duration_trend"]
	if fam == nil {
		t.Fatal("expected http_req_duration_trend family to be registered")
	}
	if len(fam.Metric) != 7 {
		t.Errorf("expected 7 trend fields (min/max/avg/p50/p90/p95/p99), got %d", len(fam.Metric))
	}
}

func TestBridgeSanitizesScriptChosenNames(t *testing.T) {
	b := NewBridge()
	report := metrics.Report{
		Series: []metrics.SeriesSnapshot{
			{Name: "my.custom-metric!", Kind: metrics.KindRate, Tags: value.NewTags()},
		},
	}
	b.Sync(report)

	families := gather(t, b)
	if families["my_custom_metric_"] == nil {
		t.Fatal("expected sanitized metric name to be registered")
	}
}

func TestBridgeReusesCollectorAcrossSyncs(t *testing.T) {
	b := NewBridge()
	tags := value.NewTags().With("status", value.TagInt(200))
	b.Sync(metrics.Report{Series: []metrics.SeriesSnapshot{{Name: "checks_failed", Kind: metrics.KindCounter, Tags: tags, Count: 1}}})
	b.Sync(metrics.Report{Series: []metrics.SeriesSnapshot{{Name: "checks_failed", Kind: metrics.KindCounter, Tags: tags, Count: 2}}})

	families := gather(t, b)
	fam := families["checks_failed"]
	if fam == nil || len(fam.Metric) != 1 {
		t.Fatalf("expected a single reused series for repeated tags, got %+v", fam)
	}
	if got := fam.Metric[0].GetGauge().GetValue(); got != 2 {
		t.Errorf("expected latest value 2, got %v", got)
	}
}
