// Package metrics bridges the native Metrics Engine (internal/metrics) onto
// Prometheus collectors for the optional stats server's /metrics endpoint
// (§4.9). The bridge is read-only and one-way: it tails engine snapshots and
// never feeds samples back into the run.
package metrics

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nogcio/wrkr/internal/metrics"
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_:]`)

// sanitizeName maps a user- or script-chosen metric name to one that
// satisfies Prometheus's naming regex, since scripts can call
// metrics.Counter("my.custom-metric!") freely (§4.2 has no name grammar of
// its own).
func sanitizeName(name string) string {
	return invalidNameChars.ReplaceAllString(name, "_")
}

// Bridge mirrors Metrics Engine series onto lazily-created GaugeVec
// collectors, one per (sanitized) series name. Every series is exported as
// a gauge rather than a native Prometheus counter/histogram because
// Engine.Snapshot reports cumulative point-in-time totals, not deltas since
// the last scrape; a gauge is the honest representation of "last known
// value" for both Counter and Trend series alike.
type Bridge struct {
	registry *prometheus.Registry

	mu     sync.Mutex
	gauges map[string]*prometheus.GaugeVec
}

// NewBridge creates a Bridge with its own Prometheus registry, never the
// package-level DefaultRegisterer, so multiple runs (or run + test) in one
// process never collide over collector registration.
func NewBridge() *Bridge {
	return &Bridge{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

// Registry returns the registry the stats server's /metrics handler serves.
func (b *Bridge) Registry() *prometheus.Registry { return b.registry }

// Sync mirrors one engine Report onto the bridge's collectors.
func (b *Bridge) Sync(report metrics.Report) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.set("wrkr_metrics_dropped", "", float64(report.MetricsDropped))

	for _, s := range report.Series {
		sig := s.Tags.Signature()
		switch s.Kind {
		case metrics.KindCounter:
			b.set(s.Name, sig, s.Count)
		case metrics.KindGauge:
			b.set(s.Name, sig, s.Gauge)
		case metrics.KindRate:
			b.set(s.Name, sig, s.Rate.Rate())
		case metrics.KindTrend:
			b.setQuantile(s.Name, sig, "min", s.Trend.Min)
			b.setQuantile(s.Name, sig, "max", s.Trend.Max)
			b.setQuantile(s.Name, sig, "avg", s.Trend.Mean)
			b.setQuantile(s.Name, sig, "p50", s.Trend.P50)
			b.setQuantile(s.Name, sig, "p90", s.Trend.P90)
			b.setQuantile(s.Name, sig, "p95", s.Trend.P95)
			b.setQuantile(s.Name, sig, "p99", s.Trend.P99)
		}
	}
}

func (b *Bridge) gaugeVec(name string, labelNames []string) *prometheus.GaugeVec {
	sanitized := sanitizeName(name)
	if g, ok := b.gauges[sanitized]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: sanitized,
		Help: fmt.Sprintf("wrkr metric series %s", name),
	}, labelNames)
	b.registry.MustRegister(g)
	b.gauges[sanitized] = g
	return g
}

func (b *Bridge) set(name, tagSignature string, v float64) {
	b.gaugeVec(name, []string{"tags"}).WithLabelValues(tagSignature).Set(v)
}

func (b *Bridge) setQuantile(name, tagSignature, field string, v float64) {
	b.gaugeVec(name+"_trend", []string{"tags", "field"}).WithLabelValues(tagSignature, field).Set(v)
}
