package metrics

import (
	"math"
	"sync"

	"github.com/beorn7/perks/quantile"

	"github.com/nogcio/wrkr/internal/value"
)

// Kind discriminates the four series shapes (§3).
type Kind uint8

const (
	KindTrend Kind = iota
	KindCounter
	KindGauge
	KindRate
)

func (k Kind) String() string {
	switch k {
	case KindTrend:
		return "trend"
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindRate:
		return "rate"
	default:
		return "unknown"
	}
}

// quantileTargets sets the error bound (≤1%, §4.2) at exactly the
// percentiles the Trend snapshot reports.
var quantileTargets = map[float64]float64{
	0.50: 0.005,
	0.75: 0.005,
	0.90: 0.005,
	0.95: 0.005,
	0.99: 0.001,
}

// trendDigest is the streaming percentile estimator backing a Trend series,
// grounded on beorn7/perks' targeted quantile stream (the same library
// Prometheus client_golang uses for its own Summary type).
type trendDigest struct {
	mu     sync.Mutex
	stream *quantile.Stream
	count  int64
	min    float64
	max    float64
	sum    float64
	sumSq  float64
}

func newTrendDigest() *trendDigest {
	return &trendDigest{
		stream: quantile.NewTargeted(quantileTargets),
		min:    math.Inf(1),
		max:    math.Inf(-1),
	}
}

func (t *trendDigest) insert(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stream.Insert(v)
	t.count++
	t.sum += v
	t.sumSq += v * v
	if v < t.min {
		t.min = v
	}
	if v > t.max {
		t.max = v
	}
}

// TrendSnapshot is a point-in-time read of a Trend series.
type TrendSnapshot struct {
	Count int64
	Min   float64
	Max   float64
	Mean  float64
	Stdev float64
	P50   float64
	P75   float64
	P90   float64
	P95   float64
	P99   float64
}

func (t *trendDigest) snapshot() TrendSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return TrendSnapshot{}
	}
	mean := t.sum / float64(t.count)
	variance := t.sumSq/float64(t.count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return TrendSnapshot{
		Count: t.count,
		Min:   t.min,
		Max:   t.max,
		Mean:  mean,
		Stdev: math.Sqrt(variance),
		P50:   t.stream.Query(0.50),
		P75:   t.stream.Query(0.75),
		P90:   t.stream.Query(0.90),
		P95:   t.stream.Query(0.95),
		P99:   t.stream.Query(0.99),
	}
}

// query reports the digest's estimate for quantile q directly from the
// underlying stream (§4.3 grammar allows p(1)..p(100), not only the five
// brackets TrendSnapshot precomputes).
func (t *trendDigest) query(q float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return 0
	}
	return t.stream.Query(q)
}

// merge folds another trend's raw samples into t via the quantile stream's
// own sample merge, used by the threshold evaluator when a selector matches
// more than one series.
func (t *trendDigest) merge(other *trendDigest) {
	other.mu.Lock()
	samples := other.stream.Samples()
	oc, omin, omax, osum, osumSq := other.count, other.min, other.max, other.sum, other.sumSq
	other.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stream.Merge(samples)
	t.count += oc
	t.sum += osum
	t.sumSq += osumSq
	if omin < t.min {
		t.min = omin
	}
	if omax > t.max {
		t.max = omax
	}
}

// counterAcc accumulates a monotonic float sum.
type counterAcc struct {
	mu  sync.Mutex
	sum float64
}

func (c *counterAcc) add(delta float64) {
	c.mu.Lock()
	c.sum += delta
	c.mu.Unlock()
}

func (c *counterAcc) snapshot() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sum
}

// gaugeAcc holds the last-observed value.
type gaugeAcc struct {
	mu  sync.Mutex
	val float64
	set bool
}

func (g *gaugeAcc) set_(v float64) {
	g.mu.Lock()
	g.val = v
	g.set = true
	g.mu.Unlock()
}

func (g *gaugeAcc) snapshot() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.val
}

// rateAcc holds (trues, total); rate() is trues/total, 0 when total is 0
// (§4.2).
type rateAcc struct {
	mu    sync.Mutex
	trues int64
	total int64
}

func (r *rateAcc) observe(ok bool) {
	r.mu.Lock()
	r.total++
	if ok {
		r.trues++
	}
	r.mu.Unlock()
}

// RateSnapshot is a point-in-time read of a Rate series.
type RateSnapshot struct {
	Trues int64
	Total int64
}

func (r *rateAcc) snapshot() RateSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateSnapshot{Trues: r.trues, Total: r.total}
}

// Rate computes trues/total, 0 when total is 0.
func (s RateSnapshot) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Trues) / float64(s.Total)
}

// Series is one (name, kind, canonical_tags) identity (§3). Exactly one of
// the kind-specific accumulators is populated.
type Series struct {
	Name string
	Kind Kind
	Tags value.Tags

	trend   *trendDigest
	counter *counterAcc
	gauge   *gaugeAcc
	rate    *rateAcc
}

func newSeries(name string, kind Kind, tags value.Tags) *Series {
	s := &Series{Name: name, Kind: kind, Tags: tags}
	switch kind {
	case KindTrend:
		s.trend = newTrendDigest()
	case KindCounter:
		s.counter = &counterAcc{}
	case KindGauge:
		s.gauge = &gaugeAcc{}
	case KindRate:
		s.rate = &rateAcc{}
	}
	return s
}
