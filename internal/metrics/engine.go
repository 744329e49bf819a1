// Package metrics implements the Metrics Engine (§4.2): a concurrent,
// non-blocking sample sink keyed by (name, canonical_tags) that the HTTP and
// gRPC clients, the VU runner and user scripts all record into, and that the
// progress ticker and threshold evaluator read back via Snapshot.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/nogcio/wrkr/internal/value"
)

// numShards bounds lock contention across concurrent VU goroutines (§4.2
// "shard by tag_signature hash").
const numShards = 64

// maxSeriesPerShard caps memory under pathological tag cardinality; once hit,
// a *new* series is refused and metrics_dropped increments, while samples for
// already-registered series are always accepted (§4.2 "totals and counters
// are never dropped").
const maxSeriesPerShard = 20000

type shard struct {
	mu     sync.RWMutex
	series map[uint64][]*Series
}

// Engine is the run's single Metrics Engine instance.
type Engine struct {
	shards  [numShards]*shard
	dropped int64
}

// New returns an empty Engine.
func New() *Engine {
	e := &Engine{}
	for i := range e.shards {
		e.shards[i] = &shard{series: make(map[uint64][]*Series)}
	}
	return e
}

func seriesKey(name string, tags value.Tags) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(tags.Signature())
	return h.Sum64()
}

// lookup returns the existing series for (name, kind, tags), creating one if
// capacity allows. ok is false only when the shard is at capacity and no
// matching series already exists.
func (e *Engine) lookup(name string, kind Kind, tags value.Tags) (*Series, bool) {
	h := seriesKey(name, tags)
	sh := e.shards[h%numShards]

	sh.mu.RLock()
	for _, s := range sh.series[h] {
		if s.Name == name && s.Kind == kind && s.Tags.Signature() == tags.Signature() {
			sh.mu.RUnlock()
			return s, true
		}
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	for _, s := range sh.series[h] {
		if s.Name == name && s.Kind == kind && s.Tags.Signature() == tags.Signature() {
			return s, true
		}
	}
	total := 0
	for _, bucket := range sh.series {
		total += len(bucket)
	}
	if total >= maxSeriesPerShard {
		atomic.AddInt64(&e.dropped, 1)
		return nil, false
	}
	s := newSeries(name, kind, tags)
	sh.series[h] = append(sh.series[h], s)
	return s, true
}

// RecordTrend appends a latency/size observation to a Trend series.
func (e *Engine) RecordTrend(name string, tags value.Tags, v float64) {
	s, ok := e.lookup(name, KindTrend, tags)
	if !ok {
		return
	}
	s.trend.insert(v)
}

// AddCounter adds delta to a Counter series.
func (e *Engine) AddCounter(name string, tags value.Tags, delta float64) {
	s, ok := e.lookup(name, KindCounter, tags)
	if !ok {
		return
	}
	s.counter.add(delta)
}

// SetGauge overwrites a Gauge series with the last-observed value.
func (e *Engine) SetGauge(name string, tags value.Tags, v float64) {
	s, ok := e.lookup(name, KindGauge, tags)
	if !ok {
		return
	}
	s.gauge.set_(v)
}

// ObserveRate records one Rate trial.
func (e *Engine) ObserveRate(name string, tags value.Tags, ok bool) {
	s, exists := e.lookup(name, KindRate, tags)
	if !exists {
		return
	}
	s.rate.observe(ok)
}

// Dropped reports the running metrics_dropped count.
func (e *Engine) Dropped() int64 { return atomic.LoadInt64(&e.dropped) }

// All returns every registered series, across every shard, in no particular
// order. Used by Snapshot and by the threshold evaluator's selector scan.
func (e *Engine) All() []*Series {
	var out []*Series
	for _, sh := range e.shards {
		sh.mu.RLock()
		for _, bucket := range sh.series {
			out = append(out, bucket...)
		}
		sh.mu.RUnlock()
	}
	return out
}

// ByName returns every registered series with the given metric name.
func (e *Engine) ByName(name string) []*Series {
	var out []*Series
	for _, s := range e.All() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}
