// Package shared implements the run-scoped Shared Store (§5): the only
// primitive through which otherwise-isolated VU script hosts coordinate.
package shared

import (
	"context"
	"sync"

	"github.com/nogcio/wrkr/internal/value"
)

// Store is one run's shared key/value space plus its counter, wait and
// barrier registries. A Store must never be reused across runs (§9 "run-
// scoped, not process-scoped").
type Store struct {
	mu       sync.Mutex
	values   map[string]value.Value
	waiters  map[string][]chan struct{}
	counters map[string]int64
	barriers map[string]*barrier
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		values:   make(map[string]value.Value),
		waiters:  make(map[string][]chan struct{}),
		counters: make(map[string]int64),
		barriers: make(map[string]*barrier),
	}
}

// Get reads key's current value.
func (s *Store) Get(key string) (value.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set writes key and wakes any Wait callers blocked on it.
func (s *Store) Set(key string, v value.Value) {
	s.mu.Lock()
	s.values[key] = v
	s.wake(key)
	s.mu.Unlock()
}

// Delete removes key and wakes any Wait callers blocked on it.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.wake(key)
	s.mu.Unlock()
}

// wake must be called with s.mu held.
func (s *Store) wake(key string) {
	for _, ch := range s.waiters[key] {
		close(ch)
	}
	delete(s.waiters, key)
}

// Wait suspends the calling VU task until a Set or Delete occurs on key
// (§5), or ctx is cancelled.
func (s *Store) Wait(ctx context.Context, key string) error {
	s.mu.Lock()
	ch := make(chan struct{})
	s.waiters[key] = append(s.waiters[key], ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Incr atomically adds delta to a named counter and returns its new value.
func (s *Store) Incr(name string, delta int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += delta
	return s.counters[name]
}

// Counter reads a named counter's current value without modifying it.
func (s *Store) Counter(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[name]
}

// barrier tracks arrivals for one generation; it is replaced once `parties`
// have arrived so the name becomes reusable (§5 "reusable only after all
// have passed").
type barrier struct {
	parties  int
	arrived  int
	released chan struct{}
}

// Barrier suspends the calling VU task until `parties` arrivals have
// occurred on name, then returns. Safe to call again once every party has
// passed.
func (s *Store) Barrier(ctx context.Context, name string, parties int) error {
	s.mu.Lock()
	b, ok := s.barriers[name]
	if !ok || b.parties != parties {
		b = &barrier{parties: parties, released: make(chan struct{})}
		s.barriers[name] = b
	}
	b.arrived++
	released := b.released
	if b.arrived >= parties {
		close(b.released)
		delete(s.barriers, name)
	}
	s.mu.Unlock()

	select {
	case <-released:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
