// Package executor implements the Scenario Scheduler (§4.3): one state
// machine per scenario driving constant-vus, ramping-vus or
// ramping-arrival-rate semantics over a VU runner callback.
package executor

import (
	"context"
	"sync/atomic"
	"time"
)

// State is the scheduler's lifecycle (§4.3: "Initializing → Running →
// Draining → Done"), shared by every executor kind.
type State uint8

const (
	StateInitializing State = iota
	StateRunning
	StateDraining
	StateDone
)

// drainGrace bounds how long Draining waits for in-flight iterations before
// abandoning them as dropped_iterations (§4.3).
const drainGrace = 5 * time.Second

// IterationFunc runs one iteration for the given VU id; ctx is cancelled
// when the scheduler begins draining. The bool result reports whether the
// iteration completed (false means it was abandoned/cancelled).
type IterationFunc func(ctx context.Context, vuID int) bool

// Executor is the common contract every scenario scheduler state machine
// implements (§4.3): constant-vus, ramping-vus, ramping-arrival-rate. Run
// blocks until the executor's stop condition is reached; the Stats
// accessors back the progress ticker's vu_active/vu_active_max/
// dropped_iterations fields.
type Executor interface {
	Run(ctx context.Context, iterate IterationFunc)
	VUActive() int64
	VUActiveMax() int64
	Dropped() int64
}

// Stats is the live counters every executor exposes for the progress
// ticker (§4.3 "reports vu_active/vu_active_max").
type Stats struct {
	vuActive    int64
	vuActiveMax int64
	dropped     int64
}

func (s *Stats) setActive(n int64) {
	atomic.StoreInt64(&s.vuActive, n)
	for {
		max := atomic.LoadInt64(&s.vuActiveMax)
		if n <= max || atomic.CompareAndSwapInt64(&s.vuActiveMax, max, n) {
			return
		}
	}
}

func (s *Stats) incActive(delta int64) int64 {
	n := atomic.AddInt64(&s.vuActive, delta)
	for {
		max := atomic.LoadInt64(&s.vuActiveMax)
		if n <= max || atomic.CompareAndSwapInt64(&s.vuActiveMax, max, n) {
			break
		}
	}
	return n
}

// VUActive reports the instantaneous active VU count.
func (s *Stats) VUActive() int64 { return atomic.LoadInt64(&s.vuActive) }

// VUActiveMax reports the run max (§4.3 "common scheduler guarantees").
func (s *Stats) VUActiveMax() int64 { return atomic.LoadInt64(&s.vuActiveMax) }

// Dropped reports the number of dropped_iterations recorded by this
// executor.
func (s *Stats) Dropped() int64 { return atomic.LoadInt64(&s.dropped) }

func (s *Stats) addDropped(n int64) { atomic.AddInt64(&s.dropped, n) }

// interpolateStage finds the piecewise-linear target at elapsed, given
// ordered (duration, target) stages and a starting value (§4.3 ramping-vus,
// ramping-arrival-rate). It returns the final stage's target once elapsed
// exceeds the total stage duration.
func interpolateStage(start float64, stages []Stage, elapsed time.Duration) float64 {
	prevTarget := start
	var acc time.Duration
	for _, st := range stages {
		stageEnd := acc + st.Duration
		if elapsed <= stageEnd {
			if st.Duration <= 0 {
				return st.Target
			}
			frac := float64(elapsed-acc) / float64(st.Duration)
			return prevTarget + (st.Target-prevTarget)*frac
		}
		acc = stageEnd
		prevTarget = st.Target
	}
	return prevTarget
}

// Stage is one (duration, target) pair shared by ramping-vus and
// ramping-arrival-rate.
type Stage struct {
	Duration time.Duration
	Target   float64
}

// maxStageTarget returns max(stage.target) across stages, including start.
func maxStageTarget(start float64, stages []Stage) float64 {
	max := start
	for _, st := range stages {
		if st.Target > max {
			max = st.Target
		}
	}
	return max
}
