package executor

import (
	"context"
	"sync"
	"time"

	"github.com/nogcio/wrkr/infrastructure/utils"
)

// rampingTickInterval is the control-loop period (§4.3 "at each tick (<=100
// ms)").
const rampingTickInterval = 100 * time.Millisecond

// RampingVUs implements the ramping-vus closed-model executor (§4.3):
// piecewise-linear VU-count interpolation across stages, growing by
// spawning new tasks and shrinking by cooperative stop flags on the most
// recently spawned tasks.
type RampingVUs struct {
	StartVUs int
	Stages   []Stage

	Stats Stats
}

type rampingVUTask struct {
	id   int
	stop chan struct{}
}

// Run drives the executor until every stage has elapsed, then stops every
// remaining VU task and waits (bounded by the drain grace) for them to
// exit.
func (r *RampingVUs) Run(ctx context.Context, iterate IterationFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var tasks []*rampingVUTask
	var nextID int
	var wg sync.WaitGroup

	spawn := func() {
		mu.Lock()
		id := nextID
		nextID++
		task := &rampingVUTask{id: id, stop: make(chan struct{})}
		tasks = append(tasks, task)
		mu.Unlock()
		wg.Add(1)
		r.Stats.incActive(1)
		utils.SafeGo(func() {
			defer wg.Done()
			defer r.Stats.incActive(-1)
			for {
				select {
				case <-task.stop:
					return
				case <-runCtx.Done():
					return
				default:
				}
				if !iterate(runCtx, task.id) {
					r.Stats.addDropped(1)
					return
				}
			}
		}, func(err error) {
			r.Stats.addDropped(1)
		})
	}

	shrinkTo := func(target int) {
		mu.Lock()
		defer mu.Unlock()
		for len(tasks) > target {
			last := tasks[len(tasks)-1]
			tasks = tasks[:len(tasks)-1]
			close(last.stop)
		}
	}

	total := totalStageDuration(r.Stages)
	start := time.Now()
	ticker := time.NewTicker(rampingTickInterval)
	defer ticker.Stop()

	current := r.StartVUs
	for i := 0; i < current; i++ {
		spawn()
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			elapsed := time.Since(start)
			if elapsed >= total {
				target := int(interpolateStage(float64(r.StartVUs), r.Stages, total))
				applyTarget(target, &current, spawn, shrinkTo)
				break loop
			}
			target := int(interpolateStage(float64(r.StartVUs), r.Stages, elapsed))
			applyTarget(target, &current, spawn, shrinkTo)
		}
	}

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainGrace):
	}
}

func applyTarget(target int, current *int, spawn func(), shrinkTo func(int)) {
	if target > *current {
		for i := *current; i < target; i++ {
			spawn()
		}
	} else if target < *current {
		shrinkTo(target)
	}
	*current = target
}

func totalStageDuration(stages []Stage) time.Duration {
	var total time.Duration
	for _, s := range stages {
		total += s.Duration
	}
	return total
}

// VUActive reports the instantaneous active VU count (Executor interface).
func (c *RampingVUs) VUActive() int64 { return c.Stats.VUActive() }

// VUActiveMax reports the run max (Executor interface).
func (c *RampingVUs) VUActiveMax() int64 { return c.Stats.VUActiveMax() }

// Dropped reports dropped_iterations recorded by this executor (Executor
// interface).
func (c *RampingVUs) Dropped() int64 { return c.Stats.Dropped() }
