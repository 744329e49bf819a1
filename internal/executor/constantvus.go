package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nogcio/wrkr/infrastructure/utils"
)

// ConstantVUs implements the constant-vus closed-model executor (§4.3):
// spawn `VUs` concurrent tasks at t=0, each looping until the stop
// condition (elapsed >= Duration, or the shared iteration budget is
// exhausted).
type ConstantVUs struct {
	VUs        int
	Duration   time.Duration // zero means governed by Iterations instead
	Iterations int64         // zero means governed by Duration instead

	Stats Stats
}

// Run drives the executor to completion, calling iterate once per loop pass
// per VU task. It blocks until every VU task has stopped or been abandoned
// after the drain grace.
func (c *ConstantVUs) Run(ctx context.Context, iterate IterationFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var budget int64
	useBudget := c.Iterations > 0
	if useBudget {
		budget = c.Iterations
	}

	var deadline <-chan time.Time
	if c.Duration > 0 {
		timer := time.NewTimer(c.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	var wg sync.WaitGroup
	for i := 0; i < c.VUs; i++ {
		wg.Add(1)
		c.Stats.incActive(1)
		vuID := i
		utils.SafeGo(func() {
			defer wg.Done()
			defer c.Stats.incActive(-1)
			c.runVU(runCtx, vuID, useBudget, &budget, iterate)
		}, func(err error) {
			c.Stats.addDropped(1)
		})
	}

	if deadline != nil {
		go func() {
			select {
			case <-deadline:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		select {
		case <-done:
		case <-time.After(drainGrace):
			// Remaining in-flight iterations are abandoned; their VU
			// goroutines observe ctx cancellation on their own next
			// suspension point and exit, incrementing dropped as they go.
		}
	}
}

func (c *ConstantVUs) runVU(ctx context.Context, vuID int, useBudget bool, budget *int64, iterate IterationFunc) {
	for {
		if ctx.Err() != nil {
			return
		}
		if useBudget {
			if atomic.AddInt64(budget, -1) < 0 {
				return
			}
		}
		if !iterate(ctx, vuID) {
			c.Stats.addDropped(1)
			return
		}
	}
}

// VUActive reports the instantaneous active VU count (Executor interface).
func (c *ConstantVUs) VUActive() int64 { return c.Stats.VUActive() }

// VUActiveMax reports the run max (Executor interface).
func (c *ConstantVUs) VUActiveMax() int64 { return c.Stats.VUActiveMax() }

// Dropped reports dropped_iterations recorded by this executor (Executor
// interface).
func (c *ConstantVUs) Dropped() int64 { return c.Stats.Dropped() }
