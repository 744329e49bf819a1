package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstantVUsRunsExactIterationBudget(t *testing.T) {
	var count int64
	c := &ConstantVUs{VUs: 2, Iterations: 10}
	c.Run(context.Background(), func(ctx context.Context, vuID int) bool {
		atomic.AddInt64(&count, 1)
		return true
	})
	assert.EqualValues(t, 10, count)
	assert.EqualValues(t, 2, c.Stats.VUActiveMax())
	assert.EqualValues(t, 0, c.Stats.VUActive())
}

func TestConstantVUsStopsAtDuration(t *testing.T) {
	var count int64
	c := &ConstantVUs{VUs: 1, Duration: 50 * time.Millisecond}
	c.Run(context.Background(), func(ctx context.Context, vuID int) bool {
		atomic.AddInt64(&count, 1)
		time.Sleep(5 * time.Millisecond)
		return ctx.Err() == nil
	})
	assert.Greater(t, count, int64(0))
}

func TestRampingVUsReachesTargetVUCount(t *testing.T) {
	r := &RampingVUs{
		StartVUs: 0,
		Stages:   []Stage{{Duration: 150 * time.Millisecond, Target: 3}},
	}
	var maxSeen int64
	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), func(ctx context.Context, vuID int) bool {
			time.Sleep(time.Millisecond)
			return ctx.Err() == nil
		})
		close(done)
	}()
	<-done
	maxSeen = r.Stats.VUActiveMax()
	assert.GreaterOrEqual(t, maxSeen, int64(1))
}

func TestRampingArrivalRateDropsWhenSaturated(t *testing.T) {
	r := &RampingArrivalRate{
		StartRate:       1000,
		TimeUnit:        time.Second,
		PreAllocatedVUs: 1,
		MaxVUs:          1,
		Stages:          []Stage{{Duration: 100 * time.Millisecond, Target: 1000}},
	}
	r.Run(context.Background(), func(ctx context.Context, vuID int) bool {
		time.Sleep(20 * time.Millisecond)
		return true
	})
	assert.Greater(t, r.Stats.Dropped(), int64(0))
	assert.EqualValues(t, 1, r.Stats.VUActiveMax())
}
