package executor

import (
	"context"
	"sync"
	"time"

	"github.com/nogcio/wrkr/infrastructure/utils"
)

// arrivalTick bounds the scheduling loop's resolution (§4.3 "implementations
// may approximate with small fixed ticks (<=10 ms) accumulating fractional
// credit").
const arrivalTick = 10 * time.Millisecond

// RampingArrivalRate implements the ramping-arrival-rate open-model
// executor (§4.3): iterations are scheduled at a piecewise-linear rate over
// stages and handed to an elastic pool of VU workers.
type RampingArrivalRate struct {
	StartRate       float64
	TimeUnit        time.Duration
	PreAllocatedVUs int
	MaxVUs          int
	Stages          []Stage

	Stats Stats
}

// Run drives the scheduling loop until every stage has elapsed, dispatching
// each scheduled iteration to an idle worker, starting a new one up to
// MaxVUs, or recording dropped_iterations when the pool is saturated.
func (r *RampingArrivalRate) Run(ctx context.Context, iterate IterationFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := newWorkerPool(runCtx, r.PreAllocatedVUs, r.MaxVUs, &r.Stats, iterate)
	defer pool.stopAll()

	total := totalStageDuration(r.Stages)
	start := time.Now()
	ticker := time.NewTicker(arrivalTick)
	defer ticker.Stop()

	var credit float64
	lastTick := start

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			dt := now.Sub(lastTick)
			lastTick = now

			rate := interpolateStage(r.StartRate, r.Stages, elapsed) // iterations per TimeUnit
			perSecond := rate / r.TimeUnit.Seconds()
			credit += perSecond * dt.Seconds()

			for credit >= 1 {
				credit--
				if !pool.dispatch() {
					r.Stats.addDropped(1)
				}
			}

			if elapsed >= total {
				break loop
			}
		}
	}

	pool.drain(drainGrace)
}

// workerPool is the elastic set of VU goroutines backing the open-model
// executor: idle workers wait on a job channel; dispatch starts a new
// worker up to maxVUs when none is idle.
type workerPool struct {
	ctx     context.Context
	stats   *Stats
	iterate IterationFunc
	maxVUs  int

	mu      sync.Mutex
	idle    int
	active  int
	nextID  int
	jobs    chan int
	workers []chan struct{}
}

func newWorkerPool(ctx context.Context, preAllocated, maxVUs int, stats *Stats, iterate IterationFunc) *workerPool {
	p := &workerPool{
		ctx:     ctx,
		stats:   stats,
		iterate: iterate,
		maxVUs:  maxVUs,
		jobs:    make(chan int, maxVUs),
	}
	for i := 0; i < preAllocated; i++ {
		p.spawnWorker()
	}
	return p
}

func (p *workerPool) spawnWorker() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	stop := make(chan struct{})
	p.workers = append(p.workers, stop)
	p.active++
	p.idle++
	p.mu.Unlock()
	p.stats.incActive(1)

	utils.SafeGo(func() {
		defer p.stats.incActive(-1)
		for {
			select {
			case <-stop:
				return
			case <-p.ctx.Done():
				return
			case <-p.jobs:
				p.mu.Lock()
				p.idle--
				p.mu.Unlock()
				p.iterate(p.ctx, id)
				p.mu.Lock()
				p.idle++
				p.mu.Unlock()
			}
		}
	}, func(err error) {
		p.stats.addDropped(1)
	})
}

// dispatch hands one scheduled iteration to an idle worker, growing the
// pool if none is idle and capacity remains. It returns false when the
// iteration had to be dropped (§4.3 "records one dropped_iterations").
func (p *workerPool) dispatch() bool {
	p.mu.Lock()
	if p.idle == 0 && p.active < p.maxVUs {
		p.mu.Unlock()
		p.spawnWorker()
	} else {
		p.mu.Unlock()
	}

	select {
	case p.jobs <- 0:
		return true
	default:
		return false
	}
}

func (p *workerPool) stopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, stop := range p.workers {
		close(stop)
	}
	p.workers = nil
}

func (p *workerPool) drain(grace time.Duration) {
	p.stopAll()
	time.Sleep(0) // yield; workers exit on their own ctx/stop select
}

// VUActive reports the instantaneous active VU count (Executor interface).
func (c *RampingArrivalRate) VUActive() int64 { return c.Stats.VUActive() }

// VUActiveMax reports the run max (Executor interface).
func (c *RampingArrivalRate) VUActiveMax() int64 { return c.Stats.VUActiveMax() }

// Dropped reports dropped_iterations recorded by this executor (Executor
// interface).
func (c *RampingArrivalRate) Dropped() int64 { return c.Stats.Dropped() }
