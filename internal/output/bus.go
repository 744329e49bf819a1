package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/nogcio/wrkr/infrastructure/logging"
)

// Writer is what internal/engine drives: either the NDJSON Sink or the
// plain-text HumanWriter, selected by `--output` (§6).
type Writer interface {
	Progress(Progress)
	Summary(Summary)
	Event(Event)
	Close()
}

// eventQueueDepth bounds the generic-event channel so a stalled consumer
// never queues unbounded memory (§5 "Output sink is single-consumer with a
// bounded channel").
const eventQueueDepth = 256

// Sink is the NDJSON v1 OutputSink (§6): a single background writer
// goroutine draining a coalescing 1-slot progress channel and a bounded
// event channel, with Summary written synchronously so its delivery is
// guaranteed regardless of consumer backlog.
type Sink struct {
	enc   *json.Encoder
	start time.Time
	log   *logging.Logger

	mu       sync.Mutex // serializes writes to enc (Summary can race the background goroutine)
	progress chan Progress
	events   chan Event

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Sink writing NDJSON lines to w, and starts its background
// writer goroutine. Call Close to flush and stop it.
func New(w io.Writer, log *logging.Logger) *Sink {
	s := &Sink{
		enc:      json.NewEncoder(w),
		start:    time.Now(),
		log:      log,
		progress: make(chan Progress, 1),
		events:   make(chan Event, eventQueueDepth),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sink) elapsed() float64 {
	return time.Since(s.start).Seconds()
}

func (s *Sink) run() {
	defer s.wg.Done()
	for {
		select {
		case p := <-s.progress:
			s.write(p)
		case e := <-s.events:
			s.write(e)
		case <-s.done:
			// Drain whatever is already queued before exiting so a Close
			// racing the last tick doesn't silently drop it.
			for {
				select {
				case p := <-s.progress:
					s.write(p)
				case e := <-s.events:
					s.write(e)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil && s.log != nil {
		s.log.WithError(err).Error("output sink encode failed")
	}
}

// Progress enqueues a progress line, coalescing with any not-yet-written
// prior progress line (§5 "progress-event coalescing is applied" under
// backpressure) since only the latest snapshot is ever useful to a reader.
func (s *Sink) Progress(p Progress) {
	p.Schema = SchemaVersion
	p.Kind = KindProgress
	p.TS = s.elapsed()

	select {
	case s.progress <- p:
		return
	default:
	}
	// Channel full: drop the stale pending value and install the fresh one.
	select {
	case <-s.progress:
	default:
	}
	select {
	case s.progress <- p:
	default:
	}
}

// Event enqueues a non-periodic event line. Unlike Progress this never
// coalesces — every event is semantically distinct — so a full queue
// blocks the caller, applying natural backpressure to whatever is
// producing events faster than the sink can write them.
func (s *Sink) Event(e Event) {
	e.Schema = SchemaVersion
	e.Kind = KindEvent
	e.TS = s.elapsed()
	s.events <- e
}

// Summary writes the terminal line synchronously, guaranteeing delivery
// even if the background writer is backlogged or Close has begun (§5 "final
// summary is guaranteed delivered").
func (s *Sink) Summary(sum Summary) {
	sum.Schema = SchemaVersion
	sum.Kind = KindSummary
	sum.TS = s.elapsed()
	s.write(sum)
}

// Close stops the background writer after draining any already-queued
// lines. It does not write a Summary; call Summary first.
func (s *Sink) Close() {
	close(s.done)
	s.wg.Wait()
}
