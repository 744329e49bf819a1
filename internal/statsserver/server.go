// Package statsserver implements the optional stats server (§4.9): a
// read-only chi.Router exposing /healthz and a Prometheus /metrics bridge
// over the run's Metrics Engine. It is off by default and never feeds back
// into the run.
package statsserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nogcio/wrkr/infrastructure/logging"
	wrkrmetrics "github.com/nogcio/wrkr/infrastructure/metrics"
	"github.com/nogcio/wrkr/infrastructure/middleware"
	"github.com/nogcio/wrkr/internal/metrics"
)

// PhaseFunc reports the run's current lifecycle phase.
type PhaseFunc func() middleware.RunPhase

// SnapshotFunc reports the current Metrics Engine snapshot.
type SnapshotFunc func() metrics.Report

// defaultSyncInterval matches the progress ticker's cadence (§4.3), so a
// scrape never sees staler data than the CLI's own progress output.
const defaultSyncInterval = time.Second

// defaultRequestTimeout bounds how long any stats-server request may run.
const defaultRequestTimeout = 5 * time.Second

// Server is the optional stats server. Construct with New, then Run to
// serve on the address passed to --stats-addr until ctx is cancelled.
type Server struct {
	router   *chi.Mux
	bridge   *wrkrmetrics.Bridge
	snapshot SnapshotFunc
	interval time.Duration
}

// Options configures a Server.
type Options struct {
	Phase    PhaseFunc
	Snapshot SnapshotFunc
	// SyncInterval is how often the bridge re-pulls the engine snapshot
	// ahead of a scrape; zero uses defaultSyncInterval.
	SyncInterval time.Duration
	Logger       *logging.Logger
}

// New builds a Server with recovery, request-timeout, logging and
// self-observation middleware, grounded on the teacher's stats middleware
// stack adapted from gorilla/mux to chi.
func New(opts Options) *Server {
	interval := opts.SyncInterval
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	bridge := wrkrmetrics.NewBridge()
	reqMetrics := middleware.NewRequestMetrics(bridge.Registry())
	health := middleware.NewHealthChecker(func() middleware.RunPhase {
		if opts.Phase == nil {
			return middleware.PhaseInitializing
		}
		return opts.Phase()
	})

	r := chi.NewRouter()
	if opts.Logger != nil {
		r.Use(middleware.Recovery(opts.Logger))
		r.Use(middleware.Logging(opts.Logger))
	}
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(reqMetrics.Metrics())

	r.Get("/healthz", health.Handler())
	r.Handle("/metrics", promhttp.HandlerFor(bridge.Registry(), promhttp.HandlerOpts{}))

	return &Server{
		router:   r,
		bridge:   bridge,
		snapshot: opts.Snapshot,
		interval: interval,
	}
}

// Handler returns the server's http.Handler, useful for tests wanting an
// httptest.Server without a real listener.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, tailing engine snapshots into
// the Prometheus bridge every SyncInterval in the background.
func (s *Server) Run(ctx context.Context, addr string) error {
	stop := make(chan struct{})
	go s.tail(ctx, stop)
	defer close(stop)

	srv := &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) tail(ctx context.Context, stop <-chan struct{}) {
	if s.snapshot == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.bridge.Sync(s.snapshot())
		}
	}
}
