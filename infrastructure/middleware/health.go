// Package middleware provides the HTTP middleware and handlers used by the
// optional stats server (§4.9): panic recovery, request timeout, request
// logging, Prometheus request metrics, and the /healthz handler.
package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// RunPhase is the coarse lifecycle state the stats server reports on
// /healthz (§4.9): initializing|running|draining|done.
type RunPhase string

const (
	PhaseInitializing RunPhase = "initializing"
	PhaseRunning      RunPhase = "running"
	PhaseDraining     RunPhase = "draining"
	PhaseDone         RunPhase = "done"
)

// HealthStatus represents the /healthz response.
type HealthStatus struct {
	Status    string `json:"status"`
	Phase     string `json:"phase"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// HealthChecker reports the run's current phase, read live from phaseFn on
// every request so /healthz always reflects the engine's actual state.
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	phaseFn   func() RunPhase
}

// NewHealthChecker creates a health checker bound to the engine's phase
// accessor.
func NewHealthChecker(phaseFn func() RunPhase) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		phaseFn:   phaseFn,
	}
}

// Handler returns the /healthz HTTP handler.
func (h *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		defer h.mu.RUnlock()

		phase := PhaseInitializing
		if h.phaseFn != nil {
			phase = h.phaseFn()
		}
		status := HealthStatus{
			Status:    "healthy",
			Phase:     string(phase),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		if encodeErr := json.NewEncoder(w).Encode(status); encodeErr != nil {
			log.Printf("healthz handler encode failed: %v", encodeErr)
		}
	}
}

// RuntimeStats returns process runtime statistics, surfaced for operators
// debugging a stuck or resource-starved run.
func RuntimeStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
		"alloc_mb":   m.Alloc / 1024 / 1024,
		"sys_mb":     m.Sys / 1024 / 1024,
		"num_gc":     m.NumGC,
		"go_version": runtime.Version(),
		"num_cpu":    runtime.NumCPU(),
	}
}
