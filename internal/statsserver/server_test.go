package statsserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogcio/wrkr/infrastructure/middleware"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/value"
)

func TestHealthzReportsPhase(t *testing.T) {
	phase := middleware.PhaseRunning
	s := New(Options{Phase: func() middleware.RunPhase { return phase }})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["phase"])
	assert.Equal(t, "healthy", body["status"])
}

func TestMetricsEndpointServesBridgedSeries(t *testing.T) {
	eng := metrics.New()
	eng.AddCounter("http_reqs", value.NewTags(), 1)

	s := New(Options{Snapshot: func() metrics.Report { return eng.Snapshot() }})
	s.bridge.Sync(s.snapshot())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_reqs")
}
