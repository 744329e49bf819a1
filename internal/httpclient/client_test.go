package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/value"
)

func TestDoRecordsSuccessSamples(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Hello World!"))
	}))
	defer srv.Close()

	c := New()
	eng := metrics.New()
	resp, err := c.Do(context.Background(), eng, value.NewTags(), Request{Method: http.MethodGet, URL: srv.URL + "/hello"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "Hello World!", string(resp.Body))

	report := eng.Snapshot()
	var reqs, failed float64
	var failedRate metrics.RateSnapshot
	for _, s := range report.Series {
		if s.Name == metrics.MetricHTTPReqs {
			reqs = s.Count
		}
		if s.Name == metrics.MetricHTTPReqFailed {
			failed++
			failedRate = s.Rate
		}
	}
	assert.Equal(t, 1.0, reqs)
	assert.Equal(t, 1.0, failed)
	assert.Equal(t, 0.0, failedRate.Rate())
}

func TestDoTimeoutProducesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	eng := metrics.New()
	resp, err := c.Do(context.Background(), eng, value.NewTags(), Request{
		Method:  http.MethodGet,
		URL:     srv.URL + "/slow",
		Timeout: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Status)
	assert.NotEmpty(t, resp.Error)
}

func TestDoRejectsUnsupportedScheme(t *testing.T) {
	c := New()
	eng := metrics.New()
	_, err := c.Do(context.Background(), eng, value.NewTags(), Request{Method: http.MethodGet, URL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestDoJSONBodyEncoding(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	eng := metrics.New()
	m := value.NewMap()
	m.Set(value.StringKey("a"), value.I64(1))
	_, err := c.Do(context.Background(), eng, value.NewTags(), Request{
		Method: http.MethodPost,
		URL:    srv.URL + "/",
		Body:   value.FromMap(m),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json; charset=utf-8", gotContentType)
}
