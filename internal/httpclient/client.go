// Package httpclient implements the scripted HTTP Client (§4.5): the
// get/post/put/patch/delete/head/options/request surface the script host
// exposes to scenarios, backed by one pooled *http.Client per Client value
// (the CLI builds one per run and shares it across every scenario).
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nogcio/wrkr/infrastructure/httputil"
	"github.com/nogcio/wrkr/infrastructure/runtime"
	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/value"
)

const (
	defaultTimeout             = 30 * time.Second
	minTimeout                 = time.Millisecond
	maxTimeout                 = time.Hour
	idleConnTimeout            = 90 * time.Second
	maxBodyBytes               = 64 << 20
	defaultMaxIdleConnsPerHost = 64
)

// Client is a shared connection pool, pooled per origin (§4.5 "pool per origin").
type Client struct {
	http *http.Client
}

// New builds a pooled Client. Every scenario VU shares the same Client
// instance; connections are pooled per-origin and headers are read-only per
// request (§5 Resource policy). WRKR_MAX_IDLE_CONNS_PER_HOST overrides the
// per-origin idle connection cap for scenarios that drive many concurrent
// origins from a single scripted load test.
func New() *Client {
	transport := httputil.DefaultTransportWithMinTLS12()
	if t, ok := transport.(*http.Transport); ok {
		t.IdleConnTimeout = idleConnTimeout
		t.ForceAttemptHTTP2 = true
		t.MaxIdleConnsPerHost = runtime.ResolveInt(0, "WRKR_MAX_IDLE_CONNS_PER_HOST", defaultMaxIdleConnsPerHost)
	}
	return &Client{http: &http.Client{Transport: transport}}
}

// Request is one scripted HTTP call's input (§4.5).
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Timeout time.Duration
	Body    value.Value
	Tags    value.Tags
	Name    string
}

// Response is the Value Model shape returned to the script (§4.5): never an
// error for protocol-level failures.
type Response struct {
	Status    int
	Body      []byte
	Headers   map[string]string
	Error     string
	ErrorKind string
}

// ToValue renders r as the Value Map the script observes.
func (r Response) ToValue() value.Value {
	m := value.NewMap()
	m.Set(value.StringKey("status"), value.I64(int64(r.Status)))
	m.Set(value.StringKey("body"), value.Bytes(r.Body))
	headers := value.NewMap()
	for k, v := range r.Headers {
		headers.Set(value.StringKey(strings.ToLower(k)), value.String(v))
	}
	m.Set(value.StringKey("headers"), value.FromMap(headers))
	if r.Error != "" {
		m.Set(value.StringKey("error"), value.String(r.Error))
		m.Set(value.StringKey("error_kind"), value.String(r.ErrorKind))
	}
	return value.FromMap(m)
}

// Do issues one scripted HTTP request, recording http_reqs, http_req_duration,
// http_req_failed, data_received and data_sent regardless of outcome (§4.5).
func (c *Client) Do(ctx context.Context, metricsEngine *metrics.Engine, baseTags value.Tags, req Request) (Response, error) {
	if req.URL == "" {
		return Response{}, wrkrerr.InvalidUsage("http request requires a URL")
	}
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return Response{}, wrkrerr.InvalidUsage("invalid URL %q: %s", req.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Response{}, wrkrerr.InvalidUsage("unsupported scheme %q (only http, https)", parsed.Scheme)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if timeout < minTimeout || timeout > maxTimeout {
		return Response{}, wrkrerr.InvalidUsage("timeout %s out of bounds [%s, %s]", timeout, minTimeout, maxTimeout)
	}

	if len(req.Query) > 0 {
		q := parsed.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		parsed.RawQuery = q.Encode()
	}

	bodyBytes, contentType, err := encodeBody(req.Body)
	if err != nil {
		return Response{}, wrkrerr.InvalidUsage("cannot encode request body: %s", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, parsed.String(), bytes.NewReader(bodyBytes))
	if err != nil {
		return Response{}, wrkrerr.InvalidUsage("cannot build request: %s", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	name := req.Name
	if name == "" {
		name = parsed.Path
	}
	tags := baseTags.
		With(metrics.TagMethod, value.TagString(req.Method)).
		With("name", value.TagString(name)).
		WithAll(req.Tags)

	start := time.Now()
	httpResp, doErr := c.http.Do(httpReq)
	duration := time.Since(start)

	metricsEngine.AddCounter(metrics.MetricHTTPReqs, tags, 1)
	metricsEngine.AddCounter(metrics.MetricDataSent, tags, float64(len(bodyBytes)))

	if doErr != nil {
		failedTags := tags.With(metrics.TagStatus, value.TagInt(0))
		metricsEngine.RecordTrend(metrics.MetricHTTPReqDuration, failedTags, float64(duration.Microseconds()))
		metricsEngine.ObserveRate(metrics.MetricHTTPReqFailed, failedTags, true)
		metricsEngine.AddCounter(metrics.MetricDataReceived, failedTags, 0)
		return Response{Status: 0, Error: doErr.Error(), ErrorKind: "Transport"}, nil
	}
	defer httpResp.Body.Close()

	body, _, _ := httputil.ReadAllWithLimit(httpResp.Body, maxBodyBytes)
	respHeaders := make(map[string]string, len(httpResp.Header))
	headerBytes := 0
	for k, vs := range httpResp.Header {
		v := strings.Join(vs, ", ")
		respHeaders[strings.ToLower(k)] = v
		headerBytes += len(k) + len(v)
	}

	statusTags := tags.With(metrics.TagStatus, value.TagInt(int64(httpResp.StatusCode)))
	metricsEngine.RecordTrend(metrics.MetricHTTPReqDuration, statusTags, float64(duration.Microseconds()))
	metricsEngine.ObserveRate(metrics.MetricHTTPReqFailed, statusTags, false)
	metricsEngine.AddCounter(metrics.MetricDataReceived, statusTags, float64(len(body)+headerBytes))

	return Response{Status: httpResp.StatusCode, Body: body, Headers: respHeaders}, nil
}

// encodeBody applies the body rules (§4.5): bytes/string as-is with a
// text/plain default, anything else marshalled as JSON.
func encodeBody(v value.Value) ([]byte, string, error) {
	if v.IsNull() {
		return nil, "", nil
	}
	if b, ok := v.AsBytes(); ok {
		return b, "text/plain; charset=utf-8", nil
	}
	if s, ok := v.AsString(); ok {
		return []byte(s), "text/plain; charset=utf-8", nil
	}
	encoded, err := json.Marshal(valueToJSON(v))
	if err != nil {
		return nil, "", err
	}
	return encoded, "application/json; charset=utf-8", nil
}

// valueToJSON converts a Value into plain interface{} for json.Marshal.
func valueToJSON(v value.Value) interface{} {
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindBool:
		b, _ := v.AsBool()
		return b
	case value.KindI64:
		i, _ := v.AsI64()
		return i
	case value.KindU64:
		u, _ := v.AsU64()
		return u
	case value.KindF64:
		f, _ := v.AsF64()
		return f
	case value.KindString:
		s, _ := v.AsString()
		return s
	case value.KindBytes:
		b, _ := v.AsBytes()
		return string(b)
	case value.KindList:
		items, _ := v.AsList()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = valueToJSON(item)
		}
		return out
	case value.KindMap:
		m, _ := v.AsMap()
		out := make(map[string]interface{}, m.Len())
		m.Range(func(k value.MapKey, mv value.Value) bool {
			out[k.String()] = valueToJSON(mv)
			return true
		})
		return out
	default:
		return nil
	}
}

// MethodFromString validates a user-supplied method against a small
// allowlist used by the `request(method)` entry point, so scripts can't
// smuggle arbitrary verbs into a proxy.
func MethodFromString(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions:
		return m, nil
	default:
		return "", wrkrerr.InvalidUsage("unsupported HTTP method %q", method)
	}
}
