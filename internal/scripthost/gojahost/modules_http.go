package gojahost

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/nogcio/wrkr/internal/config"
	"github.com/nogcio/wrkr/internal/httpclient"
	"github.com/nogcio/wrkr/internal/value"
)

// httpOpts is the common optional-argument shape for every http.* call
// (§4.5).
type httpOpts struct {
	Headers map[string]string
	Query   map[string]string
	Timeout time.Duration
	Tags    map[string]string
	Name    string
	Body    interface{}
}

func decodeHTTPOpts(raw map[string]interface{}) httpOpts {
	opts := httpOpts{}
	if h, ok := raw["headers"].(map[string]interface{}); ok {
		opts.Headers = toStringMap(h)
	}
	if q, ok := raw["params"].(map[string]interface{}); ok {
		opts.Query = toStringMap(q)
	} else if q, ok := raw["query"].(map[string]interface{}); ok {
		opts.Query = toStringMap(q)
	}
	if t, ok := raw["timeout"]; ok {
		opts.Timeout = durationFromNative(t)
	}
	if tg, ok := raw["tags"].(map[string]interface{}); ok {
		opts.Tags = toStringMap(tg)
	}
	if n, ok := raw["name"].(string); ok {
		opts.Name = n
	}
	opts.Body = raw["body"]
	return opts
}

func toStringMap(m map[string]interface{}) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case string:
			out[k] = vv
		default:
			out[k] = toStringScalar(vv)
		}
	}
	return out
}

func toStringScalar(v interface{}) string {
	switch vv := v.(type) {
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	default:
		return ""
	}
}

// durationFromNative accepts either a duration string ("1s") or a plain
// number, which §9's open question resolves to seconds.
func durationFromNative(v interface{}) time.Duration {
	switch vv := v.(type) {
	case string:
		d, err := config.ParseDuration(vv)
		if err == nil {
			return d
		}
		return 0
	case int64:
		return time.Duration(float64(vv) * float64(time.Second))
	case float64:
		return time.Duration(vv * float64(time.Second))
	default:
		return 0
	}
}

func tagsFromStringMap(m map[string]string) value.Tags {
	tags := value.NewTags()
	for k, v := range m {
		tags = tags.With(k, value.TagString(v))
	}
	return tags
}

func bodyToValue(body interface{}) value.Value {
	return nativeToValue(body)
}

func (h *Host) installHTTPModule() {
	makeMethod := func(method string) func(string, map[string]interface{}) interface{} {
		return func(url string, rawOpts map[string]interface{}) interface{} {
			return h.doHTTP(method, url, rawOpts)
		}
	}

	module := map[string]interface{}{
		"get":     makeMethod(http.MethodGet),
		"post":    makeMethod(http.MethodPost),
		"put":     makeMethod(http.MethodPut),
		"patch":   makeMethod(http.MethodPatch),
		"delete":  makeMethod(http.MethodDelete),
		"head":    makeMethod(http.MethodHead),
		"options": makeMethod(http.MethodOptions),
		"request": func(method, url string, rawOpts map[string]interface{}) interface{} {
			verb, err := httpclient.MethodFromString(method)
			if err != nil {
				panic(h.vm.ToValue(err.Error()))
			}
			return h.doHTTP(verb, url, rawOpts)
		},
	}
	h.vm.Set("http", module)
}

func (h *Host) doHTTP(method, url string, rawOpts map[string]interface{}) interface{} {
	opts := decodeHTTPOpts(rawOpts)
	req := httpclient.Request{
		Method:  method,
		URL:     url,
		Headers: opts.Headers,
		Query:   opts.Query,
		Timeout: opts.Timeout,
		Body:    bodyToValue(opts.Body),
		Tags:    tagsFromStringMap(opts.Tags),
		Name:    opts.Name,
	}
	resp, err := h.deps.HTTP.Do(context.Background(), h.deps.Metrics, h.runner.BaseTags(), req)
	if err != nil {
		panic(h.vm.ToValue(err.Error()))
	}
	native := valueToNative(resp.ToValue())
	if asMap, ok := native.(map[string]interface{}); ok {
		body := asMap["body"]
		asMap["jsonpath"] = func(expr string) interface{} {
			result, err := jsonpath.Get(expr, body)
			if err != nil {
				return nil
			}
			return result
		}
	}
	return native
}
