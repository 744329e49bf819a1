package gojahost

import (
	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/value"
)

// installMetricsModule installs the `metrics` built-in (§3): Trend/Counter/
// Gauge/Rate constructors returning a handle whose add method records
// into the run's shared Metrics Engine, merging the script's tags with the
// VU's base tags (scenario, active group).
func (h *Host) installMetricsModule() {
	newHandle := func(kind metrics.Kind, name string) (map[string]interface{}, error) {
		if metrics.IsBuiltinName(name) {
			return nil, wrkrerr.InvalidUsage("metric name %q collides with a built-in series", name)
		}
		switch kind {
		case metrics.KindTrend:
			return map[string]interface{}{
				"add": func(v float64, rawTags map[string]interface{}) {
					h.deps.Metrics.RecordTrend(name, h.mergedTags(rawTags), v)
				},
			}, nil
		case metrics.KindCounter:
			return map[string]interface{}{
				"add": func(v float64, rawTags map[string]interface{}) {
					h.deps.Metrics.AddCounter(name, h.mergedTags(rawTags), v)
				},
			}, nil
		case metrics.KindGauge:
			return map[string]interface{}{
				"add": func(v float64, rawTags map[string]interface{}) {
					h.deps.Metrics.SetGauge(name, h.mergedTags(rawTags), v)
				},
			}, nil
		case metrics.KindRate:
			return map[string]interface{}{
				"add": func(v bool, rawTags map[string]interface{}) {
					h.deps.Metrics.ObserveRate(name, h.mergedTags(rawTags), v)
				},
			}, nil
		default:
			return nil, wrkrerr.Fatal("unknown metric kind %v", kind)
		}
	}

	module := map[string]interface{}{
		"Trend": func(name string) interface{} {
			handle, err := newHandle(metrics.KindTrend, name)
			if err != nil {
				panic(h.vm.ToValue(err.Error()))
			}
			return handle
		},
		"Counter": func(name string) interface{} {
			handle, err := newHandle(metrics.KindCounter, name)
			if err != nil {
				panic(h.vm.ToValue(err.Error()))
			}
			return handle
		},
		"Gauge": func(name string) interface{} {
			handle, err := newHandle(metrics.KindGauge, name)
			if err != nil {
				panic(h.vm.ToValue(err.Error()))
			}
			return handle
		},
		"Rate": func(name string) interface{} {
			handle, err := newHandle(metrics.KindRate, name)
			if err != nil {
				panic(h.vm.ToValue(err.Error()))
			}
			return handle
		},
	}
	h.vm.Set("metrics", module)
}

func (h *Host) mergedTags(raw map[string]interface{}) value.Tags {
	tags := h.runner.BaseTags()
	for k, v := range raw {
		switch vv := v.(type) {
		case string:
			tags = tags.With(k, value.TagString(vv))
		case int64:
			tags = tags.With(k, value.TagInt(vv))
		case float64:
			tags = tags.With(k, value.TagInt(int64(vv)))
		case bool:
			tags = tags.With(k, value.TagBool(vv))
		}
	}
	return tags
}
