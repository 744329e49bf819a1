package gojahost

import (
	"github.com/PaesslerAG/jsonpath"
	"github.com/dop251/goja"

	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/value"
)

// installCheckModule installs the `check` built-in (§6): a boolean-valued
// assertion helper that records a Rate series per named check rather than
// aborting the iteration on failure (§4.4 "checks_failed and user metrics
// recorded up to the point of failure are preserved").
func (h *Host) installCheckModule() {
	module := map[string]interface{}{
		"check": func(subject interface{}, checksObj map[string]goja.Callable) bool {
			return h.runChecks(subject, checksObj)
		},
		"jsonpath": func(subject interface{}, expr string) interface{} {
			result, err := jsonpath.Get(expr, subject)
			if err != nil {
				return nil
			}
			return result
		},
	}
	h.vm.Set("check", module)
}

// runChecks evaluates each name -> predicate pair against subject, records a
// `checks` Rate series tagged by check name and reports overall pass/fail to
// the script as a bool (the conventional k6-family `check()` return value).
func (h *Host) runChecks(subject interface{}, checks map[string]goja.Callable) bool {
	allPassed := true
	subjectVal := h.vm.ToValue(subject)

	for name, predicate := range checks {
		result, err := predicate(goja.Undefined(), subjectVal)
		passed := err == nil && result != nil && result.ToBoolean()
		if !passed {
			allPassed = false
		}

		tags := h.runner.BaseTags().With(metrics.TagCheck, value.TagString(name))
		h.deps.Metrics.ObserveRate(metrics.MetricChecks, tags, passed)
		if !passed {
			h.deps.Metrics.AddCounter(metrics.MetricChecksFailed, tags, 1)
		}
	}
	return allPassed
}
