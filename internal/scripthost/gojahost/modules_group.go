package gojahost

import (
	"github.com/dop251/goja"
)

// installGroupModule installs the `group` built-in (§4.4): group(name, fn)
// pushes a nested scope, runs fn, then pops it regardless of whether fn
// threw, so a failing iteration still leaves the group stack consistent for
// the samples recorded up to the failure point.
func (h *Host) installGroupModule() {
	h.vm.Set("group", func(name string, fn goja.Callable) (goja.Value, error) {
		if _, err := h.runner.PushGroup(name); err != nil {
			return goja.Undefined(), err
		}
		defer h.runner.PopGroup()
		return fn(goja.Undefined())
	})
}
