package gojahost

import (
	"context"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
)

// installSharedModule installs the `shared` built-in (§5): get/set/delete/
// incr/counter/wait/barrier over the run-scoped Shared Store.
func (h *Host) installSharedModule() {
	module := map[string]interface{}{
		"get": func(key string) interface{} {
			v, ok := h.deps.Shared.Get(key)
			if !ok {
				return nil
			}
			return valueToNative(v)
		},
		"set": func(key string, v interface{}) {
			h.deps.Shared.Set(key, nativeToValue(v))
		},
		"delete": func(key string) {
			h.deps.Shared.Delete(key)
		},
		"incr": func(name string, delta int64) int64 {
			return h.deps.Shared.Incr(name, delta)
		},
		"counter": func(name string) int64 {
			return h.deps.Shared.Counter(name)
		},
		"wait": func(key string) error {
			if err := h.deps.Shared.Wait(context.Background(), key); err != nil {
				return wrkrerr.Fatal("shared.wait(%q): %s", key, err)
			}
			return nil
		},
		"barrier": func(name string, parties int) error {
			if err := h.deps.Shared.Barrier(context.Background(), name, parties); err != nil {
				return wrkrerr.Fatal("shared.barrier(%q): %s", name, err)
			}
			return nil
		},
	}
	h.vm.Set("shared", module)
}
