package gojahost

import "github.com/google/uuid"

// installUUIDModule installs the `uuid` built-in (§6), grounded on the
// teacher's use of google/uuid for request/run identifiers.
func (h *Host) installUUIDModule() {
	module := map[string]interface{}{
		"v4": func() string {
			return uuid.NewString()
		},
	}
	h.vm.Set("uuid", module)
}
