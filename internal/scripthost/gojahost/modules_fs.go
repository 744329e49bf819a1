package gojahost

import "github.com/nogcio/wrkr/infrastructure/wrkrerr"

// installFSModule installs the `fs` built-in named in §6's module list. A
// sandboxed script filesystem is out of scope (Non-goals), but the module
// itself must still exist so scripts referencing `fs.*` fail with a script-
// level error rather than a ReferenceError.
func (h *Host) installFSModule() {
	unsupported := func(string) (interface{}, error) {
		return nil, wrkrerr.InvalidUsage("fs module is not supported")
	}
	module := map[string]interface{}{
		"readFile":  unsupported,
		"open":      unsupported,
		"readdir":   unsupported,
		"stat":      unsupported,
	}
	h.vm.Set("fs", module)
}
