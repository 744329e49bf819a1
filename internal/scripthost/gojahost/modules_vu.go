package gojahost

// installVUModule installs the `vu` built-in (§6): read-only access to the
// identity of the VU currently executing the script (the `vu_id` argument
// ScriptHost.iteration already receives, plus the scenario/group context
// the runner tracks).
func (h *Host) installVUModule() {
	module := map[string]interface{}{
		"id": func() int {
			if h.runner == nil {
				return 0
			}
			return h.runner.ID
		},
		"scenario": func() string {
			return h.scenario
		},
		"group": func() string {
			if h.runner == nil {
				return ""
			}
			return h.runner.GroupTag()
		},
	}
	h.vm.Set("vu", module)
}
