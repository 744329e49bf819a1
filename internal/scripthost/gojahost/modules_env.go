package gojahost

// installEnvModule installs the `env` built-in (§6): a read-only view of the
// environment variables the run was started with (`deps.Env`), injected by
// the engine rather than read from `os.Environ` directly so a run's script
// hosts see a single frozen snapshot.
func (h *Host) installEnvModule() {
	snapshot := make(map[string]interface{}, len(h.deps.Env))
	for k, v := range h.deps.Env {
		snapshot[k] = v
	}
	h.vm.Set("env", snapshot)
}
