package gojahost

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/nogcio/wrkr/infrastructure/logging"
	"github.com/nogcio/wrkr/infrastructure/ratelimit"
	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/grpcclient"
	"github.com/nogcio/wrkr/internal/httpclient"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/scripthost"
	"github.com/nogcio/wrkr/internal/shared"
	"github.com/nogcio/wrkr/internal/value"
	"github.com/nogcio/wrkr/internal/vu"
)

// Deps are the engine-owned collaborators a Host's built-in modules call
// into. They are shared across every VU's Host for the run (§9 "the metrics
// engine and shared store are run-scoped").
type Deps struct {
	Metrics     *metrics.Engine
	Shared      *shared.Store
	HTTP        *httpclient.Client
	Descriptors map[string]*grpcclient.Descriptors // keyed by the load() name the script chose
	Env         map[string]string
	Logger      *logging.Logger
	// DebugLimiter bounds script-triggered debug.log/warn/error volume
	// across every VU sharing this run, since scripts commonly log on
	// every iteration. Nil disables throttling.
	DebugLimiter *ratelimit.Limiter
}

// Host is the default ScriptHost (§6), one per VU.
type Host struct {
	vm       *goja.Runtime
	program  *goja.Program
	exports  *goja.Object
	runner   *vu.Runner
	deps     Deps
	scenario string

	grpcClients map[string]*grpcclient.Client
}

// New compiles scriptSource and returns a Host ready for ParseOptions. The
// script runs once at construction time (its top-level statements), exactly
// as a CommonJS module would when first required.
func New(scriptSource, scriptName string, runner *vu.Runner, deps Deps) (*Host, error) {
	program, err := goja.Compile(scriptName, scriptSource, false)
	if err != nil {
		return nil, wrkrerr.InvalidUsage("script compile error in %s: %s", scriptName, err)
	}

	h := &Host{
		vm:          goja.New(),
		program:     program,
		runner:      runner,
		deps:        deps,
		grpcClients: make(map[string]*grpcclient.Client),
	}
	if runner != nil {
		h.scenario = runner.Scenario
	}

	module := h.vm.NewObject()
	exportsObj := h.vm.NewObject()
	_ = module.Set("exports", exportsObj)
	h.vm.Set("module", module)
	h.vm.Set("exports", exportsObj)
	h.exports = exportsObj

	h.installBuiltins()

	if _, err := h.vm.RunProgram(program); err != nil {
		return nil, wrkrerr.ScriptError(fmt.Errorf("%s: %w", scriptName, err))
	}

	return h, nil
}

func (h *Host) exportsObject() *goja.Object {
	return h.vm.Get("module").ToObject(h.vm).Get("exports").ToObject(h.vm)
}

func (h *Host) installBuiltins() {
	h.installHTTPModule()
	h.installGRPCModule()
	h.installCheckModule()
	h.installGroupModule()
	h.installMetricsModule()
	h.installSharedModule()
	h.installEnvModule()
	h.installJSONModule()
	h.installVUModule()
	h.installUUIDModule()
	h.installDebugModule()
	h.installFSModule()
}

// ParseOptions reads module.exports.options (§6).
func (h *Host) ParseOptions(scriptPath string) (scripthost.Options, error) {
	raw := h.exportsObject().Get("options")
	if raw == nil || goja.IsUndefined(raw) {
		return scripthost.Options{}, nil
	}
	native, ok := raw.Export().(map[string]interface{})
	if !ok {
		return scripthost.Options{}, wrkrerr.InvalidOptions("options export must be an object")
	}
	return decodeOptions(native)
}

// Setup invokes module.exports.setup(), if present.
func (h *Host) Setup() error {
	return h.callVoid("setup")
}

// Teardown invokes module.exports.teardown(), if present.
func (h *Host) Teardown() error {
	return h.callVoid("teardown")
}

func (h *Host) callVoid(name string) error {
	fnVal := h.exportsObject().Get(name)
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil
	}
	if _, err := fn(goja.Undefined()); err != nil {
		return wrkrerr.ScriptError(err)
	}
	return nil
}

// Iteration invokes the named exported function for one VU iteration
// (§4.4, §6).
func (h *Host) Iteration(fnName string, vuID int) scripthost.IterationResult {
	if fnName == "" {
		fnName = "default"
	}
	fnVal := h.exportsObject().Get(fnName)
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return scripthost.IterationResult{Err: wrkrerr.InvalidUsage("script has no exported function %q", fnName)}
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return scripthost.IterationResult{Err: wrkrerr.InvalidUsage("exported %q is not a function", fnName)}
	}
	if _, err := fn(goja.Undefined(), h.vm.ToValue(vuID)); err != nil {
		return scripthost.IterationResult{Err: wrkrerr.ScriptError(err)}
	}
	return scripthost.IterationResult{}
}

// HandleSummary invokes module.exports.handleSummary(summary), if present
// (§6).
func (h *Host) HandleSummary(summary value.Value) (map[string][]byte, error) {
	fnVal := h.exportsObject().Get("handleSummary")
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil, nil
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, nil
	}
	result, err := fn(goja.Undefined(), fromValue(h.vm, summary))
	if err != nil {
		return nil, wrkrerr.ScriptError(err)
	}
	native, ok := result.Export().(map[string]interface{})
	if !ok {
		return nil, nil
	}
	out := make(map[string][]byte, len(native))
	for k, v := range native {
		switch vv := v.(type) {
		case string:
			out[k] = []byte(vv)
		case []byte:
			out[k] = vv
		default:
			out[k] = []byte(fmt.Sprintf("%v", vv))
		}
	}
	return out, nil
}

// Close releases the underlying gRPC client connections this host opened.
func (h *Host) Close() error {
	for _, c := range h.grpcClients {
		c.Close()
	}
	return nil
}
