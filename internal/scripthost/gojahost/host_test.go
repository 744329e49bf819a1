package gojahost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogcio/wrkr/infrastructure/logging"
	"github.com/nogcio/wrkr/internal/grpcclient"
	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/shared"
	"github.com/nogcio/wrkr/internal/value"
	"github.com/nogcio/wrkr/internal/vu"
)

func newTestDeps(m *metrics.Engine) Deps {
	return Deps{
		Metrics:     m,
		Shared:      shared.New(),
		Descriptors: map[string]*grpcclient.Descriptors{},
		Env:         map[string]string{"STAGE": "test"},
		Logger:      logging.NewFromEnv("gojahost-test"),
	}
}

const optionsScript = `
module.exports.options = {
  vus: 3,
  duration: "30s",
  thresholds: {
    http_req_duration: ["p(95)<500"],
  },
  scenarios: {
    main: {
      executor: "ramping-vus",
      exec: "run",
      start_vus: 1,
      stages: [
        { duration: "10s", target: 5 },
      ],
    },
  },
};
module.exports.run = function(id) {};
`

func TestParseOptionsDecodesTopLevelAndScenarios(t *testing.T) {
	runner := &vu.Runner{ID: -1, Scenario: "__options__"}
	host, err := New(optionsScript, "options.js", runner, newTestDeps(nil))
	require.NoError(t, err)
	defer host.Close()

	opts, err := host.ParseOptions("options.js")
	require.NoError(t, err)

	assert.Equal(t, 3, opts.TopLevel.VUs)
	assert.Equal(t, "30s", opts.TopLevel.Duration)
	assert.Equal(t, []string{"p(95)<500"}, opts.TopLevel.Thresholds["http_req_duration"])

	require.Len(t, opts.Scenarios, 1)
	sc := opts.Scenarios[0]
	assert.Equal(t, "main", sc.Name)
	assert.Equal(t, "ramping-vus", sc.Executor)
	assert.Equal(t, "run", sc.ExecFn)
	assert.Equal(t, 1, sc.StartVUs)
	require.Len(t, sc.Stages, 1)
	assert.Equal(t, "10s", sc.Stages[0].Duration)
	assert.Equal(t, 5.0, sc.Stages[0].Target)
}

const iterationScript = `
module.exports.options = { vus: 1, iterations: 1 };
module.exports.default = function(id) {
  check.check(id, {
    "id is a number": (v) => typeof v === "number",
    "id is negative": (v) => v < 0,
  });
};
`

func TestIterationRunsExportedFunctionAndRecordsChecks(t *testing.T) {
	m := metrics.New()
	runner := &vu.Runner{ID: 7, Metrics: m, Scenario: "main"}
	host, err := New(iterationScript, "iter.js", runner, newTestDeps(m))
	require.NoError(t, err)
	defer host.Close()

	result := host.Iteration("default", 7)
	require.NoError(t, result.Err)

	report := m.Snapshot()
	var sawPass, sawFail bool
	for _, s := range report.Series {
		if s.Name != metrics.MetricChecks && s.Name != metrics.MetricChecksFailed {
			continue
		}
		check, ok := s.Tags.Get(metrics.TagCheck)
		require.True(t, ok)
		switch check.Canonical() {
		case "id is a number":
			sawPass = true
		case "id is negative":
			sawFail = true
		}
	}
	assert.True(t, sawPass, "passing check should record a checks Rate sample")
	assert.True(t, sawFail, "failing check should record a checks_failed Counter sample")
}

const scriptErrorScript = `
module.exports.default = function(id) {
  throw new Error("boom");
};
`

func TestIterationReturnsScriptErrorWithoutPanicking(t *testing.T) {
	m := metrics.New()
	runner := &vu.Runner{ID: 1, Metrics: m, Scenario: "main"}
	host, err := New(scriptErrorScript, "err.js", runner, newTestDeps(m))
	require.NoError(t, err)
	defer host.Close()

	result := host.Iteration("default", 1)
	assert.Error(t, result.Err)
}

func TestIterationRejectsUnknownExportedFunction(t *testing.T) {
	m := metrics.New()
	runner := &vu.Runner{ID: 1, Metrics: m, Scenario: "main"}
	host, err := New(`module.exports.default = function(id) {};`, "noop.js", runner, newTestDeps(m))
	require.NoError(t, err)
	defer host.Close()

	result := host.Iteration("missing", 1)
	assert.Error(t, result.Err)
}

const setupTeardownScript = `
var ran = [];
module.exports.setup = function() { ran.push("setup"); };
module.exports.teardown = function() { ran.push("teardown"); };
module.exports.default = function(id) {};
`

func TestSetupAndTeardownRunWhenExported(t *testing.T) {
	runner := &vu.Runner{ID: 0, Scenario: "__control__"}
	host, err := New(setupTeardownScript, "lifecycle.js", runner, newTestDeps(nil))
	require.NoError(t, err)
	defer host.Close()

	assert.NoError(t, host.Setup())
	assert.NoError(t, host.Teardown())
}

func TestSetupIsANoOpWhenNotExported(t *testing.T) {
	runner := &vu.Runner{ID: 0, Scenario: "__control__"}
	host, err := New(`module.exports.default = function(id) {};`, "nolifecycle.js", runner, newTestDeps(nil))
	require.NoError(t, err)
	defer host.Close()

	assert.NoError(t, host.Setup())
	assert.NoError(t, host.Teardown())
}

const handleSummaryScript = `
module.exports.default = function(id) {};
module.exports.handleSummary = function(summary) {
  return { "stdout": "done: " + summary.requests };
};
`

func TestHandleSummaryReturnsScriptProducedFiles(t *testing.T) {
	runner := &vu.Runner{ID: 0, Scenario: "__control__"}
	host, err := New(handleSummaryScript, "summary.js", runner, newTestDeps(nil))
	require.NoError(t, err)
	defer host.Close()

	summaryMap := value.NewMap()
	summaryMap.Set(value.StringKey("requests"), value.I64(42))
	summaryVal := value.FromMap(summaryMap)

	files, err := host.HandleSummary(summaryVal)
	require.NoError(t, err)
	require.Contains(t, files, "stdout")
	assert.Equal(t, "done: 42", string(files["stdout"]))
}

func TestHandleSummaryReturnsNilWhenNotExported(t *testing.T) {
	runner := &vu.Runner{ID: 0, Scenario: "__control__"}
	host, err := New(`module.exports.default = function(id) {};`, "nosummary.js", runner, newTestDeps(nil))
	require.NoError(t, err)
	defer host.Close()

	files, err := host.HandleSummary(value.Null())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestEnvModuleExposesConfiguredVariables(t *testing.T) {
	runner := &vu.Runner{ID: 0, Scenario: "__control__"}
	script := `
module.exports.seen = null;
module.exports.default = function(id) { module.exports.seen = env.STAGE; };
`
	host, err := New(script, "env.js", runner, newTestDeps(nil))
	require.NoError(t, err)
	defer host.Close()

	result := host.Iteration("default", 0)
	require.NoError(t, result.Err)
	assert.Equal(t, "test", host.exportsObject().Get("seen").String())
}
