package main

import (
	"os"
	"strings"

	"github.com/nogcio/wrkr/infrastructure/runtime"
	"github.com/nogcio/wrkr/internal/config"
	"github.com/nogcio/wrkr/internal/scripthost"
)

// documentFromOptions converts a script's parse_options() result into the
// same config.Document shape scenario YAML loads into, so the rest of the
// CLI's merge/override logic (§4.10) treats both sources identically.
func documentFromOptions(opts scripthost.Options) config.Document {
	doc := config.Document{
		RunDefaults: config.RunDefaults{
			VUs:        opts.TopLevel.VUs,
			Duration:   opts.TopLevel.Duration,
			Iterations: opts.TopLevel.Iterations,
			Thresholds: opts.TopLevel.Thresholds,
		},
	}
	for _, sc := range opts.Scenarios {
		doc.Scenarios = append(doc.Scenarios, config.Scenario{
			Name:            sc.Name,
			Executor:        sc.Executor,
			ExecFn:          sc.ExecFn,
			VUs:             sc.VUs,
			Duration:        sc.Duration,
			Iterations:      sc.Iterations,
			StartVUs:        sc.StartVUs,
			StartRate:       sc.StartRate,
			TimeUnit:        sc.TimeUnit,
			PreAllocatedVUs: sc.PreAllocatedVUs,
			MaxVUs:          sc.MaxVUs,
			Stages:          stagesFromSpec(sc.Stages),
			Tags:            sc.Tags,
		})
	}
	return doc
}

// envOverrideInt applies an env-var override on top of a scenario-supplied
// value: precedence here is env > cfgValue. CLI flags are not part of
// cfgValue; applyCLIOverrides applies them after this runs, so they win over
// both (§4.10 "CLI flags > environment > scenario source > built-in defaults").
func envOverrideInt(cfgValue int, envKey string) int {
	if n, ok := runtime.ParseEnvInt(envKey); ok && n > 0 {
		return n
	}
	return cfgValue
}

func envOverrideString(cfgValue, envKey string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return cfgValue
}

func envOverrideInt64(cfgValue int64, envKey string) int64 {
	if n, ok := runtime.ParseEnvInt(envKey); ok && n > 0 {
		return int64(n)
	}
	return cfgValue
}

func stagesFromSpec(in []scripthost.StageSpec) []config.Stage {
	if in == nil {
		return nil
	}
	out := make([]config.Stage, 0, len(in))
	for _, s := range in {
		out = append(out, config.Stage{Duration: s.Duration, Target: s.Target})
	}
	return out
}

// applyCLIOverrides layers CLI-flag and environment-variable overrides onto
// doc per §4.10's precedence: CLI flags > environment (WRKR_VUS etc.) >
// scenario source (YAML or script options) > built-in defaults. Only the
// flat run-level fields are overridable this way; per-scenario fields are
// only ever set by the scenario source itself.
func applyCLIOverrides(doc config.Document, flags runFlags) config.Document {
	// Env overrides the scenario source first; CLI flags are applied last
	// so they win over both (§4.10).
	doc.VUs = envOverrideInt(doc.VUs, "WRKR_VUS")
	doc.Duration = envOverrideString(doc.Duration, "WRKR_DURATION")
	doc.Iterations = envOverrideInt64(doc.Iterations, "WRKR_ITERATIONS")

	if flags.vus > 0 {
		doc.VUs = flags.vus
	}
	if flags.duration != "" {
		doc.Duration = flags.duration
	}
	if flags.iterations > 0 {
		doc.Iterations = flags.iterations
	}

	// A flat single-scenario document (no explicit scenarios: list) gets
	// the resolved top-level vus/duration/iterations as its implicit
	// scenario's own fields, since internal/engine always drives named
	// scenarios (§6 "a document with no scenarios: list is one implicit
	// scenario using the flat fields").
	if len(doc.Scenarios) == 0 {
		doc.Scenarios = []config.Scenario{{
			Name:       "default",
			Executor:   "constant-vus",
			ExecFn:     "default",
			VUs:        doc.VUs,
			Duration:   doc.Duration,
			Iterations: doc.Iterations,
		}}
	}
	return doc
}
