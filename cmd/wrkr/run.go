package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nogcio/wrkr/infrastructure/logging"
	"github.com/nogcio/wrkr/infrastructure/ratelimit"
	"github.com/nogcio/wrkr/infrastructure/runtime"
	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/config"
	"github.com/nogcio/wrkr/internal/engine"
	"github.com/nogcio/wrkr/internal/grpcclient"
	"github.com/nogcio/wrkr/internal/httpclient"
	wrkrmetrics "github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/output"
	"github.com/nogcio/wrkr/internal/scripthost"
	"github.com/nogcio/wrkr/internal/scripthost/gojahost"
	"github.com/nogcio/wrkr/internal/shared"
	"github.com/nogcio/wrkr/internal/statsserver"
	"github.com/nogcio/wrkr/internal/vu"
)

// envFlags collects repeated `--env K=V` flags into a map.
type envFlags map[string]string

func (e envFlags) String() string { return "" }

func (e envFlags) Set(raw string) error {
	k, v, ok := strings.Cut(raw, "=")
	if !ok {
		return fmt.Errorf("--env expects KEY=VALUE, got %q", raw)
	}
	e[strings.TrimSpace(k)] = v
	return nil
}

type runFlags struct {
	vus        int
	duration   string
	iterations int64
	env        envFlags
	output     string
	scenario   string
	statsAddr  string
	progress   string
	quiet      bool
}

func handleRun(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return 30, fmt.Errorf("run: script path required")
	}
	scriptPath := args[0]

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := runFlags{env: envFlags{}}
	fs.IntVar(&flags.vus, "vus", 0, "virtual users")
	fs.StringVar(&flags.duration, "duration", "", "run duration")
	var iterations int
	fs.IntVar(&iterations, "iterations", 0, "total iterations")
	fs.Var(flags.env, "env", "script environment variable KEY=VALUE (repeatable)")
	fs.StringVar(&flags.output, "output", "human", "output format: human|json")
	fs.StringVar(&flags.scenario, "scenario", "", "scenario name or YAML path")
	fs.StringVar(&flags.statsAddr, "stats-addr", "", "optional /healthz and /metrics listen address")
	fs.StringVar(&flags.progress, "progress-interval", "", "Progress line cadence, e.g. 500ms (default 1s)")
	fs.BoolVar(&flags.quiet, "quiet", false, "suppress periodic Progress lines, still emit the final Summary")
	if err := fs.Parse(args[1:]); err != nil {
		return 30, err
	}
	flags.iterations = int64(iterations)

	// These three have no scenario-source tier to layer under, so CLI flag
	// (already in flags.X) beats a WRKR_* env var beats the built-in
	// fallback — the same precedence infrastructure/runtime's Resolve*
	// helpers apply to standalone service config knobs.
	flags.statsAddr = runtime.ResolveString(flags.statsAddr, "WRKR_STATS_ADDR", "")
	flags.progress = runtime.ResolveString(flags.progress, "WRKR_PROGRESS_INTERVAL", "")
	flags.quiet = flags.quiet || runtime.ResolveBool(false, "WRKR_QUIET")

	scriptSource, err := os.ReadFile(scriptPath)
	if err != nil {
		return 30, fmt.Errorf("run: %w", err)
	}

	logger := logging.NewFromEnv("wrkr")
	metricsEngine := wrkrmetrics.New()
	sharedStore := shared.New()
	httpClient := httpclient.New()
	limiter := ratelimit.New(ratelimit.DefaultConfig())

	deps := gojahost.Deps{
		Metrics:      metricsEngine,
		Shared:       sharedStore,
		HTTP:         httpClient,
		Descriptors:  map[string]*grpcclient.Descriptors{},
		Env:          flags.env,
		Logger:       logger,
		DebugLimiter: limiter,
	}

	newHost := func(r *vu.Runner) (scripthost.Host, error) {
		return gojahost.New(string(scriptSource), scriptPath, r, deps)
	}

	doc, err := resolveRunDocument(newHost, scriptPath, flags)
	if err != nil {
		return 30, err
	}

	var sink output.Writer
	switch flags.output {
	case "human":
		sink = output.NewHumanWriter(os.Stdout)
	case "json", "":
		sink = output.New(os.Stdout, logger)
	default:
		return 30, fmt.Errorf("run: unknown --output %q", flags.output)
	}
	if flags.quiet {
		sink = quietProgress{Writer: sink}
	}
	defer sink.Close()

	eng := engine.New(newHost, metricsEngine, sharedStore, sink, logger)
	if flags.progress != "" {
		if d, err := config.ParseDuration(flags.progress); err == nil {
			eng.SetProgressInterval(d)
		}
	}

	if flags.statsAddr != "" {
		srv := statsserver.New(statsserver.Options{
			Phase:    eng.Phase,
			Snapshot: eng.Snapshot,
			Logger:   logger,
		})
		go func() {
			if err := srv.Run(ctx, flags.statsAddr); err != nil {
				logger.WithError(err).Error("stats server stopped")
			}
		}()
	}

	result, err := eng.Run(ctx, doc)
	if err != nil {
		kind, ok := wrkrerr.KindOf(err)
		if ok {
			return kind.ExitCode(), err
		}
		return wrkrerr.KindFatal.ExitCode(), err
	}
	return result.ExitCode, nil
}

// resolveRunDocument reads the script's exported options via a throwaway
// control host, folds them into a config.Document and layers CLI/env
// overrides on top, or loads an explicit scenario YAML file when --scenario
// names a .yaml/.yml path (§4.10).
func resolveRunDocument(newHost engine.HostFactory, scriptPath string, flags runFlags) (config.Document, error) {
	if strings.HasSuffix(flags.scenario, ".yaml") || strings.HasSuffix(flags.scenario, ".yml") {
		data, err := os.ReadFile(flags.scenario)
		if err != nil {
			return config.Document{}, err
		}
		doc, err := config.Load(data)
		if err != nil {
			return config.Document{}, err
		}
		return applyCLIOverrides(doc, flags), nil
	}

	probe := &vu.Runner{ID: -1, Metrics: nil, Scenario: "__options__"}
	host, err := newHost(probe)
	if err != nil {
		return config.Document{}, err
	}
	defer host.Close()

	opts, err := host.ParseOptions(scriptPath)
	if err != nil {
		return config.Document{}, err
	}

	doc := documentFromOptions(opts)
	if flags.scenario != "" {
		doc = selectScenario(doc, flags.scenario)
	}
	return applyCLIOverrides(doc, flags), nil
}

// quietProgress wraps an output.Writer so --quiet/WRKR_QUIET suppresses
// periodic Progress lines while still passing Event and Summary through.
type quietProgress struct {
	output.Writer
}

func (quietProgress) Progress(output.Progress) {}

// selectScenario narrows a multi-scenario document down to the one named
// scenario, when --scenario names a scenario instead of a YAML path.
func selectScenario(doc config.Document, name string) config.Document {
	for _, sc := range doc.Scenarios {
		if sc.Name == name {
			doc.Scenarios = []config.Scenario{sc}
			return doc
		}
	}
	return doc
}
