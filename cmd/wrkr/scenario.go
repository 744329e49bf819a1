package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nogcio/wrkr/infrastructure/logging"
	"github.com/nogcio/wrkr/internal/config"
	"github.com/nogcio/wrkr/internal/grpcclient"
	"github.com/nogcio/wrkr/internal/scripthost/gojahost"
	"github.com/nogcio/wrkr/internal/shared"
	"github.com/nogcio/wrkr/internal/vu"
)

func handleScenario(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 || args[0] != "export" {
		fmt.Println("Usage:\n  wrkr scenario export <script> [--out FILE]")
		return 30, fmt.Errorf("scenario: unknown subcommand")
	}
	args = args[1:]
	if len(args) == 0 {
		return 30, fmt.Errorf("scenario export: script path required")
	}
	scriptPath := args[0]

	fs := flag.NewFlagSet("scenario export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var out string
	fs.StringVar(&out, "out", "", "write resolved YAML to this file instead of stdout")
	if err := fs.Parse(args[1:]); err != nil {
		return 30, err
	}

	scriptSource, err := os.ReadFile(scriptPath)
	if err != nil {
		return 30, fmt.Errorf("scenario export: %w", err)
	}

	logger := logging.NewFromEnv("wrkr")
	deps := gojahost.Deps{
		Descriptors: map[string]*grpcclient.Descriptors{},
		Env:         map[string]string{},
		Logger:      logger,
		Shared:      shared.New(),
	}
	probe := &vu.Runner{ID: -1, Scenario: "__options__"}
	host, err := gojahost.New(string(scriptSource), scriptPath, probe, deps)
	if err != nil {
		return 30, err
	}
	defer host.Close()

	opts, err := host.ParseOptions(scriptPath)
	if err != nil {
		return 30, err
	}

	doc := documentFromOptions(opts)
	data, err := config.Export(doc)
	if err != nil {
		return 40, err
	}

	if out == "" {
		fmt.Print(string(data))
		return 0, nil
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return 40, err
	}
	return 0, nil
}
