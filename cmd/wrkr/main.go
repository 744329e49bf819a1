// Command wrkr is the CLI entrypoint (§6): `run` drives a script to
// completion, `scenario export` resolves a script's options without
// executing it, `init` scaffolds a starter project.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	code, err := run(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

func run(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		printRootUsage()
		return 30, errors.New("no command specified")
	}

	switch args[0] {
	case "run":
		return handleRun(ctx, args[1:])
	case "scenario":
		return handleScenario(ctx, args[1:])
	case "init":
		return handleInit(ctx, args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return 0, nil
	default:
		printRootUsage()
		return 30, fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println(`wrkr - scriptable load generator

Usage:
  wrkr run <script> [--vus N] [--duration D] [--iterations N] [--env K=V ...] [--output human|json] [--scenario NAME|PATH.yaml] [--stats-addr ADDR]
  wrkr scenario export <script> [--out FILE]
  wrkr init [--vscode]

Exit codes:
  0 success, 10 checks failed, 11 thresholds failed, 12 both,
  20 script error, 30 invalid CLI/config, 40 internal error.`)
}
