package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
)

const starterScript = `// default is the scenario's exported iteration function.
module.exports.default = function () {
  const res = http.get("https://test.k6.io/");
  check.check(res, {
    "status is 200": (r) => r.status === 200,
  });
};

module.exports.options = {
  vus: 1,
  duration: "10s",
};
`

const vscodeSettings = `{
  "files.associations": {
    "*.wrkr.js": "javascript"
  }
}
`

// handleInit scaffolds a starter script (and optionally an editor settings
// file); it is an out-of-core convenience named in §6, not a modeled
// engine operation.
func handleInit(_ context.Context, args []string) (int, error) {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vscode bool
	fs.BoolVar(&vscode, "vscode", false, "also write .vscode/settings.json")
	if err := fs.Parse(args); err != nil {
		return 30, err
	}

	const scriptName = "script.js"
	if _, err := os.Stat(scriptName); err == nil {
		return 30, fmt.Errorf("init: %s already exists", scriptName)
	}
	if err := os.WriteFile(scriptName, []byte(starterScript), 0o644); err != nil {
		return 40, err
	}
	fmt.Printf("wrote %s\n", scriptName)

	if vscode {
		if err := os.MkdirAll(".vscode", 0o755); err != nil {
			return 40, err
		}
		if err := os.WriteFile(".vscode/settings.json", []byte(vscodeSettings), 0o644); err != nil {
			return 40, err
		}
		fmt.Println("wrote .vscode/settings.json")
	}
	return 0, nil
}
