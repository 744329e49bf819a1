package config

// Stage is one (duration, target) pair in a ramping executor (§3, §4.3).
type Stage struct {
	Duration string  `yaml:"duration"`
	Target   float64 `yaml:"target"`
}

// Scenario mirrors the §3 Scenario data model as loaded from YAML or a
// script's options export.
type Scenario struct {
	Name            string            `yaml:"name"`
	Executor        string            `yaml:"executor"`
	ExecFn          string            `yaml:"exec"`
	VUs             int               `yaml:"vus,omitempty"`
	Duration        string            `yaml:"duration,omitempty"`
	Iterations      int64             `yaml:"iterations,omitempty"`
	StartVUs        int               `yaml:"startVUs,omitempty"`
	StartRate       float64           `yaml:"startRate,omitempty"`
	TimeUnit        string            `yaml:"timeUnit,omitempty"`
	PreAllocatedVUs int               `yaml:"preAllocatedVUs,omitempty"`
	MaxVUs          int               `yaml:"maxVUs,omitempty"`
	Stages          []Stage           `yaml:"stages,omitempty"`
	Tags            map[string]string `yaml:"tags,omitempty"`
}

// RunDefaults is the top-level run configuration (§6 flat YAML fields).
type RunDefaults struct {
	VUs        int                 `yaml:"vus,omitempty"`
	Duration   string              `yaml:"duration,omitempty"`
	Iterations int64               `yaml:"iterations,omitempty"`
	Output     string              `yaml:"output,omitempty"`
	Thresholds map[string][]string `yaml:"thresholds,omitempty"`
}

// Document is the full parsed scenario YAML: either a single flat scenario
// (RunDefaults fields plus exactly one implicit scenario) or an explicit
// `scenarios: [...]` list (§6).
type Document struct {
	RunDefaults `yaml:",inline"`
	Scenarios   []Scenario `yaml:"scenarios,omitempty"`
}
