package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationSuffixes(t *testing.T) {
	cases := map[string]time.Duration{
		"500ns": 500 * time.Nanosecond,
		"250us": 250 * time.Microsecond,
		"250µs": 250 * time.Microsecond,
		"10ms":  10 * time.Millisecond,
		"30s":   30 * time.Second,
		"2m":    2 * time.Minute,
		"1h":    time.Hour,
		"5":     5 * time.Second, // bare number is seconds
	}
	for raw, want := range cases {
		got, err := ParseDuration(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseDurationRejectsOutOfRange(t *testing.T) {
	_, err := ParseDuration("25h")
	assert.Error(t, err)

	_, err = ParseDuration("0ns")
	assert.Error(t, err)
}

func TestParseDurationRejectsEmptyAndGarbage(t *testing.T) {
	_, err := ParseDuration("")
	assert.Error(t, err)

	_, err = ParseDuration("not-a-duration")
	assert.Error(t, err)
}

func TestFormatDurationRoundTrips(t *testing.T) {
	cases := []string{"1h", "2m", "30s", "10ms", "250µs", "500ns"}
	for _, raw := range cases {
		d, err := ParseDuration(raw)
		require.NoError(t, err, raw)
		formatted := FormatDuration(d)
		reparsed, err := ParseDuration(formatted)
		require.NoError(t, err, formatted)
		assert.Equal(t, d, reparsed, raw)
	}
}

func TestLoadCanonicalizesSnakeCaseKeys(t *testing.T) {
	doc, err := Load([]byte(`
vus: 5
duration: 30s
scenarios:
  - name: ramp
    executor: ramping-vus
    start_vus: 1
    pre_allocated_vus: 2
    max_vus: 10
    exec_fn: rampFn
    stages:
      - duration: 10s
        target: 5
`))
	require.NoError(t, err)
	require.Len(t, doc.Scenarios, 1)

	sc := doc.Scenarios[0]
	assert.Equal(t, 1, sc.StartVUs)
	assert.Equal(t, 2, sc.PreAllocatedVUs)
	assert.Equal(t, 10, sc.MaxVUs)
	assert.Equal(t, "rampFn", sc.ExecFn)
	require.Len(t, sc.Stages, 1)
	assert.Equal(t, "10s", sc.Stages[0].Duration)
	assert.Equal(t, 5.0, sc.Stages[0].Target)
}

func TestLoadFlatScenarioWithoutScenariosList(t *testing.T) {
	doc, err := Load([]byte(`
vus: 2
duration: 10s
executor: constant-vus
exec_fn: default
`))
	require.NoError(t, err)
	require.Len(t, doc.Scenarios, 1)
	assert.Equal(t, "constant-vus", doc.Scenarios[0].Executor)
	assert.Equal(t, "default", doc.Scenarios[0].ExecFn)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	_, err := Load([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestExportRoundTripsThroughLoad(t *testing.T) {
	doc := Document{
		RunDefaults: RunDefaults{
			VUs:        3,
			Duration:   "30s",
			Thresholds: map[string][]string{"http_req_duration": {"p(95)<500"}},
		},
		Scenarios: []Scenario{
			{
				Name:     "main",
				Executor: "constant-vus",
				ExecFn:   "default",
				VUs:      3,
				Duration: "30s",
				Tags:     map[string]string{"team": "checkout"},
			},
		},
	}

	data, err := Export(doc)
	require.NoError(t, err)

	reloaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, doc.VUs, reloaded.VUs)
	require.Len(t, reloaded.Scenarios, 1)
	assert.Equal(t, doc.Scenarios[0].Name, reloaded.Scenarios[0].Name)
	assert.Equal(t, doc.Scenarios[0].Tags, reloaded.Scenarios[0].Tags)
}
