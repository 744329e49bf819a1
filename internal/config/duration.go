// Package config implements RunDefaults/Scenario loading (§6): scenario
// YAML with camelCase/snake_case alias canonicalization, and the duration
// string grammar shared by the CLI, scenario YAML and scripted options.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
)

// MinDuration and MaxDuration bound every parsed duration (§6: "Range: 1
// µs ... 24 h").
const (
	MinDuration = time.Microsecond
	MaxDuration = 24 * time.Hour
)

var durationSuffixes = []struct {
	suffix string
	unit   time.Duration
}{
	{"ns", time.Nanosecond},
	{"us", time.Microsecond},
	{"µs", time.Microsecond}, // µs
	{"ms", time.Millisecond},
	{"s", time.Second},
	{"m", time.Minute},
	{"h", time.Hour},
}

// ParseDuration parses a decimal number with one of the §6 suffixes
// (ns, us, µs, ms, s, m, h); a bare number is seconds. The result is
// bounds-checked to [1µs, 24h].
func ParseDuration(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, wrkrerr.InvalidOptions("empty duration")
	}

	for _, suf := range durationSuffixes {
		if strings.HasSuffix(trimmed, suf.suffix) {
			numPart := strings.TrimSuffix(trimmed, suf.suffix)
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, wrkrerr.InvalidOptions("invalid duration %q: %s", s, err)
			}
			return boundsCheck(s, time.Duration(n*float64(suf.unit)))
		}
	}

	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, wrkrerr.InvalidOptions("invalid duration %q: %s", s, err)
	}
	return boundsCheck(s, time.Duration(n*float64(time.Second)))
}

func boundsCheck(original string, d time.Duration) (time.Duration, error) {
	if d < MinDuration || d > MaxDuration {
		return 0, wrkrerr.InvalidOptions("duration %q out of range [%s, %s]", original, MinDuration, MaxDuration)
	}
	return d, nil
}

// FormatDuration renders d back into the shortest §6 suffix form, used by
// `scenario export` to round-trip durations (§8 invariant 6).
func FormatDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	case d%time.Millisecond == 0:
		return fmt.Sprintf("%dms", d/time.Millisecond)
	case d%time.Microsecond == 0:
		return fmt.Sprintf("%dµs", d/time.Microsecond)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
