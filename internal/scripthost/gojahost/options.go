package gojahost

import (
	"fmt"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/scripthost"
)

// decodeOptions converts the exported `options` object's native Go
// representation into scripthost.Options, accepting both camelCase and
// snake_case keys (§6 scenario YAML alias canonicalization applies equally
// to script-declared options).
func decodeOptions(native map[string]interface{}) (scripthost.Options, error) {
	opts := scripthost.Options{}

	if vus, ok := numKey(native, "vus"); ok {
		opts.TopLevel.VUs = int(vus)
	}
	if dur, ok := strKey(native, "duration"); ok {
		opts.TopLevel.Duration = dur
	}
	if iters, ok := numKey(native, "iterations"); ok {
		opts.TopLevel.Iterations = int64(iters)
	}
	if th, ok := native["thresholds"].(map[string]interface{}); ok {
		opts.TopLevel.Thresholds = make(map[string][]string, len(th))
		for metric, exprs := range th {
			list, ok := exprs.([]interface{})
			if !ok {
				return opts, wrkrerr.InvalidOptions("thresholds.%s must be an array of expression strings", metric)
			}
			strs := make([]string, len(list))
			for i, e := range list {
				s, ok := e.(string)
				if !ok {
					return opts, wrkrerr.InvalidOptions("thresholds.%s[%d] must be a string", metric, i)
				}
				strs[i] = s
			}
			opts.TopLevel.Thresholds[metric] = strs
		}
	}

	scenariosRaw, ok := native["scenarios"].(map[string]interface{})
	if !ok {
		return opts, nil
	}
	for name, raw := range scenariosRaw {
		sm, ok := raw.(map[string]interface{})
		if !ok {
			return opts, wrkrerr.InvalidOptions("scenario %q must be an object", name)
		}
		scenario, err := decodeScenario(name, sm)
		if err != nil {
			return opts, err
		}
		opts.Scenarios = append(opts.Scenarios, scenario)
	}
	return opts, nil
}

func decodeScenario(name string, m map[string]interface{}) (scripthost.ScenarioSpec, error) {
	s := scripthost.ScenarioSpec{Name: name}
	s.Executor, _ = strKey(m, "executor")
	if s.Executor == "" {
		return s, wrkrerr.InvalidOptions("scenario %q missing executor", name)
	}
	s.ExecFn, _ = strKey(m, "exec")
	if s.ExecFn == "" {
		s.ExecFn = "default"
	}
	if v, ok := numKey(m, "vus"); ok {
		s.VUs = int(v)
	}
	s.Duration, _ = strKey(m, "duration")
	if v, ok := numKey(m, "iterations"); ok {
		s.Iterations = int64(v)
	}
	if v, ok := numKey(m, "startVUs", "start_vus"); ok {
		s.StartVUs = int(v)
	}
	if v, ok := numKey(m, "startRate", "start_rate"); ok {
		s.StartRate = v
	}
	s.TimeUnit, _ = strKey(m, "timeUnit", "time_unit")
	if v, ok := numKey(m, "preAllocatedVUs", "pre_allocated_vus"); ok {
		s.PreAllocatedVUs = int(v)
	}
	if v, ok := numKey(m, "maxVUs", "max_vus"); ok {
		s.MaxVUs = int(v)
	}
	if stages, ok := m["stages"].([]interface{}); ok {
		for _, raw := range stages {
			sm, ok := raw.(map[string]interface{})
			if !ok {
				return s, wrkrerr.InvalidOptions("scenario %q has a malformed stage", name)
			}
			stage := scripthost.StageSpec{}
			stage.Duration, _ = strKey(sm, "duration")
			if v, ok := numKey(sm, "target"); ok {
				stage.Target = v
			}
			s.Stages = append(s.Stages, stage)
		}
	}
	if tags, ok := m["tags"].(map[string]interface{}); ok {
		s.Tags = make(map[string]string, len(tags))
		for k, v := range tags {
			s.Tags[k] = fmt.Sprintf("%v", v)
		}
	}
	return s, nil
}

func strKey(m map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func numKey(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch n := v.(type) {
			case int64:
				return float64(n), true
			case float64:
				return n, true
			}
		}
	}
	return 0, false
}
