package engine

import (
	"time"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/config"
	"github.com/nogcio/wrkr/internal/executor"
)

// buildExecutor maps a parsed Scenario's executor kind and duration-string
// fields onto the matching concrete scheduler state machine (§4.3).
func buildExecutor(sc config.Scenario) (executor.Executor, error) {
	switch sc.Executor {
	case "constant-vus", "":
		var dur time.Duration
		if sc.Duration != "" {
			var err error
			dur, err = config.ParseDuration(sc.Duration)
			if err != nil {
				return nil, wrkrerr.InvalidOptions("scenario %q: %s", sc.Name, err)
			}
		}
		if dur == 0 && sc.Iterations == 0 {
			return nil, wrkrerr.InvalidOptions("scenario %q: constant-vus needs duration or iterations", sc.Name)
		}
		return &executor.ConstantVUs{
			VUs:        sc.VUs,
			Duration:   dur,
			Iterations: sc.Iterations,
		}, nil

	case "ramping-vus":
		stages, err := buildStages(sc.Stages)
		if err != nil {
			return nil, wrkrerr.InvalidOptions("scenario %q: %s", sc.Name, err)
		}
		return &executor.RampingVUs{
			StartVUs: sc.StartVUs,
			Stages:   stages,
		}, nil

	case "ramping-arrival-rate":
		stages, err := buildStages(sc.Stages)
		if err != nil {
			return nil, wrkrerr.InvalidOptions("scenario %q: %s", sc.Name, err)
		}
		timeUnit := time.Second
		if sc.TimeUnit != "" {
			var err error
			timeUnit, err = config.ParseDuration(sc.TimeUnit)
			if err != nil {
				return nil, wrkrerr.InvalidOptions("scenario %q: timeUnit: %s", sc.Name, err)
			}
		}
		return &executor.RampingArrivalRate{
			StartRate:       sc.StartRate,
			TimeUnit:        timeUnit,
			PreAllocatedVUs: sc.PreAllocatedVUs,
			MaxVUs:          sc.MaxVUs,
			Stages:          stages,
		}, nil

	default:
		return nil, wrkrerr.InvalidOptions("scenario %q: unknown executor %q", sc.Name, sc.Executor)
	}
}

func buildStages(in []config.Stage) ([]executor.Stage, error) {
	out := make([]executor.Stage, 0, len(in))
	for _, s := range in {
		dur, err := config.ParseDuration(s.Duration)
		if err != nil {
			return nil, err
		}
		out = append(out, executor.Stage{Duration: dur, Target: s.Target})
	}
	return out, nil
}
