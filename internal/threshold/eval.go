package threshold

import (
	"fmt"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
	"github.com/nogcio/wrkr/internal/metrics"
)

// Verdict is the evaluated outcome of one threshold (§4.7: "{pass|fail,
// observed, rhs}").
type Verdict struct {
	Threshold Threshold
	Pass      bool
	Observed  float64
	RHS       float64
}

// Evaluate collects every series matching t's key from engine, merges them
// per kind, applies the aggregation and compares against RHS. It returns a
// wrkrerr InvalidThreshold error when the selector matches no series, or
// when the aggregation doesn't fit the matched series' kind.
func Evaluate(engine *metrics.Engine, t Threshold) (Verdict, error) {
	series := engine.Matching(t.Metric, t.Selector)
	if len(series) == 0 {
		return Verdict{}, wrkrerr.InvalidThreshold("threshold %q: no series matched %q", t.Raw, t.Metric)
	}

	kind := series[0].Kind
	for _, s := range series[1:] {
		if s.Kind != kind {
			return Verdict{}, wrkrerr.InvalidThreshold("threshold %q: matched series have mixed kinds", t.Raw)
		}
	}

	observed, err := aggregate(kind, series, t.Expr.Agg)
	if err != nil {
		return Verdict{}, wrkrerr.InvalidThreshold("threshold %q: %s", t.Raw, err)
	}

	return Verdict{
		Threshold: t,
		Pass:      compare(observed, t.Expr.Op, t.Expr.RHS),
		Observed:  observed,
		RHS:       t.Expr.RHS,
	}, nil
}

func aggregate(kind metrics.Kind, series []*metrics.Series, agg Aggregation) (float64, error) {
	switch kind {
	case metrics.KindCounter:
		switch agg.Kind {
		case AggCount, AggAvg, AggMax, AggMin:
			return metrics.MergedCounter(series), nil
		default:
			return 0, fmt.Errorf("aggregation %s not valid for a counter series", aggName(agg))
		}
	case metrics.KindGauge:
		switch agg.Kind {
		case AggAvg, AggMax, AggMin, AggCount:
			return metrics.MergedGauge(series), nil
		default:
			return 0, fmt.Errorf("aggregation %s not valid for a gauge series", aggName(agg))
		}
	case metrics.KindRate:
		if agg.Kind != AggRate {
			return 0, fmt.Errorf("aggregation %s not valid for a rate series, expected rate", aggName(agg))
		}
		return metrics.MergedRate(series).Rate(), nil
	case metrics.KindTrend:
		if agg.Kind == AggP {
			return metrics.MergedTrendQuantile(series, agg.P), nil
		}
		trend := metrics.MergedTrend(series)
		switch agg.Kind {
		case AggAvg:
			return trend.Mean, nil
		case AggMin:
			return trend.Min, nil
		case AggMax:
			return trend.Max, nil
		case AggCount:
			return float64(trend.Count), nil
		default:
			return 0, fmt.Errorf("aggregation %s not valid for a trend series", aggName(agg))
		}
	default:
		return 0, fmt.Errorf("unknown series kind")
	}
}

func compare(observed float64, op Op, rhs float64) bool {
	switch op {
	case OpLT:
		return observed < rhs
	case OpLE:
		return observed <= rhs
	case OpGT:
		return observed > rhs
	case OpGE:
		return observed >= rhs
	case OpEQ:
		return observed == rhs
	default:
		return false
	}
}

func aggName(agg Aggregation) string {
	switch agg.Kind {
	case AggAvg:
		return "avg"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggCount:
		return "count"
	case AggRate:
		return "rate"
	case AggP:
		return fmt.Sprintf("p(%d)", agg.P)
	default:
		return "?"
	}
}
