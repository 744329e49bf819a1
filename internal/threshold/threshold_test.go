package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogcio/wrkr/internal/metrics"
	"github.com/nogcio/wrkr/internal/value"
)

func TestParseSimpleThreshold(t *testing.T) {
	th, err := Parse("http_req_duration p(95) < 300")
	require.NoError(t, err)
	assert.Equal(t, "http_req_duration", th.Metric)
	assert.Equal(t, 0, th.Selector.Len())
	assert.Equal(t, AggP, th.Expr.Agg.Kind)
	assert.Equal(t, 95, th.Expr.Agg.P)
	assert.Equal(t, OpLT, th.Expr.Op)
	assert.Equal(t, 300.0, th.Expr.RHS)
}

func TestParseSelector(t *testing.T) {
	th, err := Parse("my_counter{group=login} count==1")
	require.NoError(t, err)
	assert.Equal(t, "my_counter", th.Metric)
	v, ok := th.Selector.Get("group")
	require.True(t, ok)
	assert.Equal(t, "login", v.Canonical())
	assert.Equal(t, OpEQ, th.Expr.Op)
}

func TestEvaluateCounterThreshold(t *testing.T) {
	engine := metrics.New()
	tags := value.NewTags().With("group", value.TagString("login"))
	engine.AddCounter("my_counter", tags, 1)

	th, err := Parse("my_counter{group=login} count==1")
	require.NoError(t, err)
	verdict, err := Evaluate(engine, th)
	require.NoError(t, err)
	assert.True(t, verdict.Pass)

	siblingTh, err := Parse("my_counter{group=logout} count==1")
	require.NoError(t, err)
	_, err = Evaluate(engine, siblingTh)
	assert.Error(t, err)
}

func TestEvaluateTrendPercentile(t *testing.T) {
	engine := metrics.New()
	tags := value.NewTags()
	for _, v := range []float64{100, 150, 200, 250, 300} {
		engine.RecordTrend("http_req_duration", tags, v)
	}

	th, err := Parse("http_req_duration p(99) < 1000")
	require.NoError(t, err)
	verdict, err := Evaluate(engine, th)
	require.NoError(t, err)
	assert.True(t, verdict.Pass)
}

func TestMismatchedAggregationFails(t *testing.T) {
	engine := metrics.New()
	engine.AddCounter("http_reqs", value.NewTags(), 5)

	th, err := Parse("http_reqs p(95) < 100")
	require.NoError(t, err)
	_, err = Evaluate(engine, th)
	assert.Error(t, err)
}
