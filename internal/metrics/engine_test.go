package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogcio/wrkr/internal/value"
)

func TestCounterAccumulatesAcrossGoroutines(t *testing.T) {
	e := New()
	tags := value.NewTags().With(TagMethod, value.TagString("GET"))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.AddCounter(MetricHTTPReqs, tags, 1)
		}()
	}
	wg.Wait()

	report := e.Snapshot()
	require.Len(t, report.Series, 1)
	assert.Equal(t, 100.0, report.Series[0].Count)
}

func TestTrendSnapshotStats(t *testing.T) {
	e := New()
	tags := value.NewTags()
	for _, v := range []float64{10, 20, 30, 40, 50} {
		e.RecordTrend(MetricHTTPReqDuration, tags, v)
	}

	report := e.Snapshot()
	require.Len(t, report.Series, 1)
	trend := report.Series[0].Trend
	assert.EqualValues(t, 5, trend.Count)
	assert.Equal(t, 10.0, trend.Min)
	assert.Equal(t, 50.0, trend.Max)
	assert.InDelta(t, 30.0, trend.Mean, 0.001)
}

func TestRateUndefinedIsZero(t *testing.T) {
	e := New()
	report := e.Snapshot()
	assert.Len(t, report.Series, 0)

	tags := value.NewTags()
	e.ObserveRate(MetricHTTPReqFailed, tags, false)
	e.ObserveRate(MetricHTTPReqFailed, tags, true)
	report = e.Snapshot()
	require.Len(t, report.Series, 1)
	assert.Equal(t, 0.5, report.Series[0].Rate.Rate())
}

func TestDistinctTagsProduceDistinctSeries(t *testing.T) {
	e := New()
	get := value.NewTags().With(TagMethod, value.TagString("GET"))
	post := value.NewTags().With(TagMethod, value.TagString("POST"))

	e.AddCounter(MetricHTTPReqs, get, 1)
	e.AddCounter(MetricHTTPReqs, post, 1)

	report := e.Snapshot()
	assert.Len(t, report.Series, 2)
}

func TestMatchingSelectorIsSuperset(t *testing.T) {
	e := New()
	tags := value.NewTags().With(TagGroup, value.TagString("login")).With(TagMethod, value.TagString("GET"))
	e.AddCounter("my_counter", tags, 1)

	matched := e.Matching("my_counter", value.NewTags().With(TagGroup, value.TagString("login")))
	assert.Len(t, matched, 1)

	unmatched := e.Matching("my_counter", value.NewTags().With(TagGroup, value.TagString("logout")))
	assert.Len(t, unmatched, 0)
}

func TestMergedCounterSumsAcrossSeries(t *testing.T) {
	e := New()
	a := value.NewTags().With(TagStatus, value.TagInt(200))
	b := value.NewTags().With(TagStatus, value.TagInt(500))
	e.AddCounter(MetricHTTPReqs, a, 3)
	e.AddCounter(MetricHTTPReqs, b, 2)

	matched := e.Matching(MetricHTTPReqs, value.NewTags())
	assert.Equal(t, 5.0, MergedCounter(matched))
}
