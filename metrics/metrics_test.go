package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rss(v int64) *int64 { return &v }

func TestMetricEntryArithmetic(t *testing.T) {
	a := MetricEntry{StartRSS: rss(100), EndRSS: rss(300), Duration: Duration{Secs: 1}}
	b := MetricEntry{StartRSS: rss(40), EndRSS: rss(100), Duration: Duration{Secs: 0, Nanos: 500_000_000}}

	t.Run("add is elementwise", func(t *testing.T) {
		sum := a.Add(b)
		assert.Equal(t, int64(140), *sum.StartRSS)
		assert.Equal(t, int64(400), *sum.EndRSS)
		assert.Equal(t, Duration{Secs: 1, Nanos: 500_000_000}, sum.Duration)
	})

	t.Run("diff is elementwise", func(t *testing.T) {
		diff := a.Diff(b)
		assert.Equal(t, int64(60), *diff.StartRSS)
		assert.Equal(t, int64(200), *diff.EndRSS)
		assert.Equal(t, Duration{Secs: 0, Nanos: 500_000_000}, diff.Duration)
	})

	t.Run("missing rss propagates", func(t *testing.T) {
		partial := MetricEntry{Duration: Duration{Secs: 1}}
		assert.Nil(t, a.Add(partial).StartRSS)
		assert.Nil(t, a.Diff(partial).EndRSS)
		assert.Nil(t, partial.Diff(a).StartRSS)
	})
}

func TestMetricsDiff(t *testing.T) {
	left := Metrics{Stages: map[string]StageMetricEntry{
		"parse": {Total: MetricEntry{StartRSS: rss(500), EndRSS: rss(900), Duration: Duration{Secs: 2}}},
		"lower": {Total: MetricEntry{Duration: Duration{Secs: 1}}},
	}}
	right := Metrics{Stages: map[string]StageMetricEntry{
		"parse": {Total: MetricEntry{StartRSS: rss(100), EndRSS: rss(400), Duration: Duration{Secs: 1}}},
		"check": {Total: MetricEntry{Duration: Duration{Secs: 3}}},
	}}

	diff := left.Diff(right)

	t.Run("stages on both sides are diffed", func(t *testing.T) {
		parse, ok := diff.Stages["parse"]
		require.True(t, ok)
		assert.Equal(t, int64(400), *parse.Total.StartRSS)
		assert.Equal(t, int64(500), *parse.Total.EndRSS)
		assert.Equal(t, Duration{Secs: 1}, parse.Total.Duration)
	})

	t.Run("stages on only one side are skipped", func(t *testing.T) {
		assert.NotContains(t, diff.Stages, "lower")
		assert.NotContains(t, diff.Stages, "check")
	})
}

func TestStageMetricEntryDiffRecursesIntoChildren(t *testing.T) {
	child := func(secs int64) Metrics {
		return Metrics{Stages: map[string]StageMetricEntry{
			"sub": {Total: MetricEntry{Duration: Duration{Secs: secs}}},
		}}
	}

	diff := StageMetricEntry{
		Total:    MetricEntry{Duration: Duration{Secs: 10}},
		Children: child(4),
	}.Diff(StageMetricEntry{
		Total:    MetricEntry{Duration: Duration{Secs: 3}},
		Children: child(1),
	})

	assert.Equal(t, Duration{Secs: 7}, diff.Total.Duration)
	assert.Equal(t, Duration{Secs: 3}, diff.Children.Stages["sub"].Total.Duration)
}
