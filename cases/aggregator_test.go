package cases

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hash-org/hashbench/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedRunner replays a fixed sequence of results, one per invocation.
type scriptedRunner struct {
	results []*TestCaseResult
	calls   int
}

func (s *scriptedRunner) RunOnce(ctx context.Context, c *TestCase, caseID int) *TestCaseResult {
	r := s.results[s.calls%len(s.results)]
	s.calls++
	return r
}

func rss(v int64) *int64 { return &v }

func size(v int64) *int64 { return &v }

func successResult(start, end int64, ms float64, exeSize int64) *TestCaseResult {
	return &TestCaseResult{
		ExitCode: 0,
		CompileMetrics: &metrics.Metrics{Stages: map[string]metrics.StageMetricEntry{
			"parse": {
				Total: metrics.MetricEntry{
					StartRSS: rss(start),
					EndRSS:   rss(end),
					Duration: metrics.DurationFromMilliseconds(ms),
				},
				Children: metrics.Metrics{Stages: map[string]metrics.StageMetricEntry{}},
			},
		}},
		ExeSize: size(exeSize),
	}
}

func testCase(iterations, warmups int) *TestCase {
	return &TestCase{
		Name:             "fib",
		File:             "cases/fib.hash",
		Iterations:       iterations,
		WarmupIterations: warmups,
		TimeoutSecs:      DefaultTimeoutSecs,
	}
}

func TestAggregatorAveraging(t *testing.T) {
	t.Run("single iteration is idempotent", func(t *testing.T) {
		sole := successResult(100, 200, 10, 1000)
		runner := &scriptedRunner{results: []*TestCaseResult{sole}}

		got := NewAggregator(discardLogger(), runner).Run(context.Background(), testCase(1, 0), 0)
		require.True(t, got.Succeeded())

		parse := got.CompileMetrics.Stages["parse"]
		want := sole.CompileMetrics.Stages["parse"]
		assert.Equal(t, *want.Total.StartRSS, *parse.Total.StartRSS)
		assert.Equal(t, *want.Total.EndRSS, *parse.Total.EndRSS)
		assert.Equal(t, want.Total.Duration, parse.Total.Duration)
		assert.Equal(t, int64(1000), *got.ExeSize)
	})

	t.Run("two iterations average elementwise", func(t *testing.T) {
		runner := &scriptedRunner{results: []*TestCaseResult{
			successResult(100, 200, 10, 1000),
			successResult(200, 300, 20, 1200),
		}}

		got := NewAggregator(discardLogger(), runner).Run(context.Background(), testCase(2, 0), 0)
		require.True(t, got.Succeeded())
		assert.Equal(t, 0, got.ExitCode)

		parse := got.CompileMetrics.Stages["parse"]
		assert.Equal(t, int64(150), *parse.Total.StartRSS)
		assert.Equal(t, int64(250), *parse.Total.EndRSS)
		assert.InDelta(t, 15, parse.Total.Duration.ToMilliseconds(), 1e-6)
		assert.Equal(t, int64(1100), *got.ExeSize)
	})

	t.Run("children are not aggregated", func(t *testing.T) {
		withChild := successResult(1, 2, 3, 10)
		parent := withChild.CompileMetrics.Stages["parse"]
		parent.Children.Stages["lex"] = metrics.StageMetricEntry{
			Total: metrics.MetricEntry{Duration: metrics.DurationFromMilliseconds(1)},
		}
		withChild.CompileMetrics.Stages["parse"] = parent
		runner := &scriptedRunner{results: []*TestCaseResult{withChild}}

		got := NewAggregator(discardLogger(), runner).Run(context.Background(), testCase(1, 0), 0)
		require.True(t, got.Succeeded())
		assert.Empty(t, got.CompileMetrics.Stages["parse"].Children.Stages)
	})
}

func TestAggregatorWarmups(t *testing.T) {
	runner := &scriptedRunner{results: []*TestCaseResult{successResult(100, 200, 10, 1000)}}

	NewAggregator(discardLogger(), runner).Run(context.Background(), testCase(2, 3), 0)

	assert.Equal(t, 5, runner.calls, "warmup runs happen before every measured run")
}

func TestAggregatorFailures(t *testing.T) {
	t.Run("all iterations failed returns the first raw result", func(t *testing.T) {
		first := &TestCaseResult{Case: 7, ExitCode: 2}
		runner := &scriptedRunner{results: []*TestCaseResult{
			first,
			{Case: 7, ExitCode: 1},
		}}

		got := NewAggregator(discardLogger(), runner).Run(context.Background(), testCase(2, 0), 7)

		assert.Same(t, first, got)
		assert.False(t, got.Succeeded())
		assert.Nil(t, got.ExeSize)
	})

	t.Run("failed runs are excluded from the average", func(t *testing.T) {
		runner := &scriptedRunner{results: []*TestCaseResult{
			successResult(100, 200, 10, 1000),
			{ExitCode: -1},
			successResult(300, 400, 30, 3000),
		}}

		got := NewAggregator(discardLogger(), runner).Run(context.Background(), testCase(3, 0), 0)
		require.True(t, got.Succeeded())

		parse := got.CompileMetrics.Stages["parse"]
		assert.Equal(t, int64(200), *parse.Total.StartRSS)
		assert.InDelta(t, 20, parse.Total.Duration.ToMilliseconds(), 1e-6)
		assert.Equal(t, int64(2000), *got.ExeSize)
	})

	t.Run("stages missing from some runs average over fewer runs", func(t *testing.T) {
		second := successResult(100, 200, 10, 1000)
		extra := successResult(0, 0, 0, 1000)
		extra.CompileMetrics.Stages["codegen"] = metrics.StageMetricEntry{
			Total:    metrics.MetricEntry{StartRSS: rss(50), EndRSS: rss(60), Duration: metrics.DurationFromMilliseconds(5)},
			Children: metrics.Metrics{Stages: map[string]metrics.StageMetricEntry{}},
		}

		runner := &scriptedRunner{results: []*TestCaseResult{extra, second}}

		got := NewAggregator(discardLogger(), runner).Run(context.Background(), testCase(2, 0), 0)
		require.True(t, got.Succeeded())

		// codegen only appeared in the first run, so its average is that
		// run's value untouched.
		codegen, ok := got.CompileMetrics.Stages["codegen"]
		require.True(t, ok)
		assert.Equal(t, int64(50), *codegen.Total.StartRSS)
		assert.InDelta(t, 5, codegen.Total.Duration.ToMilliseconds(), 1e-6)

		parse := got.CompileMetrics.Stages["parse"]
		assert.Equal(t, int64(50), *parse.Total.StartRSS)
	})
}
