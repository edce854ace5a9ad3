package cases

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/hash-org/hashbench/metrics"
	"github.com/hash-org/hashbench/stats"
)

// Aggregator runs the warmup and measured iterations of one case against
// one compiler build and combines the measured runs into a single averaged
// result.
//
// Only each stage's total is averaged; nested children are left empty in
// the synthetic result, so the aggregated report is one level deep even
// when the compiler reports a deeper stage tree.
type Aggregator struct {
	logger *slog.Logger
	runner SingleRunner
}

func NewAggregator(logger *slog.Logger, runner SingleRunner) *Aggregator {
	return &Aggregator{logger: logger, runner: runner}
}

// Run benchmarks the case and returns the averaged result. If none of the
// measured iterations produced metrics, the first raw result is returned
// verbatim and a warning is logged; the caller can tell by the missing
// CompileMetrics.
func (a *Aggregator) Run(ctx context.Context, c *TestCase, caseID int) *TestCaseResult {
	for i := 0; i < c.WarmupIterations; i++ {
		a.runOnce(ctx, c, caseID)
	}

	results := make([]*TestCaseResult, 0, c.Iterations)
	for i := 0; i < c.Iterations; i++ {
		results = append(results, a.runOnce(ctx, c, caseID))
	}

	successes := make([]*TestCaseResult, 0, len(results))
	for _, r := range results {
		if r.Succeeded() {
			successes = append(successes, r)
		}
	}
	if len(successes) == 0 {
		a.logger.Warn("no measured iteration produced metrics", slog.String("case", c.Name))
		return results[0]
	}

	// The first successful run defines the stage schema. Runs missing a
	// stage are excluded from that stage's sample, so different stages may
	// average over different run counts.
	first := successes[0]
	combined := metrics.Metrics{Stages: map[string]metrics.StageMetricEntry{}}
	for _, stage := range sortedStages(first.CompileMetrics) {
		entries := make([]metrics.MetricEntry, 0, len(successes))
		for _, r := range successes {
			if e, ok := r.CompileMetrics.Stages[stage]; ok {
				entries = append(entries, e.Total)
			}
		}

		a.warnOutliers(c, stage, entries)
		combined.Stages[stage] = metrics.StageMetricEntry{
			Total:    averageEntries(entries),
			Children: metrics.Metrics{Stages: map[string]metrics.StageMetricEntry{}},
		}
	}

	return &TestCaseResult{
		Case:           caseID,
		ExitCode:       0,
		CompileMetrics: &combined,
		ExeSize:        averageExeSize(successes),
	}
}

func (a *Aggregator) runOnce(ctx context.Context, c *TestCase, caseID int) *TestCaseResult {
	runCtx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()
	return a.runner.RunOnce(runCtx, c, caseID)
}

// warnOutliers checks the three parallel samples of a stage (start RSS,
// end RSS, duration) for statistically anomalous values. The warning is
// advisory only; it never aborts aggregation.
func (a *Aggregator) warnOutliers(c *TestCase, stage string, entries []metrics.MetricEntry) {
	var startRSS, endRSS, durationMs []float64
	for _, e := range entries {
		if e.StartRSS != nil {
			startRSS = append(startRSS, float64(*e.StartRSS))
		}
		if e.EndRSS != nil {
			endRSS = append(endRSS, float64(*e.EndRSS))
		}
		durationMs = append(durationMs, e.Duration.ToMilliseconds())
	}

	for _, sample := range [][]float64{startRSS, endRSS, durationMs} {
		if len(sample) > 0 && stats.HasOutliers(sample) {
			a.logger.Warn("stage sample contains outliers",
				slog.String("case", c.Name), slog.String("stage", stage))
			return
		}
	}
}

func averageEntries(entries []metrics.MetricEntry) metrics.MetricEntry {
	var startRSS, endRSS []float64
	var durationMs float64
	for _, e := range entries {
		if e.StartRSS != nil {
			startRSS = append(startRSS, float64(*e.StartRSS))
		}
		if e.EndRSS != nil {
			endRSS = append(endRSS, float64(*e.EndRSS))
		}
		durationMs += e.Duration.ToMilliseconds()
	}

	return metrics.MetricEntry{
		StartRSS: roundedMean(startRSS),
		EndRSS:   roundedMean(endRSS),
		Duration: metrics.DurationFromMilliseconds(durationMs / float64(len(entries))),
	}
}

func averageExeSize(successes []*TestCaseResult) *int64 {
	var sizes []float64
	for _, r := range successes {
		if r.ExeSize != nil {
			sizes = append(sizes, float64(*r.ExeSize))
		}
	}
	return roundedMean(sizes)
}

func roundedMean(values []float64) *int64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := int64(math.Round(sum / float64(len(values))))
	return &mean
}

func sortedStages(m *metrics.Metrics) []string {
	stages := make([]string, 0, len(m.Stages))
	for stage := range m.Stages {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	return stages
}
