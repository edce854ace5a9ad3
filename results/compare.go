package results

import (
	"math"

	"github.com/alitto/pond"

	"github.com/hash-org/hashbench/metrics"
)

// PercentageDiff is the relative change from left to right, in percent. A
// zero left side yields +Inf as a division-by-zero sentinel, not an error.
func PercentageDiff(left, right float64) float64 {
	if left == 0 {
		return math.Inf(1)
	}
	return ((right - left) / left) * 100
}

// MetricKind selects which value of a MetricEntry a statistic is computed
// over.
type MetricKind int

const (
	// Resident set size at the end of the stage, in bytes.
	MetricRSS MetricKind = iota

	// Stage duration in milliseconds.
	MetricTime
)

// FromEntry extracts the kind's value from a metric entry. The second
// return is false when the entry does not carry the sample (RSS may be
// missing on platforms the compiler cannot read it on).
func (k MetricKind) FromEntry(e metrics.MetricEntry) (float64, bool) {
	switch k {
	case MetricRSS:
		if e.EndRSS == nil {
			return 0, false
		}
		return float64(*e.EndRSS), true
	case MetricTime:
		return e.Duration.ToMilliseconds(), true
	default:
		return 0, false
	}
}

// Side selects which build's results a per-case value sequence is drawn
// from.
type Side int

const (
	// The left ("original") build.
	SideOriginal Side = iota

	// The right ("result") build.
	SideResult
)

func (s Side) of(entry *ResultEntry) *metrics.Metrics {
	if s == SideOriginal {
		return entry.Original.CompileMetrics
	}
	return entry.Result.CompileMetrics
}

// GetMetric returns the ordered per-case values of a stage's metric for
// one side, one value per comparable case that has the stage.
func (t *TestResults) GetMetric(side Side, stage string, kind MetricKind) []float64 {
	var values []float64
	for _, entry := range t.Results {
		if entry.Comparison == nil {
			continue
		}
		stageEntry, ok := side.of(entry).Stages[stage]
		if !ok {
			continue
		}
		if v, ok := kind.FromEntry(stageEntry.Total); ok {
			values = append(values, v)
		}
	}
	return values
}

// GetMetricAvg is the arithmetic mean of GetMetric. The second return is
// false when no case carried the sample.
func (t *TestResults) GetMetricAvg(side Side, stage string, kind MetricKind) (float64, bool) {
	values := t.GetMetric(side, stage, kind)
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// GetMetricDomain is the (min, max) range of the per-case percentage
// diffs between the two sides for a stage's metric. The domain is defined
// over relative deltas rather than raw per-side values so that it reads on
// the same scale as the averaged percentage difference.
func (t *TestResults) GetMetricDomain(stage string, kind MetricKind) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	found := false

	for _, entry := range t.Results {
		if entry.Comparison == nil {
			continue
		}
		leftStage, leftOK := entry.Original.CompileMetrics.Stages[stage]
		rightStage, rightOK := entry.Result.CompileMetrics.Stages[stage]
		if !leftOK || !rightOK {
			continue
		}
		left, leftOK := kind.FromEntry(leftStage.Total)
		right, rightOK := kind.FromEntry(rightStage.Total)
		if !leftOK || !rightOK {
			continue
		}

		diff := PercentageDiff(left, right)
		lo = math.Min(lo, diff)
		hi = math.Max(hi, diff)
		found = true
	}
	return lo, hi, found
}

// StatLine is one metric's aggregate over all comparable cases: the
// percentage difference of the two sides' averages, plus the domain of the
// per-case percentage diffs.
type StatLine struct {
	AvgPct float64 `json:"avg_pct"`
	MinPct float64 `json:"min_pct"`
	MaxPct float64 `json:"max_pct"`
}

// StageStat is the aggregate comparison of one stage across the whole
// result set. A nil line means no case carried that sample.
type StageStat struct {
	Stage string    `json:"stage"`
	RSS   *StatLine `json:"rss"`
	Time  *StatLine `json:"time"`
}

func (t *TestResults) statLine(stage string, kind MetricKind) *StatLine {
	leftAvg, ok := t.GetMetricAvg(SideOriginal, stage, kind)
	if !ok {
		return nil
	}
	rightAvg, ok := t.GetMetricAvg(SideResult, stage, kind)
	if !ok {
		return nil
	}
	lo, hi, ok := t.GetMetricDomain(stage, kind)
	if !ok {
		return nil
	}
	return &StatLine{AvgPct: PercentageDiff(leftAvg, rightAvg), MinPct: lo, MaxPct: hi}
}

// StageStats builds the per-stage aggregate report. The per-stage work is
// read-only over the collected results, so it fans out on a worker pool;
// this runs strictly after all measurements have completed.
func (t *TestResults) StageStats() []StageStat {
	stages := t.Stages()
	out := make([]StageStat, len(stages))

	pool := pond.New(len(stages)+1, 0, pond.MinWorkers(1))
	for i, stage := range stages {
		pool.Submit(func() {
			out[i] = StageStat{
				Stage: stage,
				RSS:   t.statLine(stage, MetricRSS),
				Time:  t.statLine(stage, MetricTime),
			}
		})
	}
	pool.StopAndWait()

	return out
}

// SizeComparison is the per-case executable size delta. Cases where one
// side lacks a size are reported as not applicable rather than omitted;
// cases where both lack one are skipped.
type SizeComparison struct {
	Name       string  `json:"name"`
	Applicable bool    `json:"applicable"`
	Diff       int64   `json:"diff"`
	Pct        float64 `json:"pct"`
	RightSize  int64   `json:"right_size"`
}

func (t *TestResults) SizeComparisons() []SizeComparison {
	var out []SizeComparison
	for _, entry := range t.Results {
		left, right := entry.Original.ExeSize, entry.Result.ExeSize
		if left == nil && right == nil {
			continue
		}
		if left == nil || right == nil {
			out = append(out, SizeComparison{Name: entry.Name})
			continue
		}
		out = append(out, SizeComparison{
			Name:       entry.Name,
			Applicable: true,
			Diff:       *right - *left,
			Pct:        PercentageDiff(float64(*left), float64(*right)),
			RightSize:  *right,
		})
	}
	return out
}
