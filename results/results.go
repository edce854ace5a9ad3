package results

import (
	"sort"

	"github.com/hash-org/hashbench/cases"
	"github.com/hash-org/hashbench/metrics"
)

// ResultEntryComparison is the difference between the two builds' runs of
// one case. The Metrics shape is reused to represent the per-stage
// difference in timings and memory usage.
type ResultEntryComparison struct {
	CompileMetrics metrics.Metrics `json:"compile_metrics"`

	// The difference in produced executable size, nil when either side
	// could not collect one.
	ExeSize *int64 `json:"exe_size"`
}

// ResultEntry holds one case's results under both builds. The comparison
// is derived at construction and is nil when either side failed to produce
// metrics; such entries are excluded from stage-level statistics.
type ResultEntry struct {
	Name       string                 `json:"name"`
	Original   *cases.TestCaseResult  `json:"original"`
	Result     *cases.TestCaseResult  `json:"result"`
	Comparison *ResultEntryComparison `json:"comparison"`
}

func NewResultEntry(name string, original, result *cases.TestCaseResult) *ResultEntry {
	return &ResultEntry{
		Name:       name,
		Original:   original,
		Result:     result,
		Comparison: constructComparison(original, result),
	}
}

func constructComparison(original, result *cases.TestCaseResult) *ResultEntryComparison {
	if original.CompileMetrics == nil || result.CompileMetrics == nil {
		return nil
	}

	var exeSize *int64
	if original.ExeSize != nil && result.ExeSize != nil {
		diff := *result.ExeSize - *original.ExeSize
		exeSize = &diff
	}

	return &ResultEntryComparison{
		CompileMetrics: original.CompileMetrics.Diff(*result.CompileMetrics),
		ExeSize:        exeSize,
	}
}

// TestResults is the ordered, append-only collection of per-case results
// from a whole comparison run.
type TestResults struct {
	Results []*ResultEntry `json:"results"`
}

func (t *TestResults) Append(entry *ResultEntry) {
	t.Results = append(t.Results, entry)
}

// Stages lists the comparable stage names, sorted for stable output. They
// are taken from the first entry that carries a comparison (the key
// intersection of its two sides).
func (t *TestResults) Stages() []string {
	for _, entry := range t.Results {
		if entry.Comparison == nil {
			continue
		}
		stages := make([]string, 0, len(entry.Comparison.CompileMetrics.Stages))
		for stage := range entry.Comparison.CompileMetrics.Stages {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		return stages
	}
	return nil
}
