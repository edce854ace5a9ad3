package metrics

// MetricEntry holds the resource usage of one measured unit: a single
// compiler stage, or a whole run. The RSS fields are nil when the compiler
// could not sample them on the host platform.
type MetricEntry struct {
	StartRSS *int64   `json:"start_rss" mapstructure:"start_rss"`
	EndRSS   *int64   `json:"end_rss" mapstructure:"end_rss"`
	Duration Duration `json:"duration" mapstructure:"duration"`
}

// addRSS and diffRSS propagate nil: if either operand is missing the
// sample, the combined value is missing too.
func addRSS(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}

func diffRSS(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}

func (e MetricEntry) Add(other MetricEntry) MetricEntry {
	return MetricEntry{
		StartRSS: addRSS(e.StartRSS, other.StartRSS),
		EndRSS:   addRSS(e.EndRSS, other.EndRSS),
		Duration: e.Duration.Add(other.Duration),
	}
}

func (e MetricEntry) Diff(other MetricEntry) MetricEntry {
	return MetricEntry{
		StartRSS: diffRSS(e.StartRSS, other.StartRSS),
		EndRSS:   diffRSS(e.EndRSS, other.EndRSS),
		Duration: e.Duration.Sub(other.Duration),
	}
}

// StageMetricEntry is one named stage's own totals plus the nested
// breakdown of its sub-stages. Children form a pure tree: each child may
// carry further StageMetricEntry values.
type StageMetricEntry struct {
	Total    MetricEntry `json:"total" mapstructure:"total"`
	Children Metrics     `json:"children" mapstructure:"children"`
}

func (s StageMetricEntry) Diff(other StageMetricEntry) StageMetricEntry {
	return StageMetricEntry{
		Total:    s.Total.Diff(other.Total),
		Children: s.Children.Diff(other.Children),
	}
}

// Metrics is one full compilation run's telemetry: a mapping from stage
// name to that stage's entry. The same shape is reused to represent the
// difference between two runs.
type Metrics struct {
	Stages map[string]StageMetricEntry `json:"metrics" mapstructure:"metrics"`
}

// Diff subtracts other from m stage by stage. Stages present on only one
// side are skipped; the result covers the key intersection.
func (m Metrics) Diff(other Metrics) Metrics {
	out := Metrics{Stages: map[string]StageMetricEntry{}}
	for stage, entry := range m.Stages {
		otherEntry, ok := other.Stages[stage]
		if !ok {
			continue
		}
		out.Stages[stage] = entry.Diff(otherEntry)
	}
	return out
}
