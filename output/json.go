package output

import (
	"encoding/json"
	"io"

	"github.com/hash-org/hashbench/results"
)

// jsonReport is the machine-readable view: the raw per-case results plus
// the derived per-stage statistics.
type jsonReport struct {
	Results []*results.ResultEntry   `json:"results"`
	Stages  []results.StageStat      `json:"stages"`
	Sizes   []results.SizeComparison `json:"exe_sizes"`
}

// WriteJSON dumps the full result set as JSON.
func WriteJSON(w io.Writer, res *results.TestResults) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Results: res.Results,
		Stages:  res.StageStats(),
		Sizes:   res.SizeComparisons(),
	})
}
