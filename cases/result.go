package cases

import "github.com/hash-org/hashbench/metrics"

// TestCaseResult holds what one run attempt of a case produced. It is
// constructed once per iteration and never mutated; the aggregator builds
// a new synthetic result to represent the average of many iterations.
//
// CompileMetrics and ExeSize are nil exactly when the run did not complete
// successfully (non-zero exit, timeout, or missing metrics message).
type TestCaseResult struct {
	// Identifier of the originating case (its index in the cases file).
	Case int `json:"case"`

	// 0 on success, the compiler's exit code on failure, or -1 for a
	// timeout or a missing metrics message.
	ExitCode int `json:"exit_code"`

	CompileMetrics *metrics.Metrics `json:"compile_metrics"`

	// Size of the produced executable in bytes, best effort.
	ExeSize *int64 `json:"exe_size"`
}

func (r *TestCaseResult) Succeeded() bool {
	return r.CompileMetrics != nil
}
