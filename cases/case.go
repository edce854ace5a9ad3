package cases

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultIterations       = 2
	DefaultWarmupIterations = 2
	DefaultTimeoutSecs      = 60
)

// TestCase describes one benchmark case: a source file to compile and how
// to run it.
type TestCase struct {
	// The name of the case, used for display and identification purposes.
	Name string `json:"name" validate:"required"`

	// The path of the source file to compile.
	File string `json:"file" validate:"required"`

	// An optional description of the case, for debugging purposes.
	Description string `json:"description,omitempty"`

	// Tags associated with the case, used for filtering and search.
	Tags []string `json:"tags,omitempty"`

	// Extra compiler settings merged into the generated configuration,
	// stored as the JSON the compiler accepts (a partial settings object).
	AdditionalArgs string `json:"additional_args,omitempty"`

	// Whether to also run the produced executable. Not used during
	// compilation benchmarking.
	Run bool `json:"run,omitempty"`

	// How many measured iterations to run. Defaults to 2.
	Iterations int `json:"iterations,omitempty" validate:"min=1"`

	// How many discarded warmup iterations to run before measuring.
	// Defaults to 2.
	WarmupIterations int `json:"warmup_iterations,omitempty" validate:"min=0"`

	// Per-run timeout in seconds. Defaults to 60.
	TimeoutSecs int `json:"timeout,omitempty" validate:"min=1"`
}

func (c *TestCase) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type TestCaseFile struct {
	Cases []TestCase `json:"cases" validate:"required,min=1,dive"`
}

// ParseCasesFile loads the test cases from the provided JSON file,
// applying per-case defaults before validation.
func ParseCasesFile(path string) (*TestCaseFile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cases file: %w", err)
	}

	file := &TestCaseFile{}
	if err := json.Unmarshal(buf, file); err != nil {
		return nil, fmt.Errorf("parsing cases file %s: %w", path, err)
	}

	for i := range file.Cases {
		c := &file.Cases[i]
		if c.Iterations == 0 {
			c.Iterations = DefaultIterations
		}
		if c.WarmupIterations == 0 {
			c.WarmupIterations = DefaultWarmupIterations
		}
		if c.TimeoutSecs == 0 {
			c.TimeoutSecs = DefaultTimeoutSecs
		}
	}

	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("validating cases file %s: %w", path, err)
	}
	return file, nil
}
