package cases

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hash-org/hashbench/metrics"
)

// SingleRunner runs one bounded attempt of a test case against one staged
// compiler build. The aggregator drives it for warmup and measured
// iterations; it never needs to know how the executable was produced.
type SingleRunner interface {
	RunOnce(ctx context.Context, c *TestCase, caseID int) *TestCaseResult
}

type CompilerRunnerInput struct {
	Logger *slog.Logger

	// Working directory for compiler invocations (the compiler repository).
	Repo string

	// Path to the staged compiler executable and the display name of the
	// build it came from.
	CompilerPath string
	CompilerName string

	// Directory under which per-case output directories are created.
	TempDir string

	// "debug" or "release"; also names the artifact subdirectory the
	// compiler writes executables into.
	OptimisationLevel string
}

type compilerRunner struct {
	in *CompilerRunnerInput
}

// NewCompilerRunner returns a SingleRunner that invokes the staged
// compiler with a JSON --configure argument and reads its message stream.
func NewCompilerRunner(input *CompilerRunnerInput) SingleRunner {
	return &compilerRunner{in: input}
}

func (r *compilerRunner) RunOnce(ctx context.Context, c *TestCase, caseID int) *TestCaseResult {
	failed := func(exitCode int) *TestCaseResult {
		return &TestCaseResult{Case: caseID, ExitCode: exitCode}
	}

	stem := caseFileStem(c.File)
	outputDir := filepath.Join(r.in.TempDir, "cases", r.in.CompilerName, stem)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		r.in.Logger.Error("failed to create case output directory", slog.String("path", outputDir), slog.String("error", err.Error()))
		return failed(-1)
	}

	configArg, err := r.configureArg(c, outputDir)
	if err != nil {
		r.in.Logger.Error("failed to encode compiler configuration", slog.String("case", c.Name), slog.String("error", err.Error()))
		return failed(-1)
	}

	cmd := exec.CommandContext(ctx, r.in.CompilerPath, "--configure", configArg)
	cmd.Dir = r.in.Repo
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.in.Logger.Info("compiling case", slog.String("case", c.Name), slog.String("build", r.in.CompilerName))
	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		r.in.Logger.Warn("case run timed out", slog.String("case", c.Name), slog.String("build", r.in.CompilerName))
		return failed(-1)
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		r.in.Logger.Error("compiler exited with non-zero exit code",
			slog.String("case", c.Name),
			slog.Int("exit_code", exitCode),
			slog.String("stderr", stderr.String()))
		return failed(exitCode)
	}

	// The run succeeded; the metrics message must be somewhere in the
	// emitted stream of compiler messages.
	m := metrics.FindMessageInStream(r.in.Logger, stdout.String(), metrics.MessageMetrics)
	if m == nil {
		r.in.Logger.Error("no metrics message found in compiler output", slog.String("case", c.Name))
		return failed(-1)
	}

	return &TestCaseResult{
		Case:           caseID,
		ExitCode:       0,
		CompileMetrics: m,
		ExeSize:        r.exeSize(c, outputDir, stem),
	}
}

// configureArg builds the double-encoded JSON configuration argument the
// compiler expects: the settings object serialized to a JSON string, then
// encoded again so it survives argument passing.
func (r *compilerRunner) configureArg(c *TestCase, outputDir string) (string, error) {
	args := map[string]any{
		"entry_point":      c.File,
		"output_directory": outputDir,
		"messaging_format": "json",
		"timings":          true,
		"stage":            "build",
	}

	if c.AdditionalArgs != "" {
		extra := map[string]any{}
		if err := json.Unmarshal([]byte(c.AdditionalArgs), &extra); err != nil {
			return "", fmt.Errorf("additional_args is not a JSON object: %w", err)
		}
		for k, v := range extra {
			args[k] = v
		}
	}

	inner, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		return "", err
	}
	return string(outer), nil
}

// exeSize locates the produced executable and returns its size. A missing
// artifact is logged but does not fail the case.
func (r *compilerRunner) exeSize(c *TestCase, outputDir, stem string) *int64 {
	exePath := filepath.Join(outputDir, strings.ToLower(r.in.OptimisationLevel), stem)
	info, err := os.Stat(exePath)
	if err != nil || info.IsDir() {
		r.in.Logger.Error("failed to locate the produced executable", slog.String("path", exePath))
		return nil
	}
	size := info.Size()
	return &size
}

func caseFileStem(file string) string {
	base := filepath.Base(file)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}
