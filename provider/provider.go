// Package provider stages the two compiler builds being compared: it
// resolves each comparison operand to an executable in the testbed temp
// directory, building from a repository revision when needed.
package provider

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/hash-org/hashbench/config"
)

const compilerExeName = "hashc"

// CompilationProvider is a staged, runnable compiler build.
type CompilationProvider struct {
	Entry *Entry
	Path  string
}

func (p *CompilationProvider) String() string {
	return p.Entry.Data
}

// CompileAndCopy stages the entry's executable into the testbed. For a
// file entry the executable is copied as-is; for a revision entry the
// repository is checked out at that revision, built with cargo, and the
// produced executable copied over.
func CompileAndCopy(logger *slog.Logger, settings *config.Settings, entry *Entry) (*CompilationProvider, error) {
	if err := os.MkdirAll(settings.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	dst := filepath.Join(settings.TempDir, entry.Name+exeExtension())

	switch entry.Kind {
	case EntryFile:
		if err := copyFile(entry.Data, dst); err != nil {
			return nil, fmt.Errorf("copying %s executable: %w", entry.Name, err)
		}
		logger.Info("copied executable", slog.String("path", entry.Data))

	case EntryRevision:
		if err := checkoutGitRevision(settings.Repository, entry.Data); err != nil {
			return nil, err
		}
		logger.Info("checked out revision", slog.String("revision", entry.Data))

		if err := cargoBuild(logger, settings, entry); err != nil {
			return nil, err
		}

		exePath := filepath.Join(settings.Repository, "target", "release", compilerExeName+exeExtension())
		if _, err := os.Stat(exePath); err != nil {
			return nil, fmt.Errorf("no executable was produced for %s: %w", entry.Name, err)
		}
		if err := copyFile(exePath, dst); err != nil {
			return nil, fmt.Errorf("copying built executable: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown entry kind: %s", entry.Kind)
	}

	if err := os.Chmod(dst, 0o755); err != nil {
		return nil, fmt.Errorf("marking staged executable as runnable: %w", err)
	}

	p := &CompilationProvider{Entry: entry, Path: dst}
	checkCompilerVersion(logger, settings, p)
	return p, nil
}

func checkoutGitRevision(repo, revision string) error {
	cmd := exec.Command("git", "checkout", revision)
	cmd.Dir = repo
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to checkout %s: %w\n%s", revision, err, stderr.String())
	}
	return nil
}

func cargoBuild(logger *slog.Logger, settings *config.Settings, entry *Entry) error {
	args := []string{"build"}
	if settings.OptimisationLevel == config.OptRelease {
		args = append(args, "--release")
	}

	logger.Info("compiling revision",
		slog.String("revision", entry.Data),
		slog.String("optimisation_level", string(settings.OptimisationLevel)))

	cmd := exec.Command("cargo", args...)
	cmd.Dir = settings.Repository
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("compiling revision %s failed: %w\n%s", entry.Data, err, stderr.String())
	}
	return nil
}

// checkCompilerVersion asks the staged build for its version and compares
// it against the configured minimum. Builds that predate --version, or
// report something unparseable, only draw a warning.
func checkCompilerVersion(logger *slog.Logger, settings *config.Settings, p *CompilationProvider) {
	minimum, err := goversion.NewVersion(settings.MinCompilerVersion)
	if err != nil {
		logger.Warn("invalid minimum compiler version in settings", slog.String("value", settings.MinCompilerVersion))
		return
	}

	out, err := exec.Command(p.Path, "--version").Output()
	if err != nil {
		logger.Warn("staged compiler does not report a version", slog.String("build", p.Entry.Name))
		return
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) == 0 {
		logger.Warn("staged compiler reported an empty version", slog.String("build", p.Entry.Name))
		return
	}
	reported, err := goversion.NewVersion(fields[len(fields)-1])
	if err != nil {
		logger.Warn("could not parse compiler version", slog.String("build", p.Entry.Name), slog.String("output", string(out)))
		return
	}

	if reported.LessThan(minimum) {
		logger.Warn("staged compiler is older than the supported minimum",
			slog.String("build", p.Entry.Name),
			slog.String("version", reported.String()),
			slog.String("minimum", minimum.String()))
	}
}

func copyFile(src, dst string) error {
	if same, err := sameFile(src, dst); err == nil && same {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

func exeExtension() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
