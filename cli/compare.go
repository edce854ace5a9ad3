package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hash-org/hashbench/cases"
	"github.com/hash-org/hashbench/config"
	"github.com/hash-org/hashbench/output"
	"github.com/hash-org/hashbench/provider"
	"github.com/hash-org/hashbench/results"
)

func compareCmd() *cobra.Command {
	var casesPath string

	cmd := &cobra.Command{
		Use:   "compare LEFT RIGHT",
		Short: "Compare two compiler builds over the configured test cases",
		Long: "Compare two compiler builds over the configured test cases.\n\n" +
			"LEFT and RIGHT are each either a path to a compiler executable or a git\n" +
			"revision of the compiler repository to build. LEFT is treated as the\n" +
			"original and RIGHT as the result; all differences are reported relative\n" +
			"to LEFT.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, casesPath, strings.TrimSpace(args[0]), strings.TrimSpace(args[1]))
		},
	}

	cmd.Flags().StringVar(&casesPath, "cases", "", "Path to the JSON file of test cases to benchmark (required).")
	cmd.MarkFlagRequired("cases")
	cmd.Flags().String("repository", "", "Path to the compiler repository.")
	cmd.Flags().String("output", "", "Output format, one of: table, json.")
	cmd.Flags().String("optimisation-level", "", "Optimisation level to build compiler revisions with, one of: debug, release.")
	viper.BindPFlag("repository", cmd.Flags().Lookup("repository"))
	viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	viper.BindPFlag("optimisation_level", cmd.Flags().Lookup("optimisation-level"))

	return cmd
}

func runCompare(cmd *cobra.Command, casesPath, left, right string) error {
	settings := config.FromViper()

	if info, err := os.Stat(settings.Repository); err != nil || !info.IsDir() {
		return fmt.Errorf("the repository %s does not exist or is not a directory", settings.Repository)
	}

	testConfig, err := cases.ParseCasesFile(casesPath)
	if err != nil {
		return err
	}

	providers := make([]*provider.CompilationProvider, 0, 2)
	for _, operand := range []struct{ name, value string }{{"left", left}, {"right", right}} {
		entry := provider.ToEntry(settings.Repository, operand.name, operand.value)
		if entry == nil {
			return fmt.Errorf("the %s comparison object is not a valid path to an executable or a revision number", operand.name)
		}

		p, err := provider.CompileAndCopy(logger, settings, entry)
		if err != nil {
			return fmt.Errorf("failed to stage the %s comparison object: %w", operand.name, err)
		}
		providers = append(providers, p)
	}

	// One test case, one build, one iteration at a time. Benchmark runs are
	// deliberately serialized so they cannot contaminate each other's CPU
	// and memory measurements.
	bar := progressbar.NewOptions(len(testConfig.Cases)*len(providers),
		progressbar.OptionSetDescription("benchmarking"),
		progressbar.OptionSetWriter(os.Stderr))

	res := &results.TestResults{}
	for caseID := range testConfig.Cases {
		c := &testConfig.Cases[caseID]

		caseResults := make([]*cases.TestCaseResult, 0, len(providers))
		for _, p := range providers {
			runner := cases.NewCompilerRunner(&cases.CompilerRunnerInput{
				Logger:            logger,
				Repo:              settings.Repository,
				CompilerPath:      p.Path,
				CompilerName:      p.Entry.Name,
				TempDir:           settings.TempDir,
				OptimisationLevel: string(settings.OptimisationLevel),
			})

			result := cases.NewAggregator(logger, runner).Run(cmd.Context(), c, caseID)
			if !result.Succeeded() {
				logger.Error("failed to benchmark the case",
					slog.String("case", c.Name), slog.String("build", p.Entry.Name))
			}
			caseResults = append(caseResults, result)
			bar.Add(1)
		}

		res.Append(results.NewResultEntry(c.Name, caseResults[0], caseResults[1]))
	}
	fmt.Fprintln(os.Stderr)

	switch settings.OutputKind {
	case config.OutputJSON:
		return output.WriteJSON(os.Stdout, res)
	case config.OutputTable:
		return output.WriteTables(os.Stdout, res, providers[0], providers[1])
	default:
		return fmt.Errorf("unknown output kind: %s", settings.OutputKind)
	}
}
