package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/syncstore/internal/harness"
)

// TestResult is the outcome of running one scenario file.
type TestResult struct {
	Scenario string   `json:"scenario"`
	File     string   `json:"file"`
	Pass     bool     `json:"pass"`
	Errors   []string `json:"errors,omitempty"`
}

// TestSummary aggregates the scenario outcomes.
type TestSummary struct {
	Total   int          `json:"total"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Results []TestResult `json:"results"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenario.yaml|dir>",
		Short: "Run conformance scenarios",
		Long: `Run one scenario file or every *.yaml scenario in a directory.

Each scenario executes against a fresh in-memory database with
deterministic row IDs, then its expectations are checked. Exit code 1
when any scenario fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runTest(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := scenarioFiles(path)
	if err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, err.Error())
	}

	h := &harness.Harness{}
	summary := &TestSummary{}
	for _, file := range files {
		sc, err := harness.LoadScenario(file)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
		formatter.VerboseLog("running scenario %s (%s)", sc.Name, file)

		res, err := h.Run(cmd.Context(), sc)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric,
				fmt.Sprintf("scenario %s: %v", sc.Name, err))
		}

		summary.Total++
		if res.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, TestResult{
			Scenario: sc.Name,
			File:     file,
			Pass:     res.Pass,
			Errors:   res.Errors,
		})
	}

	if err := outputTestSummary(formatter, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

// scenarioFiles resolves a path to a sorted list of scenario files.
func scenarioFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path not found: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := filepath.Glob(filepath.Join(path, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", path)
	}
	sort.Strings(files)
	return files, nil
}

func outputTestSummary(formatter *OutputFormatter, summary *TestSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	for _, r := range summary.Results {
		if r.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", r.Scenario)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", r.Scenario)
		for _, msg := range r.Errors {
			fmt.Fprintf(formatter.Writer, "    %s\n", msg)
		}
	}
	fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed (%d total)\n",
		summary.Passed, summary.Failed, summary.Total)
	return nil
}
