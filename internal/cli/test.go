package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xuxxeth/sx/internal/config"
	"github.com/xuxxeth/sx/internal/harness"
	"github.com/xuxxeth/sx/internal/logging"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter    string // scenario filter (glob pattern)
	Host      string // run only on this host kind
	GoldenDir string // compare event streams against {name}.golden here
	Update    bool   // rewrite golden files instead of comparing
}

// ScenarioResult holds the result of one scenario on one host kind.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Host   string   `json:"host"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run ledger scenarios",
		Long: `Run scenario files against fresh in-memory ledgers.

Every scenario runs once per host kind it names (all of sqlite, leveldb and
leveldb-direct by default). Steps must meet their expectations and every
assertion must hold. With --golden, each host's event stream must also match
{golden-dir}/{name}.golden byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  sx test ./scenarios
  sx test ./scenarios --filter "tip*"
  sx test ./scenarios --host leveldb
  sx test ./scenarios --golden ./golden
  sx test ./scenarios --golden ./golden --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")
	cmd.Flags().StringVar(&opts.Host, "host", "", "run only on this host kind (sqlite|leveldb|leveldb-direct)")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "directory of golden event streams")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files (requires --golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return commandError(out, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.Update && opts.GoldenDir == "" {
		return commandError(out, "--update requires --golden")
	}
	if opts.Host != "" && !slices.Contains(harness.HostKinds, harness.HostKind(opts.Host)) {
		return commandError(out, fmt.Sprintf("unknown host kind %q", opts.Host))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return commandError(out, fmt.Sprintf("failed to find scenarios: %v", err))
	}

	var runOpts []harness.Option
	if opts.Verbose {
		logger, err := logging.NewTo(config.LogConfig{Level: "debug", Format: "console"}, cmd.ErrOrStderr())
		if err != nil {
			return commandError(out, err.Error())
		}
		defer func() { _ = logger.Sync() }()
		runOpts = append(runOpts, harness.WithLogger(logger))
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, scenarioFile := range scenarioFiles {
		for _, r := range runScenario(scenarioFile, opts, runOpts) {
			result.Scenarios = append(result.Scenarios, r)
			result.Total++
			if r.Pass {
				result.Passed++
			} else {
				result.Failed++
			}
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

func commandError(out *OutputFormatter, msg string) error {
	_ = out.Error(ErrCodeArgument, msg, "")
	return NewExitError(ExitCommandError, msg)
}

// findScenarioFiles finds all YAML scenario files under dir, sorted by path.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario runs one scenario file on each selected host kind. A file that
// fails to load yields a single failed result.
func runScenario(scenarioFile string, opts *TestOptions, runOpts []harness.Option) []ScenarioResult {
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return []ScenarioResult{{
			Name:   filepath.Base(scenarioFile),
			Pass:   false,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}}
	}

	kinds := scenario.HostKinds()
	if opts.Host != "" {
		kinds = nil
		if slices.Contains(scenario.HostKinds(), harness.HostKind(opts.Host)) {
			kinds = []harness.HostKind{harness.HostKind(opts.Host)}
		}
	}

	results := make([]ScenarioResult, 0, len(kinds))
	for _, kind := range kinds {
		sr := ScenarioResult{Name: scenario.Name, Host: string(kind)}

		result, err := harness.Run(scenario, kind, runOpts...)
		if err != nil {
			sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
			results = append(results, sr)
			continue
		}
		sr.Errors = append(sr.Errors, result.Errors...)

		if opts.GoldenDir != "" {
			if err := checkGolden(opts, scenario.Name, result); err != nil {
				sr.Errors = append(sr.Errors, err.Error())
			}
		}

		sr.Pass = result.Pass && len(sr.Errors) == 0
		results = append(results, sr)
	}
	return results
}

// checkGolden compares a result's event stream against its golden file, or
// rewrites the file when updating.
func checkGolden(opts *TestOptions, name string, result *harness.Result) error {
	snapshot, err := harness.Snapshot(result.Events)
	if err != nil {
		return fmt.Errorf("failed to snapshot events: %w", err)
	}

	goldenPath := filepath.Join(opts.GoldenDir, name+".golden")
	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(goldenPath, snapshot, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	golden, err := os.ReadFile(goldenPath)
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(golden, snapshot) {
		return fmt.Errorf("event stream does not match %s (run with --update to regenerate)", goldenPath)
	}
	return nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, r := range result.Scenarios {
		label := r.Name
		if r.Host != "" {
			label = fmt.Sprintf("%s [%s]", r.Name, r.Host)
		}
		if r.Pass {
			fmt.Fprintf(w, "PASS %s\n", label)
			continue
		}
		fmt.Fprintf(w, "FAIL %s\n", label)
		for _, e := range r.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
