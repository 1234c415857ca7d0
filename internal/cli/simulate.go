package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/scenario"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	GoldenDir string
	Update    bool
}

// SimulateScenarioResult is one scenario's outcome.
type SimulateScenarioResult struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Events   int      `json:"events"`
	Checksum string   `json:"checksum"`
	Failures []string `json:"failures,omitempty"`
}

// SimulateResult holds the outcome of every scenario.
type SimulateResult struct {
	Scenarios []SimulateScenarioResult `json:"scenarios"`
	Passed    int                      `json:"passed"`
	Failed    int                      `json:"failed"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml|dir>...",
		Short: "Run battle scenarios and check their expectations",
		Long: `Run YAML battle scenarios and check their step and final expectations.

Directories are expanded to the *.yaml files they contain. With --golden each
trace is compared with <dir>/<name>.golden; --update rewrites those files.

Exit codes:
  0 - All scenarios passed
  1 - At least one scenario failed
  2 - Command error (unreadable scenario, bad setup, etc.)

Examples:
  fightctl simulate scenarios/
  fightctl simulate scenarios/last_life.yaml --golden scenarios/golden
  fightctl simulate scenarios/ --golden scenarios/golden --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "directory of golden traces")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden traces instead of comparing")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command, args []string) error {
	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	scenarios, err := loadScenarios(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	if len(scenarios) == 0 {
		return NewExitError(ExitCommandError, "no scenarios found")
	}

	logger := opts.logger()
	defer logger.Sync()

	result := SimulateResult{Scenarios: make([]SimulateScenarioResult, 0, len(scenarios))}
	for _, s := range scenarios {
		res, err := scenario.Run(s, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to run scenario", err)
		}
		if opts.GoldenDir != "" {
			if err := checkGolden(opts, res); err != nil {
				return WrapExitError(ExitCommandError, "failed to handle golden trace", err)
			}
		}

		out := SimulateScenarioResult{
			Name:     res.Name,
			Passed:   res.Passed(),
			Events:   len(res.Host.Log),
			Checksum: game.ComputeChecksum(res.Host.Fight).Hash,
			Failures: res.Failures,
		}
		if out.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, out)

		if opts.Verbose && opts.Format == "text" {
			fmt.Fprint(cmd.OutOrStdout(), string(res.Golden()))
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return WrapExitError(ExitCommandError, "failed to encode result", err)
		}
	} else {
		w := cmd.OutOrStdout()
		for _, s := range result.Scenarios {
			if s.Passed {
				fmt.Fprintf(w, "PASS %s (%d events)\n", s.Name, s.Events)
				continue
			}
			fmt.Fprintf(w, "FAIL %s\n", s.Name)
			for _, f := range s.Failures {
				fmt.Fprintf(w, "  %s\n", f)
			}
		}
		fmt.Fprintf(w, "%d passed, %d failed\n", result.Passed, result.Failed)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// checkGolden writes or compares the scenario's golden trace. A mismatch is
// recorded as a failure on res.
func checkGolden(opts *SimulateOptions, res *scenario.Result) error {
	path := filepath.Join(opts.GoldenDir, res.Name+".golden")
	trace := res.Golden()
	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, trace, 0o644)
	}
	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		res.Failures = append(res.Failures, fmt.Sprintf("golden file %s is missing", path))
		return nil
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(want, trace) {
		res.Failures = append(res.Failures, fmt.Sprintf("trace differs from %s", path))
	}
	return nil
}

func loadScenarios(paths []string) ([]*scenario.Scenario, error) {
	var out []*scenario.Scenario
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			dir, err := scenario.LoadDir(path)
			if err != nil {
				return nil, err
			}
			out = append(out, dir...)
			continue
		}
		s, err := scenario.Load(path)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
