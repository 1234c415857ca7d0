package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/storage/archive"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	File     string
	Archive  string
	BattleID string
	Checksum string
	SaveDir  string
}

// ReplayResult is the outcome of settling a battle log again.
type ReplayResult struct {
	BattleID string `json:"battle_id"`
	Events   int    `json:"events"`
	Checksum string `json:"checksum"`
	Expected string `json:"expected,omitempty"`
	Matches  bool   `json:"matches"`
	SavedTo  string `json:"saved_to,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Settle a battle log again and verify the final state",
		Long: `Settle a recorded battle log against its initial state and verify the result.

The log comes from a .replay file or from the archive. Archived battles are
checked against the checksum stored when they finished; for files pass the
expected checksum with --checksum.

Exit codes:
  0 - The replay reproduced the expected state (or no expectation was given)
  1 - Checksum mismatch
  2 - Command error (unreadable file, unknown battle, etc.)

Examples:
  fightctl replay --file replays/3f2a.replay
  fightctl replay --archive data/archive.db --id 3f2a --save replays/`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "path to a .replay file")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "path to the SQLite archive")
	cmd.Flags().StringVar(&opts.BattleID, "id", "", "archived battle id")
	cmd.Flags().StringVar(&opts.Checksum, "checksum", "", "expected final checksum")
	cmd.Flags().StringVar(&opts.SaveDir, "save", "", "write the replay to this directory")
	cmd.MarkFlagsMutuallyExclusive("file", "archive")
	cmd.MarkFlagsRequiredTogether("archive", "id")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	var (
		rep *game.Replay
		err error
	)
	expected := opts.Checksum
	switch {
	case opts.File != "":
		rep, err = game.LoadReplayFromFile(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load replay", err)
		}
	case opts.Archive != "":
		st, err := archive.Open(opts.Archive)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open archive", err)
		}
		defer st.Close()

		sum, err := st.Get(ctx, opts.BattleID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read battle", err)
		}
		rep, err = st.Replay(ctx, opts.BattleID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read battle log", err)
		}
		if expected == "" {
			expected = sum.FinalChecksum
		}
	default:
		return NewExitError(ExitCommandError, "one of --file and --archive is required")
	}

	w := cmd.OutOrStdout()
	rep.Start()
	for {
		e, _, ok, err := rep.Next()
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("event %d does not settle", rep.Position()), err)
		}
		if !ok {
			break
		}
		if opts.Verbose && opts.Format == "text" {
			fmt.Fprintf(w, "#%d %s\n", rep.Position(), e.Kind)
		}
	}
	final, err := rep.Final()
	if err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	result := ReplayResult{
		BattleID: rep.BattleID,
		Events:   rep.Size(),
		Checksum: game.ComputeChecksum(final).Hash,
		Expected: expected,
	}
	result.Matches = expected == "" || expected == result.Checksum

	if opts.SaveDir != "" {
		path, err := rep.SaveToFile(opts.SaveDir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to save replay", err)
		}
		result.SavedTo = path
	}

	if opts.Format == "json" {
		if err := writeJSON(w, result); err != nil {
			return WrapExitError(ExitCommandError, "failed to encode result", err)
		}
	} else {
		fmt.Fprintf(w, "battle %s: %d events, checksum %s\n", result.BattleID, result.Events, result.Checksum)
		if result.SavedTo != "" {
			fmt.Fprintf(w, "saved to %s\n", result.SavedTo)
		}
		switch {
		case result.Expected == "":
		case result.Matches:
			fmt.Fprintln(w, "checksum matches")
		default:
			fmt.Fprintf(w, "checksum mismatch: expected %s\n", result.Expected)
		}
	}

	if !result.Matches {
		return NewExitError(ExitFailure, "checksum mismatch")
	}
	return nil
}
