package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/storage/bolt"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
}

// HostSummary describes a stored battle.
type HostSummary struct {
	ID       string        `json:"id"`
	Ruleset  string        `json:"ruleset"`
	Seed     int64         `json:"seed"`
	Turn     fight.Turn    `json:"turn"`
	Points   [2]int        `json:"points"`
	Deaths   [2]int        `json:"deaths"`
	Bones    [2]int        `json:"bones"`
	Hands    [2]int        `json:"hands"`
	Decks    [2]int        `json:"decks"`
	Events   int           `json:"events"`
	Backlog  int           `json:"backlog"`
	Waiting  *game.Waiting `json:"waiting,omitempty"`
	Over     bool          `json:"over"`
	Winner   *fight.Side   `json:"winner,omitempty"`
	Checksum string        `json:"checksum"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [battle-id]",
		Short: "Show battles held in a BoltDB store",
		Long: `Show the battle records of a BoltDB host store.

Without an id every stored battle id is listed. With an id the battle's turn,
counters, pending request and checksum are shown.

Examples:
  fightctl inspect --db data/battles.db
  fightctl inspect --db data/battles.db 3f2a --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the BoltDB store (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := bolt.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	if len(args) == 0 {
		ids, err := st.IDs(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list battles", err)
		}
		if opts.Format == "json" {
			if ids == nil {
				ids = []string{}
			}
			return writeJSON(w, map[string][]string{"battles": ids})
		}
		if len(ids) == 0 {
			fmt.Fprintln(w, "No battles stored.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(w, id)
		}
		return nil
	}

	h, err := st.Load(ctx, args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load battle", err)
	}
	sum := summarize(h)
	if opts.Format == "json" {
		return writeJSON(w, sum)
	}
	printSummary(w, sum)
	return nil
}

func summarize(h *game.Host) HostSummary {
	f := h.Fight
	sum := HostSummary{
		ID:       h.ID,
		Ruleset:  h.Ruleset,
		Seed:     h.Seed,
		Turn:     f.Turn,
		Points:   f.Points,
		Events:   len(h.Log),
		Backlog:  len(h.Backlog),
		Waiting:  h.Waiting,
		Over:     f.Over(),
		Checksum: game.ComputeChecksum(f).Hash,
	}
	for _, side := range fight.Sides {
		sum.Deaths[side] = f.Players[side].Deaths
		sum.Bones[side] = f.Players[side].Bones
		sum.Hands[side] = len(f.Hands[side])
		sum.Decks[side] = f.Decks[side].Main.Len() + f.Decks[side].Side.Len()
	}
	if winner, ok := f.Winner(); ok {
		sum.Winner = &winner
	}
	return sum
}

func printSummary(w io.Writer, s HostSummary) {
	fmt.Fprintf(w, "battle   %s (ruleset %s, seed %d)\n", s.ID, s.Ruleset, s.Seed)
	fmt.Fprintf(w, "turn     %s %s\n", s.Turn.Side, s.Turn.Phase)
	fmt.Fprintf(w, "points   A=%d B=%d\n", s.Points[fight.SideA], s.Points[fight.SideB])
	fmt.Fprintf(w, "deaths   A=%d B=%d\n", s.Deaths[fight.SideA], s.Deaths[fight.SideB])
	fmt.Fprintf(w, "bones    A=%d B=%d\n", s.Bones[fight.SideA], s.Bones[fight.SideB])
	fmt.Fprintf(w, "hands    A=%d B=%d\n", s.Hands[fight.SideA], s.Hands[fight.SideB])
	fmt.Fprintf(w, "decks    A=%d B=%d\n", s.Decks[fight.SideA], s.Decks[fight.SideB])
	fmt.Fprintf(w, "events   %d settled, %d in backlog\n", s.Events, s.Backlog)
	if s.Waiting != nil {
		fmt.Fprintf(w, "waiting  %s answers %s from %s\n", s.Waiting.Side, s.Waiting.Request.Kind, s.Waiting.Behavior)
	}
	if s.Winner != nil {
		fmt.Fprintf(w, "winner   %s\n", *s.Winner)
	}
	fmt.Fprintf(w, "checksum %s\n", s.Checksum)
}
