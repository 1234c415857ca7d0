package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/storage/archive"
)

// ArchiveOptions holds flags for the archive command.
type ArchiveOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// ArchivedBattle is one line of the archive listing.
type ArchivedBattle struct {
	ID         string    `json:"id"`
	Ruleset    string    `json:"ruleset"`
	Seed       int64     `json:"seed"`
	Winner     string    `json:"winner"`
	Events     int       `json:"events"`
	Checksum   string    `json:"checksum"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List finished battles in the SQLite archive",
		Long: `List the most recently finished battles recorded in the archive.

Use "fightctl replay --archive" to verify one of them.

Examples:
  fightctl archive --db data/archive.db
  fightctl archive --db data/archive.db --limit 5 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite archive (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of battles to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runArchive(opts *ArchiveOptions, cmd *cobra.Command) error {
	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, "--limit must be positive")
	}

	st, err := archive.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open archive", err)
	}
	defer st.Close()

	sums, err := st.List(context.Background(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list battles", err)
	}

	battles := make([]ArchivedBattle, 0, len(sums))
	for _, s := range sums {
		battles = append(battles, ArchivedBattle{
			ID:         s.ID,
			Ruleset:    s.Ruleset,
			Seed:       s.Seed,
			Winner:     s.Winner.String(),
			Events:     s.Events,
			Checksum:   s.FinalChecksum,
			FinishedAt: s.FinishedAt,
		})
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, map[string][]ArchivedBattle{"battles": battles})
	}
	if len(battles) == 0 {
		fmt.Fprintln(w, "No battles archived.")
		return nil
	}
	for _, b := range battles {
		fmt.Fprintf(w, "%s  winner %s  %4d events  %s  %s\n",
			b.ID, b.Winner, b.Events, b.FinishedAt.Format(time.RFC3339), b.Checksum)
	}
	return nil
}
