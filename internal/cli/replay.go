package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/unistate/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the verification result for a single session.
type ReplaySessionResult struct {
	Session       string         `json:"session"`
	Entries       int            `json:"entries"`
	Counts        map[string]int `json:"counts"`
	Deterministic bool           `json:"deterministic"`
	MismatchSeq   *int64         `json:"mismatch_seq,omitempty"`
	Todos         int            `json:"todos"`
	Goals         int            `json:"goals"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify recorded sessions for determinism",
		Long: `Re-run every recorded session from the initial state and compare
each resulting state digest with the recorded one.

The journal is an audit trail: replay never restores a live store.

Exit codes:
  0 - All sessions are deterministic
  1 - A recorded digest did not match its replay
  2 - Command error (database not found, unknown session, etc.)

Examples:
  unistate replay --db ./unistate.db
  unistate replay --db ./unistate.db --session 0190f5c4-...
  unistate replay --db ./unistate.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "verify a specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening would create an empty journal.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	var sessions []string
	if opts.Session != "" {
		sessions = []string{opts.Session}
	} else {
		sessions, err = j.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	for _, id := range sessions {
		sr, err := verifySession(ctx, j, id)
		if errors.Is(err, journal.ErrSessionNotFound) {
			return WrapExitError(ExitCommandError, "unknown session", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to verify session %s", id), err)
		}
		f.VerboseLog("Verified session %s: %d entries", id, sr.Entries)

		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if f.Format == "json" {
		if result.AllDeterministic {
			return f.Success(result)
		}
		if err := f.Failure(ErrCodeDeterminism, "determinism verification failed", result); err != nil {
			return err
		}
	} else {
		writeReplayText(f, result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func verifySession(ctx context.Context, j *journal.Journal, id string) (ReplaySessionResult, error) {
	v, err := journal.Verify(ctx, j, id)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	counts := make(map[string]int, len(v.Counts))
	for kind, n := range v.Counts {
		counts[string(kind)] = n
	}

	sr := ReplaySessionResult{
		Session:       v.Session,
		Entries:       v.Entries,
		Counts:        counts,
		Deterministic: v.Deterministic,
		Todos:         len(v.Final.Todos),
		Goals:         len(v.Final.Goals),
	}
	if v.Mismatch != nil {
		seq := v.Mismatch.Seq
		sr.MismatchSeq = &seq
	}
	return sr, nil
}

func writeReplayText(f *OutputFormatter, r ReplayResult) {
	w := f.Writer

	if r.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n\n", r.TotalSessions)
	for _, s := range r.Sessions {
		status := "✓"
		if !s.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Session: %s (%d entries, %d todos, %d goals)\n", status, s.Session, s.Entries, s.Todos, s.Goals)
		if f.Verbose {
			for _, kind := range slices.Sorted(maps.Keys(s.Counts)) {
				fmt.Fprintf(w, "    %s: %d\n", kind, s.Counts[kind])
			}
		}
		if s.MismatchSeq != nil {
			fmt.Fprintf(w, "    digest mismatch at seq %d\n", *s.MismatchSeq)
		}
	}

	fmt.Fprintln(w)
	if r.AllDeterministic {
		fmt.Fprintln(w, "All sessions deterministic.")
	} else {
		fmt.Fprintln(w, "Determinism verification FAILED.")
	}
}
