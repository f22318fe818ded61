package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/unistate/internal/harness"
	"github.com/roach88/unistate/internal/ids"
	"github.com/roach88/unistate/internal/journal"
	"github.com/roach88/unistate/internal/todo"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Session  string
	IDPrefix string

	// IDs overrides the id generator (for testing).
	// If nil, --id-prefix selects a sequence, otherwise UUIDv7 is used.
	IDs ids.Generator
}

// RunReport is the outcome of one scenario run.
type RunReport struct {
	Scenario      string     `json:"scenario"`
	Pass          bool       `json:"pass"`
	Steps         int        `json:"steps"`
	Notifications int        `json:"notifications"`
	Failures      []string   `json:"failures,omitempty"`
	Session       string     `json:"session,omitempty"`
	State         todo.State `json:"state"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against a fresh store",
		Long: `Run a scenario file against a fresh store and print the final state.

Adds without an id get one from the id generator: UUIDv7 by default,
or <prefix>-1, <prefix>-2, ... with --id-prefix.

With --db every dispatch is recorded to a SQLite journal, which
"unistate replay" can verify later. A session that already holds
entries is refused rather than extended.

Exit codes:
  0 - All expectations held
  1 - One or more expectations failed
  2 - Command error (unreadable or invalid scenario, database error)

Examples:
  unistate run ./scenarios/walk_through.yaml
  unistate run ./scenarios/walk_through.yaml --db ./unistate.db
  unistate run ./scenarios/generated_ids.yaml --id-prefix id --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record dispatches to this SQLite journal")
	cmd.Flags().StringVar(&opts.Session, "session", "", "new journal session id (default: generated UUIDv7)")
	cmd.Flags().StringVar(&opts.IDPrefix, "id-prefix", "", "generate sequential ids with this prefix")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := f.Logger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = f.Failure(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	f.VerboseLog("Loaded scenario %s (%d steps)", scenario.Name, len(scenario.Steps))

	runOpts := []harness.RunOption{
		harness.WithLogger(logger),
		harness.WithIDs(opts.generator()),
	}

	if opts.Database != "" {
		j, err := journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		session := opts.Session
		if session == "" {
			session = ids.UUIDv7{}.Next()
		}
		runOpts = append(runOpts, harness.WithJournal(j, session))
		logger.Info("recording session", "db", opts.Database, "session", session)
	}

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario run failed", err)
	}

	report := RunReport{
		Scenario:      result.Name,
		Pass:          result.Pass(),
		Steps:         len(result.Steps),
		Notifications: result.Notifications,
		Failures:      result.Failures,
		Session:       result.Session,
		State:         result.Final,
	}

	if report.Pass {
		if f.Format == "json" {
			return f.Success(report)
		}
		writeRunText(f, report)
		return nil
	}

	if f.Format == "json" {
		if err := f.Failure(ErrCodeExpectation, "expectations failed", report); err != nil {
			return err
		}
	} else {
		writeRunText(f, report)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("scenario %s: %d expectation(s) failed", report.Scenario, len(report.Failures)))
}

func (o *RunOptions) generator() ids.Generator {
	switch {
	case o.IDs != nil:
		return o.IDs
	case o.IDPrefix != "":
		return ids.NewSequence(o.IDPrefix)
	default:
		return ids.UUIDv7{}
	}
}

func writeRunText(f *OutputFormatter, r RunReport) {
	w := f.Writer

	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s (%d steps, %d notifications)\n", status, r.Scenario, r.Steps, r.Notifications)
	if r.Session != "" {
		fmt.Fprintf(w, "Session: %s\n", r.Session)
	}

	fmt.Fprintf(w, "\nTodos (%d):\n", len(r.State.Todos))
	for _, t := range r.State.Todos {
		mark := " "
		if t.Complete {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s  %s\n", mark, t.ID, t.Name)
	}

	fmt.Fprintf(w, "\nGoals (%d):\n", len(r.State.Goals))
	for _, g := range r.State.Goals {
		fmt.Fprintf(w, "  %s  %s\n", g.ID, g.Name)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "\nFailures:\n")
		for _, msg := range r.Failures {
			fmt.Fprintf(w, "  %s\n", strings.TrimSpace(msg))
		}
	}
}
