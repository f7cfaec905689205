package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tbench/internal/harness"
	"github.com/roach88/tbench/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
	Scenario string // optional - runs of one scenario only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Scenario      string `json:"scenario"`
	StoredDigest  string `json:"stored_digest"`
	ReplayDigest  string `json:"replay_digest,omitempty"`
	Status        string `json:"status,omitempty"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run stored runs and verify determinism",
		Long: `Re-run stored scenarios and verify that each reproduces its stored trace.

Every finished run in the database carries its scenario source. Replay
parses that source, runs it again on a fresh kernel and compares the new
trace digest with the stored one.

Exit codes:
  0 - All runs reproduced their digest
  1 - Determinism verification failed (digest differs or replay failed)
  2 - Command error (database not found, etc.)

Examples:
  tbench replay --db ./runs.db
  tbench replay --db ./runs.db --run 0192...
  tbench replay --db ./runs.db --scenario timer_countdown --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "replay runs of this scenario only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	out := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx, store.RunFilter{Scenario: opts.Scenario})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		AllDeterministic: true,
	}
	for _, run := range runs {
		if !run.Finished {
			logger.Warn("skipping unfinished run", "run", run.ID)
			continue
		}
		rr := replayRun(ctx, run, logger)
		result.Runs = append(result.Runs, rr)
		if !rr.Deterministic {
			result.AllDeterministic = false
		}
	}
	result.TotalRuns = len(result.Runs)

	if out.JSON() {
		if err := out.Respond(result.AllDeterministic, result, "E_DETERMINISM", "determinism verification failed"); err != nil {
			return err
		}
	} else {
		printReplay(cmd.OutOrStdout(), result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// replayRun runs a stored scenario source again and compares digests.
func replayRun(ctx context.Context, run store.Run, logger *slog.Logger) ReplayRunResult {
	rr := ReplayRunResult{RunID: run.ID, Scenario: run.Scenario, StoredDigest: run.Digest}

	scenario, err := harness.ParseScenario([]byte(run.Source))
	if err != nil {
		rr.Error = fmt.Sprintf("stored source no longer parses: %v", err)
		return rr
	}
	result, err := harness.Run(ctx, scenario, harness.WithLogger(logger))
	if err != nil {
		rr.Error = fmt.Sprintf("replay failed: %v", err)
		return rr
	}
	rr.ReplayDigest = result.Digest
	rr.Status = result.Status
	rr.Deterministic = result.Digest == run.Digest
	logger.Debug("replayed run", "run", run.ID, "deterministic", rr.Deterministic)
	return rr
}

func printReplay(w io.Writer, result ReplayResult) {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return
	}
	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, rr := range result.Runs {
		mark := "✓"
		if !rr.Deterministic {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s (%s)\n", mark, rr.RunID, rr.Scenario)
		if rr.Error != "" {
			fmt.Fprintf(w, "  %s\n", rr.Error)
		} else if !rr.Deterministic {
			fmt.Fprintf(w, "  stored %s, replayed %s\n", rr.StoredDigest, rr.ReplayDigest)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
}
