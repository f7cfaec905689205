package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tbench/internal/harness"
	"github.com/roach88/tbench/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter timeline to one event kind
	Scenario string // run listing filter
	Limit    int
}

// TraceResult holds the trace of one stored run.
type TraceResult struct {
	Run      store.Run            `json:"run"`
	Timeline []harness.TraceEvent `json:"timeline"`
	Stats    TraceStats           `json:"stats"`
	// Verified is true when the stored trace hashes to the stored digest.
	Verified bool `json:"verified"`
}

// TraceStats counts the events of a run by kind.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByKind      map[string]int `json:"by_kind"`
	Failures    int            `json:"failures"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a stored run",
		Long: `Show the trace of a run stored with "run --db".

The stored trace is re-hashed and checked against the digest recorded when
the run finished. Without --run, the stored runs are listed instead.

Exit codes:
  0 - Trace shown and digest verified
  1 - Stored trace does not match its digest
  2 - Command error (database not found, unknown run, etc.)

Examples:
  tbench trace --db ./runs.db
  tbench trace --db ./runs.db --scenario timer_countdown --limit 5
  tbench trace --db ./runs.db --run 0192...
  tbench trace --db ./runs.db --run 0192... --kind sample --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show events of this kind (state|reset|drive|sample|failure)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "list only runs of this scenario")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "list at most this many runs")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd)
	defer stop()
	out := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx, store.RunFilter{Scenario: opts.Scenario, Limit: opts.Limit})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if out.JSON() {
			return out.Success(runs)
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	stored, err := st.Result(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	digest, err := harness.Digest(run.Scenario, run.DUT, stored)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash trace", err)
	}

	result := TraceResult{
		Run:      run,
		Timeline: filterKind(stored.Trace, opts.Kind),
		Stats:    traceStats(stored.Trace),
		Verified: run.Finished && digest == run.Digest,
	}

	if out.JSON() {
		if err := out.Respond(result.Verified, result, "E_DIGEST", "stored trace does not match its digest"); err != nil {
			return err
		}
	} else {
		printTrace(cmd.OutOrStdout(), result, opts.Verbose)
	}

	if !result.Verified {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s: stored trace does not match its digest", run.ID))
	}
	return nil
}

func filterKind(evs []harness.TraceEvent, kind string) []harness.TraceEvent {
	if kind == "" {
		return evs
	}
	filtered := []harness.TraceEvent{}
	for _, ev := range evs {
		if ev.Kind == kind {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

func traceStats(evs []harness.TraceEvent) TraceStats {
	stats := TraceStats{TotalEvents: len(evs), ByKind: make(map[string]int)}
	for _, ev := range evs {
		stats.ByKind[ev.Kind]++
	}
	stats.Failures = stats.ByKind[harness.KindFailure]
	return stats
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return
	}
	for _, r := range runs {
		mark := "✓"
		if !r.Pass {
			mark = "✗"
		}
		if !r.Finished {
			mark = "…"
		}
		fmt.Fprintf(w, "%s %s  %s (%s) %s at %dps\n", mark, r.ID, r.Scenario, r.DUT, r.Status, r.EndTimePS)
	}
}

func printTrace(w io.Writer, tr TraceResult, verbose bool) {
	r := tr.Run
	fmt.Fprintf(w, "Run: %s\n", r.ID)
	fmt.Fprintf(w, "Scenario: %s (%s)\n", r.Scenario, r.DUT)
	fmt.Fprintf(w, "Status: %s at %dps\n", r.Status, r.EndTimePS)
	if verbose && len(r.Params) > 0 {
		names := make([]string, 0, len(r.Params))
		for n := range r.Params {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(w, "  %s = %d\n", n, r.Params[n])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	for _, ev := range tr.Timeline {
		fmt.Fprintf(w, "  %s\n", formatEvent(ev))
	}
	fmt.Fprintln(w)

	kinds := make([]string, 0, len(tr.Stats.ByKind))
	for k, n := range tr.Stats.ByKind {
		kinds = append(kinds, fmt.Sprintf("%d %s", n, k))
	}
	sort.Strings(kinds)
	fmt.Fprintf(w, "Events: %d (%s)\n", tr.Stats.TotalEvents, strings.Join(kinds, ", "))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}

	if tr.Verified {
		fmt.Fprintf(w, "✓ digest %s verified\n", r.Digest)
		return
	}
	fmt.Fprintf(w, "✗ digest %s does not match stored trace\n", r.Digest)
}

// formatEvent renders one event as "[seq] 40000ps sample:readout[1] [5] expected 5".
func formatEvent(ev harness.TraceEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %dps %s", ev.Seq, ev.TimePS, ev.Key())
	switch ev.Kind {
	case harness.KindDrive, harness.KindSample, harness.KindFailure:
		fmt.Fprintf(&b, "[%d]", ev.Index)
	}
	if ev.From != "" {
		fmt.Fprintf(&b, " from %s", ev.From)
	}
	if ev.Values != nil {
		fmt.Fprintf(&b, " %v", ev.Values)
	}
	if ev.Expected != "" {
		fmt.Fprintf(&b, " expected %s", ev.Expected)
		if !ev.Match {
			b.WriteString(" (mismatch)")
		}
	}
	if ev.Message != "" {
		fmt.Fprintf(&b, ": %s", ev.Message)
	}
	return b.String()
}
