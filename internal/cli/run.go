package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tbench/internal/harness"
	"github.com/roach88/tbench/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// IDGenerator overrides the run id generator (for testing).
	// If nil, the store's UUIDv7 default is used.
	IDGenerator store.IDGenerator
}

// RunOutput is the data of a run command response.
type RunOutput struct {
	Scenario  string   `json:"scenario"`
	DUT       string   `json:"dut"`
	Pass      bool     `json:"pass"`
	Status    string   `json:"status"`
	EndTimePS int64    `json:"end_time_ps"`
	Digest    string   `json:"digest"`
	Errors    []string `json:"errors,omitempty"`
	RunID     string   `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario",
		Long: `Run a scenario file (YAML or CUE) and report its outcome.

With --db the run, its scenario source and its full trace are stored in a
SQLite database so they can be inspected with "trace" and re-checked with
"replay".

Exit codes:
  0 - Scenario passed
  1 - Scenario failed (checking failure, timeout or assertion)
  2 - Command error (bad scenario file, unknown DUT, etc.)

Examples:
  tbench run scenarios/timer_countdown.yaml
  tbench run scenarios/tlc_request.cue --db ./runs.db
  tbench run scenarios/fifo_generate.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "store the run in this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())
	out := opts.formatter(cmd)

	source, err := harness.ReadScenarioSource(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read scenario", err)
	}
	scenario, err := harness.ParseScenario(source)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid scenario %s", path), err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	logger.Debug("running scenario", "scenario", scenario.Name, "dut", scenario.DUT)
	result, err := harness.Run(ctx, scenario, harness.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	output := RunOutput{
		Scenario:  scenario.Name,
		DUT:       scenario.DUT,
		Pass:      result.Pass,
		Status:    result.Status,
		EndTimePS: result.EndTimePS,
		Digest:    result.Digest,
		Errors:    result.Errors,
	}

	if opts.Database != "" {
		id, err := recordRun(ctx, opts, scenario, source, result, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to store run", err)
		}
		output.RunID = id
	}

	if out.JSON() {
		if err := out.Respond(result.Pass, output, "E_SCENARIO_FAILED", "scenario failed"); err != nil {
			return err
		}
	} else {
		printRun(cmd.OutOrStdout(), output)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func recordRun(ctx context.Context, opts *RunOptions, s *harness.Scenario, source []byte, r *harness.Result, logger *slog.Logger) (string, error) {
	var storeOpts []store.Option
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}
	st, err := store.Open(opts.Database, storeOpts...)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	id, err := st.RecordRun(ctx, s, source, r)
	if err != nil {
		return "", err
	}
	logger.Info("run stored", "run", id, "events", len(r.Trace), "db", opts.Database)
	return id, nil
}

func printRun(w io.Writer, o RunOutput) {
	mark := "✓"
	if !o.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (%s) %s at %dps\n", mark, o.Scenario, o.DUT, o.Status, o.EndTimePS)
	for _, e := range o.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	fmt.Fprintf(w, "  digest: %s\n", o.Digest)
	if o.RunID != "" {
		fmt.Fprintf(w, "  run: %s\n", o.RunID)
	}
}

// signalContext returns the command context, cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
