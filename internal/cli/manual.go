package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tbench/internal/clock"
	"github.com/roach88/tbench/internal/dut"
	"github.com/roach88/tbench/internal/sim"
)

// ManualOptions holds flags for the manual command.
type ManualOptions struct {
	*RootOptions
	DUT    string
	Params map[string]int64
	Period int64
	Unit   string
}

// NewManualCommand creates the manual command.
func NewManualCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ManualOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Drive a DUT by hand, one clock cycle at a time",
		Long: `Start an interactive console on one DUT model.

Each cycle lists the input ports with their index and current value. Enter
"<index> <value>" pairs separated by commas, or an empty line to keep the
inputs, and the clock ticks once. All ports are then listed; press enter
for the next cycle or type q to quit.

Examples:
  tbench manual --dut timer
  tbench manual --dut fifo --param DEPTH=2 --param DATA_WIDTH=4`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			return runManual(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout(), opts.logger(cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVar(&opts.DUT, "dut", "", "DUT model to drive (required)")
	_ = cmd.MarkFlagRequired("dut")
	cmd.Flags().StringToInt64Var(&opts.Params, "param", nil, "parameter override NAME=VALUE (repeatable)")
	cmd.Flags().Int64Var(&opts.Period, "period", clock.DefaultPeriod, "clock period")
	cmd.Flags().StringVar(&opts.Unit, "unit", string(clock.DefaultUnit), "clock period unit (ps|ns|us|ms|s)")

	return cmd
}

func runManual(ctx context.Context, opts *ManualOptions, in io.Reader, out io.Writer, logger *slog.Logger) error {
	info, err := dut.Lookup(opts.DUT)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown dut", err)
	}
	if info.Clock == "" {
		return NewExitError(ExitCommandError, fmt.Sprintf("dut %s has no clock", info.Name))
	}
	unit, err := sim.ParseUnit(opts.Unit)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid unit", err)
	}
	m, err := info.New(opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}

	k := sim.New(sim.WithLogger(logger))
	d, err := k.Elaborate(info.Name, m, info.Clock)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to elaborate dut", err)
	}
	src, err := clock.New(d.Clock(), opts.Period, unit)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid clock", err)
	}

	c := newConsole(d, src, info.Clock, in, out)
	if err := k.Run(ctx, c.run); err != nil {
		return WrapExitError(ExitFailure, "manual session failed", err)
	}
	fmt.Fprintf(out, "%d cycle(s) at %s\n", c.cycles, k.Now())
	return nil
}

// console is the per-cycle read-apply-tick loop of the manual command. It
// runs as the main simulation process.
type console struct {
	d      *sim.DUT
	src    *clock.Source
	inputs []sim.Port
	in     *bufio.Scanner
	out    io.Writer
	cycles int64
}

func newConsole(d *sim.DUT, src *clock.Source, clockPort string, in io.Reader, out io.Writer) *console {
	c := &console{d: d, src: src, in: bufio.NewScanner(in), out: out}
	for _, p := range d.Ports() {
		if p.Dir == sim.In && p.Name != clockPort {
			c.inputs = append(c.inputs, p)
		}
	}
	return c
}

// run ends the session on q or end of input.
func (c *console) run(p *sim.Proc) error {
	if err := c.src.Start(p); err != nil {
		return err
	}
	for {
		fmt.Fprintf(c.out, "===== cycle %d =====\n", c.cycles)
		for i, port := range c.inputs {
			fmt.Fprintf(c.out, "%d: %s %d\n", i, port.Name, c.d.MustSignal(port.Name).Get())
		}

		for {
			fmt.Fprint(c.out, ">>> ")
			line, ok := c.readLine()
			if !ok {
				return nil
			}
			if err := c.apply(line); err != nil {
				fmt.Fprintf(c.out, "invalid input, try again: %v\n", err)
				continue
			}
			break
		}

		if err := p.RisingEdge(c.d.Clock()); err != nil {
			return err
		}
		c.cycles++
		c.listSignals(p.Now())

		line, ok := c.readLine()
		if !ok || strings.TrimSpace(line) == "q" {
			return nil
		}
	}
}

func (c *console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

// apply parses "idx value[, idx value...]" and writes every value, or none
// when any pair is invalid.
func (c *console) apply(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	type write struct {
		sig *sim.Signal
		v   uint64
	}
	var writes []write
	for _, pair := range strings.Split(line, ",") {
		fields := strings.Fields(pair)
		if len(fields) != 2 {
			return fmt.Errorf("%q: want <index> <value>", strings.TrimSpace(pair))
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil || idx < 0 || idx >= len(c.inputs) {
			return fmt.Errorf("%q: no input with index %s", strings.TrimSpace(pair), fields[0])
		}
		v, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return fmt.Errorf("%q: bad value %s", strings.TrimSpace(pair), fields[1])
		}
		writes = append(writes, write{sig: c.d.MustSignal(c.inputs[idx].Name), v: v})
	}
	for _, w := range writes {
		w.sig.Set(w.v)
	}
	return nil
}

func (c *console) listSignals(now sim.Time) {
	fmt.Fprintf(c.out, "--- %s ---\n", now)
	for _, port := range c.d.Ports() {
		fmt.Fprintf(c.out, "%s = %d\n", port.Name, c.d.MustSignal(port.Name).Get())
	}
}
