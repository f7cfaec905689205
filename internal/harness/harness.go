package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/tbench/internal/benches"
	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

// DefaultSeed seeds stimulus generation when a scenario does not set one.
const DefaultSeed = 1

type config struct {
	logger    *slog.Logger
	observers []tb.Observer
}

// Option configures Run.
type Option func(*config)

// WithLogger sets the logger passed to the kernel and the testbench. Runs
// are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithObserver adds an observer that sees every testbench event alongside
// the trace recorder.
func WithObserver(o tb.Observer) Option {
	return func(c *config) { c.observers = append(c.observers, o) }
}

// Run executes a scenario on a fresh kernel and returns the result.
//
// Timeouts and checking failures are test outcomes: they fail the result
// and are listed in Errors. Any other error, such as an unknown DUT or a
// bad clock binding, is returned as err.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger.With("scenario", s.Name)

	entry, err := benches.Lookup(s.DUT)
	if err != nil {
		return nil, err
	}
	timeout, err := s.Timeout.Duration()
	if err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}

	k := sim.New(sim.WithLogger(logger))
	d, err := entry.Elaborate(k, s.Params)
	if err != nil {
		return nil, fmt.Errorf("elaborate %s: %w", s.DUT, err)
	}

	rec := &recorder{}
	tbOpts, err := s.testbenchOptions(entry)
	if err != nil {
		return nil, err
	}
	tbOpts = append(tbOpts, tb.WithLogger(logger), tb.WithObserver(rec))
	for _, o := range cfg.observers {
		tbOpts = append(tbOpts, tb.WithObserver(o))
	}

	seed := uint64(DefaultSeed)
	if s.Generate != nil && s.Generate.Seed != 0 {
		seed = s.Generate.Seed
	}

	var bench tb.Bench
	runErr := k.Run(ctx, func(p *sim.Proc) error {
		b, err := entry.New(p, d, seed, tbOpts...)
		if err != nil {
			return err
		}
		bench = b
		t := b.Base()
		if err := t.AssignParams(s.AssignParams...); err != nil {
			return err
		}
		if err := t.Initialize(p); err != nil {
			return err
		}
		if s.Generate != nil {
			return tb.RunBatches(p, b, s.Generate.Batches, int64(timeout), sim.PS)
		}
		if err := b.LoadDrivers(s.stimulus()); err != nil {
			return fmt.Errorf("load drivers: %w", err)
		}
		if err := b.LoadMonitors(s.expectations()); err != nil {
			return fmt.Errorf("load monitors: %w", err)
		}
		return t.WaitEnd(p, int64(timeout), sim.PS)
	})
	if runErr != nil && !tb.IsTimeout(runErr) && !tb.IsCheckingFailure(runErr) {
		return nil, fmt.Errorf("run scenario %s: %w", s.Name, runErr)
	}

	result := NewResult()
	result.Trace = append(result.Trace, rec.trace...)
	result.EndTimePS = int64(k.Now())
	if bench != nil {
		t := bench.Base()
		result.Status = t.State().String()
		for n, v := range t.Params() {
			result.Params[n] = v
		}
		var cf *tb.CheckingFailure
		errors.As(runErr, &cf)
		for _, f := range t.Failures() {
			if f != cf {
				result.AddError(f.Error())
			}
		}
	}
	if runErr != nil {
		result.AddError(runErr.Error())
	}
	for _, port := range d.Ports() {
		result.Signals[port.Name] = d.MustSignal(port.Name).Get()
	}

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}

	digest, err := Digest(s.Name, s.DUT, result)
	if err != nil {
		return nil, err
	}
	result.Digest = digest

	logger.Info("scenario finished", "status", result.Status, "pass", result.Pass, "time_ps", result.EndTimePS)
	return result, nil
}

// testbenchOptions turns the scenario's clock, reset and strictness
// overrides into testbench options. Bench defaults apply when unset.
func (s *Scenario) testbenchOptions(e benches.Entry) ([]tb.Option, error) {
	var opts []tb.Option
	if c := s.Clock; c != nil {
		if c.Signal != "" {
			opts = append(opts, tb.WithClock(c.Signal))
		}
		if c.Period > 0 {
			u, err := sim.ParseUnit(orDefault(c.Unit, string(sim.NS)))
			if err != nil {
				return nil, fmt.Errorf("clock: %w", err)
			}
			opts = append(opts, tb.WithClockPeriod(c.Period, u))
		}
	}
	if r := s.Reset; r != nil {
		port := orDefault(r.Signal, e.DUT.Reset)
		if port == "" {
			return nil, fmt.Errorf("reset: dut %s has no reset port, set reset.signal", s.DUT)
		}
		activeHigh := e.DUT.ResetActiveHigh
		if r.ActiveHigh != nil {
			activeHigh = *r.ActiveHigh
		}
		opts = append(opts, tb.WithReset(port, activeHigh))
	}
	if s.Strict != nil {
		opts = append(opts, tb.WithStrict(*s.Strict))
	}
	return opts, nil
}

func (s *Scenario) stimulus() tb.Stimulus {
	in := make(tb.Stimulus, len(s.Drivers))
	for name, rows := range s.Drivers {
		items := make([]tb.Item, len(rows))
		for i, r := range rows {
			items[i] = r.Item()
		}
		in[name] = items
	}
	return in
}

func (s *Scenario) expectations() tb.Expectations {
	exp := make(tb.Expectations, len(s.Monitors))
	for name, rows := range s.Monitors {
		es := make([]tb.Expectation, len(rows))
		for i, r := range rows {
			es[i] = r.Expectation()
		}
		exp[name] = es
	}
	return exp
}

// SortedParams returns the parameter names of r in order.
func (r *Result) SortedParams() []string {
	names := make([]string, 0, len(r.Params))
	for n := range r.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
