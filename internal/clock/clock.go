// Package clock provides the free-running clock process that testbenches
// synchronize against.
package clock

import (
	"fmt"
	"sync/atomic"

	"github.com/roach88/tbench/internal/sim"
)

// DefaultPeriod is the clock period used when none is configured.
const (
	DefaultPeriod int64    = 10
	DefaultUnit   sim.Unit = sim.NS
)

// Source toggles one signal forever: high for half a period, then low for half
// a period, starting high.
//
// A Source is started once and never stopped; its process ends with the
// simulation run.
type Source struct {
	sig     *sim.Signal
	period  sim.Time
	half    sim.Time
	started atomic.Bool
}

// New creates a Source driving sig with the given period.
func New(sig *sim.Signal, period int64, unit sim.Unit) (*Source, error) {
	if sig == nil {
		return nil, fmt.Errorf("clock: nil signal")
	}
	if sig.Width() != 1 {
		return nil, fmt.Errorf("clock %s: signal must be 1 bit wide, got %d", sig.Name(), sig.Width())
	}
	p, err := sim.Duration(period, unit)
	if err != nil {
		return nil, fmt.Errorf("clock %s: %w", sig.Name(), err)
	}
	if p < 2 || p%2 != 0 {
		return nil, fmt.Errorf("clock %s: period %s is not an even number of picoseconds", sig.Name(), p)
	}
	return &Source{sig: sig, period: p, half: p / 2}, nil
}

// Start spawns the toggle process from p. The first rising edge happens at the
// current simulated time.
func (s *Source) Start(p *sim.Proc) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("clock %s: already started", s.sig.Name())
	}
	p.Spawn("clock:"+s.sig.Name(), s.run)
	return nil
}

func (s *Source) run(p *sim.Proc) error {
	for {
		s.sig.Set(1)
		if err := p.Timer(s.half); err != nil {
			return nil
		}
		s.sig.Set(0)
		if err := p.Timer(s.half); err != nil {
			return nil
		}
	}
}

// Period returns the full clock period.
func (s *Source) Period() sim.Time { return s.period }

// Signal returns the driven signal.
func (s *Source) Signal() *sim.Signal { return s.sig }

// Started reports whether Start has been called.
func (s *Source) Started() bool { return s.started.Load() }
