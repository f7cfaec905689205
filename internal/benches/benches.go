// Package benches holds the concrete testbench for each DUT model and a
// registry that builds them by name.
package benches

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/roach88/tbench/internal/dut"
	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

// Constructor builds a bench for an elaborated DUT inside process p.
type Constructor func(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (tb.Bench, error)

// Entry pairs a model kind with its bench.
type Entry struct {
	DUT dut.Info
	// Params lists the parameters the bench reads with AssignParams.
	Params []string
	New    Constructor
}

var entries = map[string]Entry{}

func register(model string, params []string, c Constructor) {
	info, err := dut.Lookup(model)
	if err != nil {
		panic(err)
	}
	entries[model] = Entry{DUT: info, Params: params, New: c}
}

// Lookup returns the bench registered for a model kind.
func Lookup(model string) (Entry, error) {
	e, ok := entries[model]
	if !ok {
		return Entry{}, fmt.Errorf("no bench for dut %q (known: %v)", model, Names())
	}
	return e, nil
}

// Names returns every model kind that has a bench.
func Names() []string {
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Elaborate builds the model for e with the given parameter overrides and
// elaborates it on k under the model's own name.
func (e Entry) Elaborate(k *sim.Kernel, params map[string]int64) (*sim.DUT, error) {
	m, err := e.DUT.New(params)
	if err != nil {
		return nil, err
	}
	return k.Elaborate(e.DUT.Name, m, e.DUT.Clock)
}

// base creates the Testbench bound to the model's clock and reset ports.
// Caller options come last so they can override the polarity or period.
func base(p *sim.Proc, d *sim.DUT, info dut.Info, params []string, opts []tb.Option) (*tb.Testbench, error) {
	all := []tb.Option{tb.WithClock(info.Clock)}
	if info.Reset != "" {
		all = append(all, tb.WithReset(info.Reset, info.ResetActiveHigh))
	}
	t, err := tb.New(p, d, append(all, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := t.AssignParams(params...); err != nil {
		return nil, err
	}
	return t, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func signals(d *sim.DUT, ports ...string) ([]tb.Signal, error) {
	out := make([]tb.Signal, len(ports))
	for i, p := range ports {
		s, err := d.Signal(p)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func mask(width int64) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}
