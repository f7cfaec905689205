package benches

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

// FIFOBench pushes random words through the FIFO and expects them back in
// order. Driver "in" owns in_data and in_valid and honours in_ready; monitor
// "out" holds out_ready high and samples out_data while out_valid is high.
type FIFOBench struct {
	*tb.Testbench
	rng *rand.Rand

	In  *tb.StreamDriver
	Out *tb.StreamMonitor
}

func init() {
	register("fifo", []string{"DEPTH", "DATA_WIDTH"}, func(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (tb.Bench, error) {
		return NewFIFOBench(p, d, seed, opts...)
	})
}

// NewFIFOBench builds a FIFOBench for an elaborated FIFO.
func NewFIFOBench(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (*FIFOBench, error) {
	e := entries["fifo"]
	t, err := base(p, d, e.DUT, e.Params, opts)
	if err != nil {
		return nil, err
	}
	s, err := signals(d, "in_data", "in_valid", "in_ready", "out_data", "out_valid", "out_ready")
	if err != nil {
		return nil, err
	}
	b := &FIFOBench{
		Testbench: t,
		rng:       newRand(seed),
		In:        tb.NewDriver("in", s[0:1], tb.WithValid(s[1]), tb.WithReady(s[2])),
		Out:       tb.NewMonitor("out", s[3:4], tb.SampleOnValid(s[4]), tb.DriveReady(s[5])),
	}
	if err := t.AddDriver(b.In); err != nil {
		return nil, err
	}
	if err := t.AddMonitor(b.Out); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateInputs produces DEPTH random words per batch.
func (b *FIFOBench) GenerateInputs(batches int) (tb.Stimulus, error) {
	if batches < 1 {
		return nil, fmt.Errorf("fifo: batches must be positive, got %d", batches)
	}
	n := batches * int(b.Params().MustGet("DEPTH"))
	m := mask(b.Params().MustGet("DATA_WIDTH"))
	items := make([]tb.Item, n)
	for i := range items {
		items[i] = tb.Item{b.rng.Uint64() & m}
	}
	return tb.Stimulus{"in": items}, nil
}

// Expected is the identity: words come out in the order they went in.
func (b *FIFOBench) Expected(in tb.Stimulus) (tb.Expectations, error) {
	exp := make([]tb.Expectation, 0, len(in["in"]))
	for _, it := range in["in"] {
		exp = append(exp, tb.Values(it[0]))
	}
	return tb.Expectations{"out": exp}, nil
}

func (b *FIFOBench) LoadDrivers(in tb.Stimulus) error {
	return b.LoadStimulus(in)
}

func (b *FIFOBench) LoadMonitors(exp tb.Expectations) error {
	return b.LoadExpectations(exp)
}
