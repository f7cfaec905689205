package benches

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/tbench/internal/dut"
	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

// SegTestBench feeds digits to the seven-segment decoder. Driver "digit"
// writes digit_i; monitor "seg" samples seg_o on every edge.
type SegTestBench struct {
	*tb.Testbench
	rng *rand.Rand

	Digit *tb.StreamDriver
	Seg   *tb.StreamMonitor
}

func init() {
	register("segtest", nil, func(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (tb.Bench, error) {
		return NewSegTestBench(p, d, seed, opts...)
	})
}

// NewSegTestBench builds a SegTestBench. The decoder has no reset.
func NewSegTestBench(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (*SegTestBench, error) {
	e := entries["segtest"]
	t, err := base(p, d, e.DUT, e.Params, opts)
	if err != nil {
		return nil, err
	}
	s, err := signals(d, "digit_i", "seg_o")
	if err != nil {
		return nil, err
	}
	b := &SegTestBench{
		Testbench: t,
		rng:       newRand(seed),
		Digit:     tb.NewDriver("digit", s[0:1]),
		Seg:       tb.NewMonitor("seg", s[1:2]),
	}
	if err := t.AddDriver(b.Digit); err != nil {
		return nil, err
	}
	if err := t.AddMonitor(b.Seg); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateInputs produces four random digits per batch.
func (b *SegTestBench) GenerateInputs(batches int) (tb.Stimulus, error) {
	if batches < 1 {
		return nil, fmt.Errorf("segtest: batches must be positive, got %d", batches)
	}
	items := make([]tb.Item, 4*batches)
	for i := range items {
		items[i] = tb.Item{b.rng.Uint64N(16)}
	}
	return tb.Stimulus{"digit": items}, nil
}

// Expected decodes each digit one edge after it is applied. The first sample
// shows the current digit_i value.
func (b *SegTestBench) Expected(in tb.Stimulus) (tb.Expectations, error) {
	exp := []tb.Expectation{tb.Values(dut.SegmentPattern(b.Digit.Targets()[0].Get()))}
	for _, it := range in["digit"] {
		exp = append(exp, tb.Values(dut.SegmentPattern(it[0])))
	}
	return tb.Expectations{"seg": exp}, nil
}

func (b *SegTestBench) LoadDrivers(in tb.Stimulus) error {
	return b.LoadStimulus(in)
}

func (b *SegTestBench) LoadMonitors(exp tb.Expectations) error {
	return b.LoadExpectations(exp)
}
