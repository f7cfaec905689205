package benches

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

// TimerBench drives count-down values into the timer and expects every value
// from the loaded count down to zero on readout_o.
//
// Driver "count" writes cycles_i with start_i as valid and idle_o as ready, so
// a new count is only started once the previous one has finished. Monitor
// "readout" samples readout_o while readout_valid_o is high.
type TimerBench struct {
	*tb.Testbench
	rng *rand.Rand

	Count   *tb.StreamDriver
	Readout *tb.StreamMonitor
}

// MaxGeneratedCount bounds the counts GenerateInputs picks.
const MaxGeneratedCount = 16

func init() {
	register("timer", []string{"WIDTH"}, func(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (tb.Bench, error) {
		return NewTimerBench(p, d, seed, opts...)
	})
}

// NewTimerBench builds a TimerBench for an elaborated timer.
func NewTimerBench(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (*TimerBench, error) {
	e := entries["timer"]
	t, err := base(p, d, e.DUT, e.Params, opts)
	if err != nil {
		return nil, err
	}
	in, err := signals(d, "cycles_i", "start_i", "idle_o", "readout_o", "readout_valid_o")
	if err != nil {
		return nil, err
	}
	b := &TimerBench{
		Testbench: t,
		rng:       newRand(seed),
		Count:     tb.NewDriver("count", in[:1], tb.WithValid(in[1]), tb.WithReady(in[2])),
		Readout:   tb.NewMonitor("readout", in[3:4], tb.SampleOnValid(in[4])),
	}
	if err := t.AddDriver(b.Count); err != nil {
		return nil, err
	}
	if err := t.AddMonitor(b.Readout); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateInputs picks one random count per batch.
func (b *TimerBench) GenerateInputs(batches int) (tb.Stimulus, error) {
	if batches < 1 {
		return nil, fmt.Errorf("timer: batches must be positive, got %d", batches)
	}
	limit := min(mask(b.Params().MustGet("WIDTH")), MaxGeneratedCount-1)
	items := make([]tb.Item, batches)
	for i := range items {
		items[i] = tb.Item{b.rng.Uint64N(limit + 1)}
	}
	return tb.Stimulus{"count": items}, nil
}

// Expected returns the countdown for each loaded count.
func (b *TimerBench) Expected(in tb.Stimulus) (tb.Expectations, error) {
	var exp []tb.Expectation
	for _, it := range in["count"] {
		for v := int64(it[0]); v >= 0; v-- {
			exp = append(exp, tb.Values(uint64(v)))
		}
	}
	return tb.Expectations{"readout": exp}, nil
}

func (b *TimerBench) LoadDrivers(in tb.Stimulus) error {
	return b.LoadStimulus(in)
}

func (b *TimerBench) LoadMonitors(exp tb.Expectations) error {
	return b.LoadExpectations(exp)
}
