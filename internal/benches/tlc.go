package benches

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/tbench/internal/dut"
	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

// TLCBench pulses the pedestrian request and follows the controller FSM
// through every state. Driver "req" writes reqn_i once per cycle; monitor
// "state" samples the fsm_0.state probe on every edge.
type TLCBench struct {
	*tb.Testbench
	rng *rand.Rand

	Req   *tb.StreamDriver
	State *tb.StreamMonitor
}

func init() {
	register("tlc", []string{"SLOW_CYCLES", "STOP_CYCLES", "PED_CYCLES"}, func(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (tb.Bench, error) {
		return NewTLCBench(p, d, seed, opts...)
	})
}

// NewTLCBench builds a TLCBench for an elaborated TLC. reqn_i is released
// (driven high) before the reset sequence starts.
func NewTLCBench(p *sim.Proc, d *sim.DUT, seed uint64, opts ...tb.Option) (*TLCBench, error) {
	e := entries["tlc"]
	t, err := base(p, d, e.DUT, e.Params, opts)
	if err != nil {
		return nil, err
	}
	s, err := signals(d, "reqn_i", "fsm_0.state")
	if err != nil {
		return nil, err
	}
	s[0].Set(1)
	b := &TLCBench{
		Testbench: t,
		rng:       newRand(seed),
		Req:       tb.NewDriver("req", s[0:1]),
		State:     tb.NewMonitor("state", s[1:2]),
	}
	if err := t.AddDriver(b.Req); err != nil {
		return nil, err
	}
	if err := t.AddMonitor(b.State); err != nil {
		return nil, err
	}
	return b, nil
}

// Period returns the number of edges from a request reaching the FSM back to
// VEH_PASS.
func (b *TLCBench) Period() int {
	p := b.Params()
	return int(p.MustGet("SLOW_CYCLES") + p.MustGet("STOP_CYCLES") + p.MustGet("PED_CYCLES"))
}

// GenerateInputs produces one request pulse per batch, each followed by
// enough idle cycles for the FSM to return to VEH_PASS plus a random gap.
func (b *TLCBench) GenerateInputs(batches int) (tb.Stimulus, error) {
	if batches < 1 {
		return nil, fmt.Errorf("tlc: batches must be positive, got %d", batches)
	}
	var items []tb.Item
	for i := 0; i < batches; i++ {
		items = append(items, tb.Item{0})
		idle := b.Period() + 2 + b.rng.IntN(3)
		for j := 0; j < idle; j++ {
			items = append(items, tb.Item{1})
		}
	}
	return tb.Stimulus{"req": items}, nil
}

// Expected replays the request stream through a reference FSM. The first
// sample sees reqn_i released; each later sample sees the previous item.
func (b *TLCBench) Expected(in tb.Stimulus) (tb.Expectations, error) {
	reqs := append([]uint64{1}, flatten(in["req"])...)
	p := b.Params()
	dwell := map[uint64]int64{
		dut.VehSlow: p.MustGet("SLOW_CYCLES"),
		dut.VehStop: p.MustGet("STOP_CYCLES"),
		dut.PedPass: p.MustGet("PED_CYCLES"),
	}

	state, left, reqQ := dut.VehPass, int64(0), uint64(1)
	exp := make([]tb.Expectation, 0, len(reqs))
	for _, reqn := range reqs {
		requested := reqQ == 0
		reqQ = reqn
		switch {
		case state == dut.VehPass:
			if requested {
				state, left = dut.VehSlow, dwell[dut.VehSlow]
			}
		case left > 1:
			left--
		default:
			state = (state + 1) % 4
			left = dwell[state]
		}
		exp = append(exp, tb.Values(state))
	}
	return tb.Expectations{"state": exp}, nil
}

func (b *TLCBench) LoadDrivers(in tb.Stimulus) error {
	return b.LoadStimulus(in)
}

func (b *TLCBench) LoadMonitors(exp tb.Expectations) error {
	return b.LoadExpectations(exp)
}

func flatten(items []tb.Item) []uint64 {
	out := make([]uint64, 0, len(items))
	for _, it := range items {
		out = append(out, it[0])
	}
	return out
}
