package dut

import "github.com/roach88/tbench/internal/sim"

// Timer counts down from a loaded value once per cycle.
//
// A high start_i while idle loads cycles_i into readout_o and raises
// readout_valid_o. The count then drops by one per cycle; readout_valid_o
// stays high until zero has been reported for one cycle. start_i is ignored
// while counting; idle_o is high whenever a start would be accepted. rst_i is
// synchronous and active high.
type Timer struct {
	width   uint
	params  map[string]int64
	running bool
}

var timerDefaults = map[string]int64{"WIDTH": 32}

func init() {
	register(Info{
		Name:            "timer",
		Description:     "count-down timer",
		Clock:           "clk_i",
		Reset:           "rst_i",
		ResetActiveHigh: true,
		Defaults:        timerDefaults,
		New: func(p map[string]int64) (sim.Model, error) {
			return NewTimer(p)
		},
	})
}

// NewTimer builds a Timer. WIDTH sets the counter width.
func NewTimer(overrides map[string]int64) (*Timer, error) {
	p, err := resolve("timer", timerDefaults, overrides)
	if err != nil {
		return nil, err
	}
	if err := checkWidth("timer", "WIDTH", p["WIDTH"]); err != nil {
		return nil, err
	}
	return &Timer{width: uint(p["WIDTH"]), params: p}, nil
}

func (t *Timer) Ports() []sim.Port {
	return []sim.Port{
		{Name: "clk_i", Dir: sim.In, Width: 1},
		{Name: "rst_i", Dir: sim.In, Width: 1},
		{Name: "cycles_i", Dir: sim.In, Width: t.width},
		{Name: "start_i", Dir: sim.In, Width: 1},
		{Name: "readout_o", Dir: sim.Out, Width: t.width},
		{Name: "readout_valid_o", Dir: sim.Out, Width: 1},
		{Name: "idle_o", Dir: sim.Out, Width: 1},
	}
}

func (t *Timer) Params() map[string]int64 { return t.params }

// Init raises idle_o before the first edge.
func (t *Timer) Init(f *sim.Frame) {
	f.SetBool("idle_o", true)
}

func (t *Timer) Posedge(f *sim.Frame) {
	defer func() { f.SetBool("idle_o", !t.running) }()
	switch {
	case f.Bool("rst_i"):
		t.running = false
		f.Set("readout_o", 0)
		f.SetBool("readout_valid_o", false)
	case !t.running && f.Bool("start_i"):
		t.running = true
		f.Set("readout_o", f.Get("cycles_i"))
		f.SetBool("readout_valid_o", true)
	case t.running:
		cur := f.Get("readout_o")
		if cur == 0 {
			t.running = false
			f.SetBool("readout_valid_o", false)
			return
		}
		f.Set("readout_o", cur-1)
	}
}
