package dut

import "github.com/roach88/tbench/internal/sim"

// Traffic light states, as exposed on the fsm_0.state probe.
const (
	VehPass uint64 = iota
	VehSlow
	VehStop
	PedPass
)

// Vehicle light colours on veh_o.
const (
	LightGreen uint64 = iota
	LightYellow
	LightRed
)

var tlcDefaults = map[string]int64{
	"SLOW_CYCLES": 3,
	"STOP_CYCLES": 2,
	"PED_CYCLES":  4,
}

// TLC is a pedestrian-crossing traffic light controller.
//
// Vehicles have right of way (VEH_PASS) until a pedestrian request arrives on
// the active-low reqn_i. The request passes through one synchronizer register,
// so the FSM reacts on the second edge after reqn_i falls. The FSM then steps
// through VEH_SLOW, VEH_STOP and PED_PASS, spending SLOW_CYCLES, STOP_CYCLES
// and PED_CYCLES edges in each, and returns to VEH_PASS. rstn_i is synchronous
// and active low.
type TLC struct {
	params map[string]int64
	state  uint64
	left   int64
	reqQ   uint64
}

func init() {
	register(Info{
		Name:            "tlc",
		Description:     "traffic light controller with pedestrian request",
		Clock:           "clk_i",
		Reset:           "rstn_i",
		ResetActiveHigh: false,
		Defaults:        tlcDefaults,
		New: func(p map[string]int64) (sim.Model, error) {
			return NewTLC(p)
		},
	})
}

// NewTLC builds a TLC with the given dwell parameters.
func NewTLC(overrides map[string]int64) (*TLC, error) {
	p, err := resolve("tlc", tlcDefaults, overrides)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"SLOW_CYCLES", "STOP_CYCLES", "PED_CYCLES"} {
		if err := checkPositive("tlc", name, p[name]); err != nil {
			return nil, err
		}
	}
	return &TLC{params: p, reqQ: 1}, nil
}

func (c *TLC) Ports() []sim.Port {
	return []sim.Port{
		{Name: "clk_i", Dir: sim.In, Width: 1},
		{Name: "rstn_i", Dir: sim.In, Width: 1},
		{Name: "reqn_i", Dir: sim.In, Width: 1},
		{Name: "veh_o", Dir: sim.Out, Width: 2},
		{Name: "ped_o", Dir: sim.Out, Width: 1},
		{Name: "fsm_0.state", Dir: sim.Probe, Width: 2},
	}
}

func (c *TLC) Params() map[string]int64 { return c.params }

// Init drives the reset-state outputs.
func (c *TLC) Init(f *sim.Frame) {
	c.publish(f)
}

func (c *TLC) Posedge(f *sim.Frame) {
	if !f.Bool("rstn_i") {
		c.state, c.left, c.reqQ = VehPass, 0, 1
		c.publish(f)
		return
	}

	requested := c.reqQ == 0
	c.reqQ = f.Get("reqn_i")

	switch c.state {
	case VehPass:
		if requested {
			c.enter(VehSlow)
		}
	default:
		if c.left > 1 {
			c.left--
			break
		}
		c.enter((c.state + 1) % 4)
	}
	c.publish(f)
}

func (c *TLC) enter(s uint64) {
	c.state = s
	switch s {
	case VehSlow:
		c.left = c.params["SLOW_CYCLES"]
	case VehStop:
		c.left = c.params["STOP_CYCLES"]
	case PedPass:
		c.left = c.params["PED_CYCLES"]
	default:
		c.left = 0
	}
}

func (c *TLC) publish(f *sim.Frame) {
	f.Set("fsm_0.state", c.state)
	switch c.state {
	case VehPass:
		f.Set("veh_o", LightGreen)
	case VehSlow:
		f.Set("veh_o", LightYellow)
	default:
		f.Set("veh_o", LightRed)
	}
	f.SetBool("ped_o", c.state == PedPass)
}
