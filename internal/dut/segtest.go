package dut

import "github.com/roach88/tbench/internal/sim"

// segments maps a hex digit to its seven-segment pattern, bit 0 = segment a.
var segments = [16]uint64{
	0x3f, 0x06, 0x5b, 0x4f, 0x66, 0x6d, 0x7d, 0x07,
	0x7f, 0x6f, 0x77, 0x7c, 0x39, 0x5e, 0x79, 0x71,
}

// SegmentPattern returns the seven-segment pattern for the low nibble of d.
func SegmentPattern(d uint64) uint64 {
	return segments[d&0xf]
}

// SegTest is a registered seven-segment decoder: seg_o shows digit_i as of
// the previous edge.
type SegTest struct{}

func init() {
	register(Info{
		Name:        "segtest",
		Description: "seven-segment decoder",
		Clock:       "clk_i",
		Defaults:    map[string]int64{},
		New: func(p map[string]int64) (sim.Model, error) {
			if _, err := resolve("segtest", nil, p); err != nil {
				return nil, err
			}
			return SegTest{}, nil
		},
	})
}

func (SegTest) Ports() []sim.Port {
	return []sim.Port{
		{Name: "clk_i", Dir: sim.In, Width: 1},
		{Name: "digit_i", Dir: sim.In, Width: 4},
		{Name: "seg_o", Dir: sim.Out, Width: 7},
	}
}

func (SegTest) Params() map[string]int64 { return map[string]int64{} }

// Init shows the pattern for 0.
func (SegTest) Init(f *sim.Frame) {
	f.Set("seg_o", SegmentPattern(0))
}

func (SegTest) Posedge(f *sim.Frame) {
	f.Set("seg_o", SegmentPattern(f.Get("digit_i")))
}
