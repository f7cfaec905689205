package dut

import "github.com/roach88/tbench/internal/sim"

// FIFO is a synchronous first-in first-out buffer with ready/valid handshakes
// on both sides. All outputs are registered: a word pushed on one edge is
// visible on out_data after that edge, and in_ready reflects the occupancy
// left by the edge.
type FIFO struct {
	depth  int
	width  uint
	params map[string]int64
	buf    []uint64
}

var fifoDefaults = map[string]int64{"DEPTH": 4, "DATA_WIDTH": 8}

func init() {
	register(Info{
		Name:            "fifo",
		Description:     "ready/valid FIFO",
		Clock:           "clk_i",
		Reset:           "rst_i",
		ResetActiveHigh: true,
		Defaults:        fifoDefaults,
		New: func(p map[string]int64) (sim.Model, error) {
			return NewFIFO(p)
		},
	})
}

// NewFIFO builds a FIFO from DEPTH and DATA_WIDTH.
func NewFIFO(overrides map[string]int64) (*FIFO, error) {
	p, err := resolve("fifo", fifoDefaults, overrides)
	if err != nil {
		return nil, err
	}
	if err := checkPositive("fifo", "DEPTH", p["DEPTH"]); err != nil {
		return nil, err
	}
	if err := checkWidth("fifo", "DATA_WIDTH", p["DATA_WIDTH"]); err != nil {
		return nil, err
	}
	return &FIFO{depth: int(p["DEPTH"]), width: uint(p["DATA_WIDTH"]), params: p}, nil
}

func (q *FIFO) Ports() []sim.Port {
	return []sim.Port{
		{Name: "clk_i", Dir: sim.In, Width: 1},
		{Name: "rst_i", Dir: sim.In, Width: 1},
		{Name: "in_data", Dir: sim.In, Width: q.width},
		{Name: "in_valid", Dir: sim.In, Width: 1},
		{Name: "in_ready", Dir: sim.Out, Width: 1},
		{Name: "out_data", Dir: sim.Out, Width: q.width},
		{Name: "out_valid", Dir: sim.Out, Width: 1},
		{Name: "out_ready", Dir: sim.In, Width: 1},
		{Name: "count", Dir: sim.Out, Width: bitsFor(q.depth)},
	}
}

func (q *FIFO) Params() map[string]int64 { return q.params }

// Init raises in_ready before the first edge.
func (q *FIFO) Init(f *sim.Frame) {
	q.publish(f)
}

func (q *FIFO) Posedge(f *sim.Frame) {
	if f.Bool("rst_i") {
		q.buf = q.buf[:0]
		q.publish(f)
		return
	}
	pop := f.Bool("out_valid") && f.Bool("out_ready")
	push := f.Bool("in_valid") && f.Bool("in_ready")
	if pop {
		q.buf = q.buf[1:]
	}
	if push {
		q.buf = append(q.buf, f.Get("in_data"))
	}
	q.publish(f)
}

func (q *FIFO) publish(f *sim.Frame) {
	f.SetBool("in_ready", len(q.buf) < q.depth)
	f.SetBool("out_valid", len(q.buf) > 0)
	if len(q.buf) > 0 {
		f.Set("out_data", q.buf[0])
	}
	f.Set("count", uint64(len(q.buf)))
}

// bitsFor returns the width needed to hold 0..n.
func bitsFor(n int) uint {
	w := uint(1)
	for (1 << w) <= n {
		w++
	}
	return w
}
