package dut

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbench/internal/sim"
)

// bench elaborates m and runs body with a step function that produces one
// full clock cycle.
func bench(t *testing.T, m sim.Model, body func(d *sim.DUT, step func() error, p *sim.Proc) error) {
	t.Helper()
	k := sim.New()
	d, err := k.Elaborate("dut", m, "clk_i")
	require.NoError(t, err)
	clk := d.MustSignal("clk_i")

	err = k.Run(context.Background(), func(p *sim.Proc) error {
		step := func() error {
			clk.Set(1)
			if err := p.Timer(5); err != nil {
				return err
			}
			clk.Set(0)
			return p.Timer(5)
		}
		return body(d, step, p)
	})
	require.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"fifo", "segtest", "timer", "tlc"}, Names())

	info, err := Lookup("tlc")
	require.NoError(t, err)
	assert.Equal(t, "rstn_i", info.Reset)
	assert.False(t, info.ResetActiveHigh)

	_, err = Lookup("cpu")
	assert.Error(t, err)
}

func TestParams_Validation(t *testing.T) {
	_, err := NewTimer(map[string]int64{"WIDTH": 0})
	assert.Error(t, err)
	_, err = NewTimer(map[string]int64{"DEPTH": 4})
	assert.Error(t, err, "unknown parameter")
	_, err = NewFIFO(map[string]int64{"DEPTH": 0})
	assert.Error(t, err)
	_, err = NewTLC(map[string]int64{"PED_CYCLES": -1})
	assert.Error(t, err)

	info, err := Lookup("segtest")
	require.NoError(t, err)
	_, err = info.New(map[string]int64{"WIDTH": 3})
	assert.Error(t, err)

	tm, err := NewTimer(map[string]int64{"WIDTH": 8})
	require.NoError(t, err)
	assert.Equal(t, int64(8), tm.Params()["WIDTH"])
}

func TestTimer_CountsDown(t *testing.T) {
	m, err := NewTimer(nil)
	require.NoError(t, err)

	bench(t, m, func(d *sim.DUT, step func() error, _ *sim.Proc) error {
		readout := d.MustSignal("readout_o")
		valid := d.MustSignal("readout_valid_o")

		d.MustSignal("cycles_i").Set(3)
		d.MustSignal("start_i").Set(1)
		assert.True(t, d.MustSignal("idle_o").Bool())
		require.NoError(t, step())
		assert.Equal(t, uint64(3), readout.Get())
		assert.True(t, valid.Bool())
		assert.False(t, d.MustSignal("idle_o").Bool())

		// start_i held high is ignored while counting
		require.NoError(t, step())
		assert.Equal(t, uint64(2), readout.Get())
		d.MustSignal("start_i").Set(0)

		var seen []uint64
		for valid.Bool() {
			seen = append(seen, readout.Get())
			require.NoError(t, step())
		}
		assert.Equal(t, []uint64{2, 1, 0}, seen)
		assert.True(t, d.MustSignal("idle_o").Bool())
		return nil
	})
}

func TestTimer_Reset(t *testing.T) {
	m, err := NewTimer(nil)
	require.NoError(t, err)

	bench(t, m, func(d *sim.DUT, step func() error, _ *sim.Proc) error {
		d.MustSignal("cycles_i").Set(9)
		d.MustSignal("start_i").Set(1)
		require.NoError(t, step())
		d.MustSignal("rst_i").Set(1)
		require.NoError(t, step())
		assert.Equal(t, uint64(0), d.MustSignal("readout_o").Get())
		assert.False(t, d.MustSignal("readout_valid_o").Bool())
		return nil
	})
}

func TestFIFO_OrderAndBackpressure(t *testing.T) {
	m, err := NewFIFO(map[string]int64{"DEPTH": 2})
	require.NoError(t, err)

	bench(t, m, func(d *sim.DUT, step func() error, _ *sim.Proc) error {
		inData := d.MustSignal("in_data")
		inValid := d.MustSignal("in_valid")
		inReady := d.MustSignal("in_ready")
		outValid := d.MustSignal("out_valid")
		outData := d.MustSignal("out_data")
		count := d.MustSignal("count")

		assert.True(t, inReady.Bool(), "ready before first edge")
		assert.False(t, outValid.Bool())

		inValid.Set(1)
		inData.Set(0xa1)
		require.NoError(t, step())
		inData.Set(0xb2)
		require.NoError(t, step())
		inData.Set(0xc3)
		require.NoError(t, step())

		assert.Equal(t, uint64(2), count.Get())
		assert.False(t, inReady.Bool(), "full")
		assert.True(t, outValid.Bool())
		assert.Equal(t, uint64(0xa1), outData.Get())

		inValid.Set(0)
		d.MustSignal("out_ready").Set(1)
		require.NoError(t, step())
		assert.Equal(t, uint64(0xb2), outData.Get())
		require.NoError(t, step())
		assert.False(t, outValid.Bool())
		assert.Equal(t, uint64(0), count.Get())
		return nil
	})
}

func TestTLC_RequestCycle(t *testing.T) {
	m, err := NewTLC(nil)
	require.NoError(t, err)

	bench(t, m, func(d *sim.DUT, step func() error, _ *sim.Proc) error {
		state := d.MustSignal("fsm_0.state")
		reqn := d.MustSignal("reqn_i")
		rstn := d.MustSignal("rstn_i")

		reqn.Set(1)
		rstn.Set(0)
		require.NoError(t, step())
		require.NoError(t, step())
		rstn.Set(1)
		require.NoError(t, step())
		assert.Equal(t, VehPass, state.Get())

		reqn.Set(0)
		require.NoError(t, step())
		reqn.Set(1)
		assert.Equal(t, VehPass, state.Get(), "request is synchronized first")

		var states []uint64
		for i := 0; i < 10; i++ {
			require.NoError(t, step())
			states = append(states, state.Get())
		}
		assert.Equal(t, []uint64{
			VehSlow, VehSlow, VehSlow,
			VehStop, VehStop,
			PedPass, PedPass, PedPass, PedPass,
			VehPass,
		}, states)
		assert.Equal(t, LightGreen, d.MustSignal("veh_o").Get())
		return nil
	})
}

func TestSegTest_Decodes(t *testing.T) {
	bench(t, SegTest{}, func(d *sim.DUT, step func() error, _ *sim.Proc) error {
		seg := d.MustSignal("seg_o")
		assert.Equal(t, SegmentPattern(0), seg.Get())
		for digit := uint64(0); digit < 16; digit++ {
			d.MustSignal("digit_i").Set(digit)
			require.NoError(t, step())
			assert.Equal(t, SegmentPattern(digit), seg.Get())
		}
		assert.Equal(t, uint64(0x7f), SegmentPattern(8))
		return nil
	})
}
