// Package tb implements the clock-synchronized testbench: clock and reset
// sequencing, drivers that apply stimulus on rising edges, monitors that check
// DUT outputs against queued expectations, and end-of-test detection.
//
// A test runs as a simulation process:
//
//	t, _ := tb.New(p, dut, tb.WithClock("clk_i"), tb.WithReset("rst_i", true))
//	_ = t.AddDriver(drv)
//	_ = t.AddMonitor(mon)
//	_ = t.Initialize(p)
//	_ = drv.Load(tb.Item{5})
//	_ = mon.Load(tb.Values(5), tb.Values(4))
//	err := t.WaitEnd(p, 1, sim.MS)
//
// Initialize spawns one per-cycle process. On every rising edge it runs each
// driver, then each monitor, in registration order. Drivers write after the
// edge, so the DUT samples an item on the following edge; monitors read the
// values the DUT produced on the edge just processed.
//
// Lifecycle: CONSTRUCTED, RESET, INITIALIZED, RUNNING, then one of COMPLETED,
// TIMED_OUT or FAILED. An operation called in the wrong state returns a
// *StateError.
package tb
