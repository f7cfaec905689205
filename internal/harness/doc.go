// Package harness runs testbench scenarios described in YAML or CUE files
// and checks their traces.
//
// # Scenario Format
//
//	name: timer_countdown
//	description: "Count down from five"
//	dut: timer
//	params: { WIDTH: 8 }
//	clock: { period: 10, unit: ns }
//	reset: { active_high: true }
//	timeout: { value: 1, unit: us }
//	assign_params: [WIDTH]
//	drivers:
//	  count: [5]
//	monitors:
//	  readout: [5, 4, 3, 2, 1, 0]
//	assertions:
//	  - type: trace_count
//	    event: sample:readout
//	    count: 6
//	  - type: final_state
//	    state: COMPLETED
//
// A driver item or monitor expectation with one value may be written as a
// scalar; otherwise it is a list with one entry per signal. Expected values
// are numbers, "x" for don't-care, or { value: 5, tolerance: 1 }.
//
// Instead of drivers and monitors, a generate block ({ batches: 3, seed: 7 })
// lets the bench produce random stimulus and compute the expected outputs.
//
// CUE scenarios (.cue) are evaluated, must be concrete, and are then read
// exactly like YAML ones. Definitions can hold shared defaults.
//
// # Trace
//
// Every testbench event becomes a TraceEvent. Assertions name events by
// "kind:name": state:COMPLETED, reset:timer.rst_i, drive:count,
// sample:readout, failure:readout.
//
// # Assertion Types
//
//   - trace_contains: an event with the key (and values, if given) occurs
//   - trace_order: keys first occur in the given order
//   - trace_count: a key occurs exactly count times
//   - final_state: the testbench ended in the given state
//   - final_signal: a DUT port holds value at the end
//   - param: an introspected parameter has value
//
// # Determinism
//
// The kernel is deterministic and stimulus generation is seeded, so the same
// scenario always produces the same trace. Traces are compared with golden
// files in canonical JSON (package canon).
package harness
