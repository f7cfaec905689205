package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.Status = "COMPLETED"
	r.Trace = []TraceEvent{
		{Seq: 1, Kind: KindReset, Name: "timer.rst_i", Values: []uint64{1}},
		{Seq: 2, Kind: KindState, Name: "RESET", From: "CONSTRUCTED"},
		{Seq: 3, Kind: KindDrive, Name: "count", Values: []uint64{2}},
		{Seq: 4, Kind: KindSample, Name: "readout", Values: []uint64{2}, Match: true},
		{Seq: 5, Kind: KindSample, Name: "readout", Index: 1, Values: []uint64{1}, Match: true},
		{Seq: 6, Kind: KindState, Name: "COMPLETED", From: "RUNNING"},
	}
	r.Signals["readout_o"] = 1
	r.Params["WIDTH"] = 8
	return r
}

func ptr(v int64) *int64 { return &v }

func TestAssertions_Pass(t *testing.T) {
	r := sampleResult()
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertTraceContains, Event: "sample:readout"},
		{Type: AssertTraceContains, Event: "sample:readout", Values: []uint64{1}},
		{Type: AssertTraceOrder, Events: []string{"reset:timer.rst_i", "drive:count", "state:COMPLETED"}},
		{Type: AssertTraceCount, Event: "sample:readout", Count: 2},
		{Type: AssertTraceCount, Event: "failure:readout", Count: 0},
		{Type: AssertFinalState, State: "COMPLETED"},
		{Type: AssertFinalSignal, Signal: "readout_o", Value: ptr(1)},
		{Type: AssertParam, Name: "WIDTH", Value: ptr(8)},
	})
	assert.Empty(t, errs)
}

func TestAssertions_Fail(t *testing.T) {
	r := sampleResult()
	cases := []struct {
		name string
		a    Assertion
		want string
	}{
		{"contains missing", Assertion{Type: AssertTraceContains, Event: "drive:other"}, "not found in trace"},
		{"contains values", Assertion{Type: AssertTraceContains, Event: "drive:count", Values: []uint64{3}}, "with values [3]"},
		{"order missing", Assertion{Type: AssertTraceOrder, Events: []string{"drive:count", "state:FAILED"}}, "missing event: state:FAILED"},
		{"order reversed", Assertion{Type: AssertTraceOrder, Events: []string{"sample:readout", "drive:count"}}, "should be before"},
		{"count", Assertion{Type: AssertTraceCount, Event: "sample:readout", Count: 3}, "2 occurrences"},
		{"state", Assertion{Type: AssertFinalState, State: "TIMED_OUT"}, "testbench state COMPLETED"},
		{"signal missing", Assertion{Type: AssertFinalSignal, Signal: "nope", Value: ptr(0)}, "not present"},
		{"signal value", Assertion{Type: AssertFinalSignal, Signal: "readout_o", Value: ptr(0)}, "readout_o = 1"},
		{"param missing", Assertion{Type: AssertParam, Name: "DEPTH", Value: ptr(1)}, "not assigned"},
		{"param value", Assertion{Type: AssertParam, Name: "WIDTH", Value: ptr(16)}, "WIDTH = 8"},
		{"unknown", Assertion{Type: "nope"}, "unknown assertion type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := EvaluateAssertions(r, []Assertion{tc.a})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tc.want)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1 occurrences of drive:count",
		Actual:   "0 occurrences",
		Trace:    []TraceEvent{{Seq: 1, TimePS: 10, Kind: KindSample, Name: "readout", Values: []uint64{4}}},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "[1] 10ps sample:readout [4]")
}
