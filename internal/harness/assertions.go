package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tbench/internal/tb"
)

// Assertion validates the trace or the final state of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is a "kind:name" trace key (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Values, when set, must equal the event's values (trace_contains).
	Values []uint64 `yaml:"values,omitempty"`

	// Events is the expected relative order of trace keys (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the exact number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// State is the expected final testbench state (final_state).
	State string `yaml:"state,omitempty"`

	// Signal is a DUT port name (final_signal).
	Signal string `yaml:"signal,omitempty"`

	// Name is a parameter name (param).
	Name string `yaml:"name,omitempty"`

	// Value is the expected signal or parameter value.
	Value *int64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertFinalSignal   = "final_signal"
	AssertParam         = "param"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %dps %s %v\n", ev.Seq, ev.TimePS, ev.Key(), ev.Values)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against r and returns the
// messages of those that failed.
func EvaluateAssertions(r *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(r, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(r.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(r.Trace, a)
	case AssertFinalState:
		return assertFinalState(r, a)
	case AssertFinalSignal:
		return assertFinalSignal(r, a)
	case AssertParam:
		return assertParam(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Key() != a.Event {
			continue
		}
		if a.Values == nil || slices.Equal(ev.Values, a.Values) {
			return nil
		}
	}
	expected := a.Event
	if a.Values != nil {
		expected = fmt.Sprintf("%s with values %v", a.Event, a.Values)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrence of each key comes after
// the first occurrence of the previous one. Other events may come between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		k := ev.Key()
		if _, seen := positions[k]; !seen {
			positions[k] = i + 1
		}
	}

	for _, k := range a.Events {
		if positions[k] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", k),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Key() == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertFinalState(r *Result, a Assertion) error {
	if r.Status != a.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("testbench state %s", a.State),
			Actual:   fmt.Sprintf("testbench state %s", r.Status),
		}
	}
	return nil
}

func assertFinalSignal(r *Result, a Assertion) error {
	got, ok := r.Signals[a.Signal]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalSignal,
			Expected: fmt.Sprintf("signal %s to exist", a.Signal),
			Actual:   fmt.Sprintf("signal %s not present in %v", a.Signal, sortedSignalNames(r.Signals)),
		}
	}
	if got != uint64(*a.Value) {
		return &AssertionError{
			Type:     AssertFinalSignal,
			Expected: fmt.Sprintf("signal %s = %d", a.Signal, *a.Value),
			Actual:   fmt.Sprintf("signal %s = %d", a.Signal, got),
		}
	}
	return nil
}

func assertParam(r *Result, a Assertion) error {
	got, ok := r.Params[a.Name]
	if !ok {
		return &AssertionError{
			Type:     AssertParam,
			Expected: fmt.Sprintf("parameter %s to be assigned", a.Name),
			Actual:   "parameter not assigned",
		}
	}
	if got != *a.Value {
		return &AssertionError{
			Type:     AssertParam,
			Expected: fmt.Sprintf("parameter %s = %d", a.Name, *a.Value),
			Actual:   fmt.Sprintf("parameter %s = %d", a.Name, got),
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if !validKey(a.Event) {
			return fmt.Errorf("assertions[%d]: event must be kind:name for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
		for _, k := range a.Events {
			if !validKey(k) {
				return fmt.Errorf("assertions[%d]: event %q must be kind:name", index, k)
			}
		}
	case AssertTraceCount:
		if !validKey(a.Event) {
			return fmt.Errorf("assertions[%d]: event must be kind:name for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if _, ok := tb.ParseState(a.State); !ok {
			return fmt.Errorf("assertions[%d]: unknown state %q for final_state", index, a.State)
		}
	case AssertFinalSignal:
		if a.Signal == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: signal and value are required for final_signal", index)
		}
		if *a.Value < 0 {
			return fmt.Errorf("assertions[%d]: value must be non-negative for final_signal", index)
		}
	case AssertParam:
		if a.Name == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: name and value are required for param", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func validKey(k string) bool {
	kind, name, ok := strings.Cut(k, ":")
	if !ok || name == "" {
		return false
	}
	switch kind {
	case KindState, KindReset, KindDrive, KindSample, KindFailure:
		return true
	}
	return false
}

func sortedSignalNames(m map[string]uint64) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
