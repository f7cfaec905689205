package tb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tbench/internal/sim"
)

// ConfigurationError reports a testbench that cannot perform the requested
// operation with what it was given: a missing clock or reset binding, a
// duplicate driver or monitor name, or two drivers owning the same signal.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return "configuration error: " + e.Message + ": " + e.Err.Error()
	}
	return "configuration error: " + e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// TimeoutError reports that the monitors did not go idle before the time limit.
type TimeoutError struct {
	// Time is the simulated time at which the limit was found exceeded.
	Time sim.Time
	// Limit is the absolute time limit.
	Limit sim.Time
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for test to end: time %s exceeds limit %s", e.Time, e.Limit)
}

// FailureKind says whether a CheckingFailure comes from a monitor comparison
// or from a driver with unsent items.
type FailureKind string

const (
	FailureMonitor FailureKind = "monitor"
	FailureDriver  FailureKind = "driver"
)

// CheckingFailure reports a monitor mismatch, or a driver that still had
// items to send when a strict test ended.
type CheckingFailure struct {
	Kind FailureKind
	// Name is the monitor or driver name.
	Name string
	// Index is the zero-based position of the offending expectation or item.
	Index    int
	Expected Expectation
	Observed []uint64
	// Pending is the number of unsent items (driver failures only).
	Pending int
	Time    sim.Time
}

func (e *CheckingFailure) Error() string {
	if e.Kind == FailureDriver {
		return fmt.Sprintf("driver %s still has %d item(s) to send (next item %d) at %s", e.Name, e.Pending, e.Index, e.Time)
	}
	return fmt.Sprintf("monitor %s: transaction %d mismatch at %s: expected %s, observed %s",
		e.Name, e.Index, e.Time, e.Expected, formatValues(e.Observed))
}

// StateError reports an operation called in a state that does not allow it.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTimeout reports whether err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsCheckingFailure reports whether err is or wraps a CheckingFailure.
func IsCheckingFailure(err error) bool {
	var cf *CheckingFailure
	return errors.As(err, &cf)
}

// IsStateError reports whether err is or wraps a StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

func formatValues(vs []uint64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
