package tb

import (
	"fmt"
	"strings"

	"github.com/roach88/tbench/internal/sim"
)

// Signal is the view of a DUT port that drivers and monitors need.
// *sim.Signal implements it.
type Signal interface {
	Name() string
	Width() uint
	Get() uint64
	Set(v uint64)
}

// Item is one driver transaction: one value per data signal.
type Item []uint64

// Expect is the expected value of one monitored signal.
type Expect struct {
	Value uint64
	// Tolerance is the largest accepted absolute difference.
	Tolerance uint64
	// DontCare accepts any value.
	DontCare bool
}

// Exact returns an Expect that only accepts v.
func Exact(v uint64) Expect { return Expect{Value: v} }

// Matches reports whether v satisfies e.
func (e Expect) Matches(v uint64) bool {
	if e.DontCare {
		return true
	}
	var diff uint64
	if v > e.Value {
		diff = v - e.Value
	} else {
		diff = e.Value - v
	}
	return diff <= e.Tolerance
}

func (e Expect) String() string {
	switch {
	case e.DontCare:
		return "x"
	case e.Tolerance > 0:
		return fmt.Sprintf("%d±%d", e.Value, e.Tolerance)
	default:
		return fmt.Sprintf("%d", e.Value)
	}
}

// Expectation is one expected monitor transaction: one Expect per data signal.
type Expectation []Expect

// Values builds an Expectation of exact values.
func Values(vs ...uint64) Expectation {
	e := make(Expectation, len(vs))
	for i, v := range vs {
		e[i] = Exact(v)
	}
	return e
}

// Matches reports whether every observed value satisfies its Expect.
func (e Expectation) Matches(observed []uint64) bool {
	if len(e) != len(observed) {
		return false
	}
	for i, x := range e {
		if !x.Matches(observed[i]) {
			return false
		}
	}
	return true
}

func (e Expectation) String() string {
	parts := make([]string, len(e))
	for i, x := range e {
		parts[i] = x.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Stimulus maps driver names to the items each should send.
type Stimulus map[string][]Item

// Expectations maps monitor names to the transactions each should observe.
type Expectations map[string][]Expectation

// Transaction is one item applied by a driver or one value set observed by a
// monitor.
type Transaction struct {
	// Index is the zero-based position in the driver or monitor queue.
	Index  int
	Values []uint64
	// Expected is the consumed expectation; nil for driver transactions and
	// for monitor transactions that arrived with nothing queued.
	Expected Expectation
	Match    bool
	Time     sim.Time
}
