package tb

import (
	"fmt"

	"github.com/roach88/tbench/internal/sim"
)

// A Monitor samples DUT output signals once per clock edge and checks them
// against queued expectations in FIFO order.
type Monitor interface {
	Name() string
	// Targets returns every signal the monitor writes (its ready companion).
	Targets() []Signal
	Load(exps ...Expectation) error
	// InFlight reports whether expectations are still queued.
	InFlight() bool
	// Arm enables sampling and drives the ready companion high.
	Arm()
	// Sample is called once per rising edge. It returns the observed
	// transaction, or nil when the handshake did not fire. A mismatch is
	// returned as a *CheckingFailure alongside the transaction.
	Sample(now sim.Time) (*Transaction, error)
}

// StreamMonitor is the base Monitor. It samples its data signals whenever it
// is armed and the valid companion is high (or on every edge when no valid is
// bound).
type StreamMonitor struct {
	name  string
	data  []Signal
	valid Signal
	ready Signal

	q        queue[Expectation]
	armed    bool
	observed int
}

// MonitorOption configures a StreamMonitor.
type MonitorOption func(*StreamMonitor)

// SampleOnValid binds the valid companion (a DUT output).
func SampleOnValid(s Signal) MonitorOption {
	return func(m *StreamMonitor) { m.valid = s }
}

// DriveReady binds the ready companion (a DUT input) raised by Arm.
func DriveReady(s Signal) MonitorOption {
	return func(m *StreamMonitor) { m.ready = s }
}

// NewMonitor creates a StreamMonitor sampling the given data signals.
func NewMonitor(name string, data []Signal, opts ...MonitorOption) *StreamMonitor {
	m := &StreamMonitor{name: name, data: data}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *StreamMonitor) Name() string { return m.name }

func (m *StreamMonitor) Targets() []Signal {
	if m.ready == nil {
		return nil
	}
	return []Signal{m.ready}
}

// Load appends expectations. Each must carry one Expect per data signal.
func (m *StreamMonitor) Load(exps ...Expectation) error {
	for i, e := range exps {
		if len(e) != len(m.data) {
			return fmt.Errorf("monitor %s: expectation %d has %d values, want %d", m.name, i, len(e), len(m.data))
		}
	}
	m.q.push(exps...)
	return nil
}

func (m *StreamMonitor) InFlight() bool { return m.q.size() > 0 }

// Pending returns the number of queued expectations.
func (m *StreamMonitor) Pending() int { return m.q.size() }

// Observed returns the number of transactions checked so far.
func (m *StreamMonitor) Observed() int { return m.observed }

func (m *StreamMonitor) Arm() {
	m.armed = true
	if m.ready != nil {
		m.ready.Set(1)
	}
}

func (m *StreamMonitor) Sample(now sim.Time) (*Transaction, error) {
	if !m.armed {
		return nil, nil
	}
	if m.valid != nil && m.valid.Get()&1 == 0 {
		return nil, nil
	}
	vals := make([]uint64, len(m.data))
	for i, s := range m.data {
		vals[i] = s.Get()
	}
	exp, ok := m.q.pop()
	if !ok {
		return &Transaction{Index: -1, Values: vals, Time: now}, nil
	}
	tx := &Transaction{Index: m.observed, Values: vals, Expected: exp, Time: now}
	m.observed++
	if tx.Match = exp.Matches(vals); !tx.Match {
		return tx, &CheckingFailure{
			Kind:     FailureMonitor,
			Name:     m.name,
			Index:    tx.Index,
			Expected: exp,
			Observed: vals,
			Time:     now,
		}
	}
	return tx, nil
}
