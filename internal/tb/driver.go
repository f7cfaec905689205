package tb

import (
	"fmt"

	"github.com/roach88/tbench/internal/sim"
)

// A Driver applies queued items to DUT input signals, one per clock edge.
type Driver interface {
	Name() string
	// Targets returns every signal the driver writes.
	Targets() []Signal
	Load(items ...Item) error
	// Pending returns the number of items not yet accepted by the DUT.
	Pending() int
	// Drive is called once per rising edge. It returns the item applied on
	// this edge, or nil when nothing new was applied.
	Drive(now sim.Time) *Transaction
}

// StreamDriver is the base Driver. It writes each item to its data signals
// and, when a valid companion is bound, asserts valid while an item is
// presented and de-asserts it when the queue is empty. With a ready companion
// the item is held until the DUT has accepted it.
type StreamDriver struct {
	name  string
	data  []Signal
	valid Signal
	ready Signal

	q          queue[Item]
	sent       int
	presenting bool
	lastReady  bool
}

// DriverOption configures a StreamDriver.
type DriverOption func(*StreamDriver)

// WithValid binds the valid companion (a DUT input).
func WithValid(s Signal) DriverOption {
	return func(d *StreamDriver) { d.valid = s }
}

// WithReady binds the ready companion (a DUT output).
func WithReady(s Signal) DriverOption {
	return func(d *StreamDriver) { d.ready = s }
}

// NewDriver creates a StreamDriver writing the given data signals.
func NewDriver(name string, data []Signal, opts ...DriverOption) *StreamDriver {
	d := &StreamDriver{name: name, data: data}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *StreamDriver) Name() string { return d.name }

func (d *StreamDriver) Targets() []Signal {
	out := append([]Signal(nil), d.data...)
	if d.valid != nil {
		out = append(out, d.valid)
	}
	return out
}

// Load appends items to the send queue. Each item must carry one value per
// data signal.
func (d *StreamDriver) Load(items ...Item) error {
	for i, it := range items {
		if len(it) != len(d.data) {
			return fmt.Errorf("driver %s: item %d has %d values, want %d", d.name, i, len(it), len(d.data))
		}
	}
	d.q.push(items...)
	return nil
}

func (d *StreamDriver) Pending() int {
	n := d.q.size()
	if d.presenting && d.ready != nil {
		n++
	}
	return n
}

// Sent returns the number of items applied so far.
func (d *StreamDriver) Sent() int { return d.sent }

// NextPending returns the index of the first item the DUT has not accepted.
// An item held on the data signals while waiting for ready counts as pending.
func (d *StreamDriver) NextPending() int {
	if d.presenting && d.ready != nil {
		return d.sent - 1
	}
	return d.sent
}

func (d *StreamDriver) Drive(now sim.Time) *Transaction {
	if d.ready != nil {
		// ready only changes on edges, so the value read after the previous
		// edge is the one the DUT sampled on this edge.
		if d.presenting && d.lastReady {
			d.presenting = false
		}
		defer func() { d.lastReady = d.ready.Get()&1 != 0 }()
		if d.presenting {
			return nil
		}
	}

	it, ok := d.q.pop()
	if !ok {
		d.presenting = false
		if d.valid != nil {
			d.valid.Set(0)
		}
		return nil
	}
	for i, s := range d.data {
		s.Set(it[i])
	}
	if d.valid != nil {
		d.valid.Set(1)
	}
	d.presenting = true
	tx := &Transaction{Index: d.sent, Values: append([]uint64(nil), it...), Time: now}
	d.sent++
	return tx
}
