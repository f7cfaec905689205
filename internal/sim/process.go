package sim

import (
	"strconv"

	"github.com/pkg/errors"
)

// ProcFunc is the body of a simulation process.
type ProcFunc func(p *Proc) error

// A Proc is a cooperative simulation process. Its methods must only be called
// from the process's own body.
type Proc struct {
	k      *Kernel
	name   string
	wake   chan struct{}
	parked chan struct{}
}

func (k *Kernel) newProc(name string) *Proc {
	k.nprocs++
	if name == "" {
		name = "proc" + strconv.Itoa(k.nprocs)
	}
	return &Proc{
		k:      k,
		name:   name,
		wake:   make(chan struct{}),
		parked: make(chan struct{}),
	}
}

func (k *Kernel) start(p *Proc, fn ProcFunc) {
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		select {
		case <-p.wake:
		case <-k.done:
			return
		}
		err := fn(p)
		k.exit(p, err)
		select {
		case p.parked <- struct{}{}:
		case <-k.done:
		}
	}()
}

// Name returns the process name.
func (p *Proc) Name() string { return p.name }

// Now returns the current simulated time.
func (p *Proc) Now() Time { return p.k.now }

// Kernel returns the kernel running p.
func (p *Proc) Kernel() *Kernel { return p.k }

// Spawn starts fn as a new process. The new process runs immediately until its
// first suspension point, then control returns to the caller. There is no
// handle to stop it; it ends with the simulation.
func (p *Proc) Spawn(name string, fn ProcFunc) *Proc {
	c := p.k.newProc(name)
	p.k.start(c, fn)
	p.k.resume(c)
	return c
}

// RisingEdge suspends until bit 0 of s goes from 0 to 1.
func (p *Proc) RisingEdge(s *Signal) error {
	if p.k.ended() {
		return ErrSimulationEnded
	}
	s.rise = append(s.rise, p)
	return p.suspend()
}

// FallingEdge suspends until bit 0 of s goes from 1 to 0.
func (p *Proc) FallingEdge(s *Signal) error {
	if p.k.ended() {
		return ErrSimulationEnded
	}
	s.fall = append(s.fall, p)
	return p.suspend()
}

// Until suspends until simulated time reaches t. It returns at once if t is
// not in the future.
func (p *Proc) Until(t Time) error {
	if p.k.ended() {
		return ErrSimulationEnded
	}
	if t <= p.k.now {
		return nil
	}
	p.k.schedule(t, p)
	return p.suspend()
}

// Timer suspends for d.
func (p *Proc) Timer(d Time) error {
	if d <= 0 {
		return errors.Errorf("process %s: non-positive delay %d", p.name, d)
	}
	return p.Until(p.k.now + d)
}

func (p *Proc) suspend() error {
	p.parked <- struct{}{}
	select {
	case <-p.wake:
		return nil
	case <-p.k.done:
		return ErrSimulationEnded
	}
}
