package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

// Direction is the role of a model port.
type Direction int

const (
	// In ports are written by testbench processes.
	In Direction = iota
	// Out ports are written by the model.
	Out
	// Probe ports expose internal model state and are written by the model.
	Probe
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case Probe:
		return "probe"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Port describes one model port.
type Port struct {
	Name  string
	Dir   Direction
	Width uint
}

// A Model is a cycle-based behavioral DUT.
//
// Posedge is called once per rising edge of the DUT clock. It reads the
// pre-edge values of every port from f and stages its next outputs with
// f.Set.
type Model interface {
	Ports() []Port
	Params() map[string]int64
	Posedge(f *Frame)
}

// An Initializer sets model outputs before the first edge.
type Initializer interface {
	Init(f *Frame)
}

// Frame is a model's view of its ports for one evaluation.
type Frame struct {
	d      *DUT
	staged map[string]uint64
	order  []string
}

// Get returns the pre-edge value of port.
func (f *Frame) Get(port string) uint64 {
	return f.d.pin(port).value
}

// Bool reports whether bit 0 of port is set.
func (f *Frame) Bool(port string) bool {
	return f.Get(port)&1 != 0
}

// Set stages v for an output or probe port.
func (f *Frame) Set(port string, v uint64) {
	s := f.d.pin(port)
	if f.d.dirs[port] == In {
		panic(fmt.Sprintf("dut %s: write to input port %s", f.d.name, port))
	}
	if _, ok := f.staged[port]; !ok {
		f.order = append(f.order, port)
	}
	f.staged[port] = v & s.mask
}

// SetBool stages 1 or 0.
func (f *Frame) SetBool(port string, b bool) {
	if b {
		f.Set(port, 1)
		return
	}
	f.Set(port, 0)
}

// DUT is an elaborated model instance.
type DUT struct {
	k     *Kernel
	name  string
	model Model
	clock *Signal
	ports []Port
	pins  map[string]*Signal
	dirs  map[string]Direction
	frame *Frame
}

// Elaborate instantiates model as a DUT named name. Each port becomes a signal
// named "<name>.<port>". clock names the input port whose rising edges drive
// the model; it may be empty for purely combinational models that are
// evaluated on every change of their inputs by the testbench.
func (k *Kernel) Elaborate(name string, model Model, clock string) (*DUT, error) {
	if _, ok := k.duts[name]; ok {
		return nil, errors.Errorf("dut %s already elaborated", name)
	}
	d := &DUT{
		k:     k,
		name:  name,
		model: model,
		ports: model.Ports(),
		pins:  make(map[string]*Signal),
		dirs:  make(map[string]Direction),
	}
	for _, p := range d.ports {
		if _, ok := d.pins[p.Name]; ok {
			return nil, errors.Errorf("dut %s: duplicate port %s", name, p.Name)
		}
		s, err := k.NewSignal(name+"."+p.Name, p.Width)
		if err != nil {
			return nil, errors.Wrapf(err, "dut %s", name)
		}
		d.pins[p.Name] = s
		d.dirs[p.Name] = p.Dir
	}
	if clock != "" {
		s, ok := d.pins[clock]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "dut %s: clock port %s", name, clock)
		}
		if d.dirs[clock] != In || s.width != 1 {
			return nil, errors.Errorf("dut %s: clock port %s must be a 1-bit input", name, clock)
		}
		d.clock = s
		k.clocked[s] = append(k.clocked[s], d)
	}
	if in, ok := model.(Initializer); ok {
		f := d.newFrame()
		in.Init(f)
		d.frame = f
		d.commit()
	}
	k.duts[name] = d
	k.logger.Debug("dut elaborated", "dut", name, "ports", len(d.ports), "clock", clock)
	return d, nil
}

// DUT looks up an elaborated DUT.
func (k *Kernel) DUT(name string) (*DUT, error) {
	d, ok := k.duts[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "dut %s", name)
	}
	return d, nil
}

// Name returns the instance name.
func (d *DUT) Name() string { return d.name }

// Model returns the underlying model.
func (d *DUT) Model() Model { return d.model }

// Ports returns the port list in declaration order.
func (d *DUT) Ports() []Port { return d.ports }

// Clock returns the clock signal, or nil for an unclocked DUT.
func (d *DUT) Clock() *Signal { return d.clock }

// Signal returns the signal bound to port.
func (d *DUT) Signal(port string) (*Signal, error) {
	s, ok := d.pins[port]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "dut %s: port %s", d.name, port)
	}
	return s, nil
}

// MustSignal is like Signal but panics on an unknown port.
func (d *DUT) MustSignal(port string) *Signal {
	s, err := d.Signal(port)
	if err != nil {
		panic(err)
	}
	return s
}

// Param returns the value of a model parameter.
func (d *DUT) Param(name string) (int64, error) {
	v, ok := d.model.Params()[name]
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "dut %s: parameter %s", d.name, name)
	}
	return v, nil
}

// Eval runs one evaluation of the model outside of any clock edge and commits
// the result at once. It is used for unclocked models.
func (d *DUT) Eval() {
	d.evaluate()
	d.commit()
}

func (d *DUT) pin(port string) *Signal {
	s, ok := d.pins[port]
	if !ok {
		panic(fmt.Sprintf("dut %s: unknown port %s", d.name, port))
	}
	return s
}

func (d *DUT) newFrame() *Frame {
	return &Frame{d: d, staged: make(map[string]uint64)}
}

func (d *DUT) evaluate() {
	f := d.newFrame()
	d.model.Posedge(f)
	d.frame = f
}

func (d *DUT) commit() {
	f := d.frame
	d.frame = nil
	if f == nil {
		return
	}
	for _, port := range f.order {
		d.pins[port].Set(f.staged[port])
	}
}
