package sim

import "github.com/pkg/errors"

// MaxWidth is the widest supported signal.
const MaxWidth = 64

// ErrNotFound is wrapped by lookups of unknown signals, ports and parameters.
var ErrNotFound = errors.New("not found")

// A Signal is a named, fixed-width value shared by models and processes.
//
// Reads return the value as of the current instant. Writes take effect
// immediately and are masked to the signal width; a change of bit 0 queues a
// rising or falling edge that is processed once the writer suspends.
type Signal struct {
	k     *Kernel
	name  string
	width uint
	mask  uint64
	value uint64

	rise []*Proc
	fall []*Proc
}

func newSignal(k *Kernel, name string, width uint) (*Signal, error) {
	if width == 0 || width > MaxWidth {
		return nil, errors.Errorf("signal %s: invalid width %d", name, width)
	}
	mask := ^uint64(0)
	if width < MaxWidth {
		mask = 1<<width - 1
	}
	return &Signal{k: k, name: name, width: width, mask: mask}, nil
}

// Name returns the full signal name.
func (s *Signal) Name() string { return s.name }

// Width returns the signal width in bits.
func (s *Signal) Width() uint { return s.width }

// Get returns the current value.
func (s *Signal) Get() uint64 { return s.value }

// Bool reports whether bit 0 is set.
func (s *Signal) Bool() bool { return s.value&1 != 0 }

// Set writes v, truncated to the signal width.
func (s *Signal) Set(v uint64) {
	v &= s.mask
	old := s.value
	if v == old {
		return
	}
	s.value = v
	switch {
	case old&1 == 0 && v&1 == 1:
		s.k.queueEdge(s, true)
	case old&1 == 1 && v&1 == 0:
		s.k.queueEdge(s, false)
	}
}

// SetBool writes 1 or 0.
func (s *Signal) SetBool(b bool) {
	if b {
		s.Set(1)
		return
	}
	s.Set(0)
}
