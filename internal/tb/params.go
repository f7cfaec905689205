package tb

import (
	"fmt"
	"sort"
)

// Params holds DUT parameters read with Testbench.AssignParams.
type Params map[string]int64

// Get returns the named parameter.
func (p Params) Get(name string) (int64, bool) {
	v, ok := p[name]
	return v, ok
}

// MustGet returns the named parameter and panics if it was never assigned.
func (p Params) MustGet(name string) int64 {
	v, ok := p[name]
	if !ok {
		panic(fmt.Sprintf("parameter %s not assigned", name))
	}
	return v
}

// Names returns the assigned parameter names in lexical order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
