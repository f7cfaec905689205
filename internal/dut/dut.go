// Package dut contains cycle-based behavioral models of the circuits the
// testbenches exercise. Each model is a sim.Model: it exposes named ports and
// parameters and updates its outputs on rising clock edges.
package dut

import (
	"fmt"
	"sort"

	"github.com/roach88/tbench/internal/sim"
)

// Info describes a model kind and how to build it.
type Info struct {
	Name        string
	Description string
	// Clock is the clock input port.
	Clock string
	// Reset is the reset input port, empty when the model has none.
	Reset string
	// ResetActiveHigh is the reset polarity.
	ResetActiveHigh bool
	// Defaults lists every parameter with its default value.
	Defaults map[string]int64
	New      func(params map[string]int64) (sim.Model, error)
}

var registry = map[string]Info{}

func register(i Info) {
	if _, ok := registry[i.Name]; ok {
		panic("dut: duplicate model " + i.Name)
	}
	registry[i.Name] = i
}

// Lookup returns the model kind registered under name.
func Lookup(name string) (Info, error) {
	i, ok := registry[name]
	if !ok {
		return Info{}, fmt.Errorf("unknown dut %q (known: %v)", name, Names())
	}
	return i, nil
}

// Names returns the registered model names in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// resolve merges overrides into defaults. Unknown names are rejected.
func resolve(model string, defaults, overrides map[string]int64) (map[string]int64, error) {
	out := make(map[string]int64, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		if _, ok := defaults[k]; !ok {
			return nil, fmt.Errorf("%s: unknown parameter %s", model, k)
		}
		out[k] = v
	}
	return out, nil
}

func checkWidth(model, param string, v int64) error {
	if v < 1 || v > sim.MaxWidth {
		return fmt.Errorf("%s: %s must be between 1 and %d, got %d", model, param, sim.MaxWidth, v)
	}
	return nil
}

func checkPositive(model, param string, v int64) error {
	if v < 1 {
		return fmt.Errorf("%s: %s must be positive, got %d", model, param, v)
	}
	return nil
}
