package tb

import (
	"fmt"

	"github.com/roach88/tbench/internal/sim"
)

// Bench is a concrete testbench for one kind of DUT. Implementations embed
// *Testbench and add stimulus generation and loading.
type Bench interface {
	Base() *Testbench
	// GenerateInputs produces stimulus for the given number of batches.
	GenerateInputs(batches int) (Stimulus, error)
	LoadDrivers(in Stimulus) error
	LoadMonitors(exp Expectations) error
}

// Reference is implemented by benches that can compute the expected outputs
// for a stimulus.
type Reference interface {
	Expected(in Stimulus) (Expectations, error)
}

// RunBatches generates stimulus, loads the drivers, loads the monitors with
// the reference expectations when b implements Reference, and waits for the
// test to end. b must already be initialized.
func RunBatches(p *sim.Proc, b Bench, batches int, timeout int64, unit sim.Unit) error {
	in, err := b.GenerateInputs(batches)
	if err != nil {
		return fmt.Errorf("generate inputs: %w", err)
	}
	if err := b.LoadDrivers(in); err != nil {
		return fmt.Errorf("load drivers: %w", err)
	}
	if ref, ok := b.(Reference); ok {
		exp, err := ref.Expected(in)
		if err != nil {
			return fmt.Errorf("reference model: %w", err)
		}
		if err := b.LoadMonitors(exp); err != nil {
			return fmt.Errorf("load monitors: %w", err)
		}
	}
	return b.Base().WaitEnd(p, timeout, unit)
}
