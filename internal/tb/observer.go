package tb

import "github.com/roach88/tbench/internal/sim"

// Observer receives testbench events as they happen. Calls are made from the
// simulation processes, in simulated-time order.
type Observer interface {
	OnState(now sim.Time, from, to State)
	OnReset(now sim.Time, signal string, value uint64)
	OnDrive(driver string, tx Transaction)
	OnSample(monitor string, tx Transaction)
	OnFailure(f *CheckingFailure)
}

// NopObserver ignores every event. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) OnState(sim.Time, State, State) {}
func (NopObserver) OnReset(sim.Time, string, uint64) {}
func (NopObserver) OnDrive(string, Transaction) {}
func (NopObserver) OnSample(string, Transaction) {}
func (NopObserver) OnFailure(*CheckingFailure) {}

// Observers fans events out to several observers in order.
type Observers []Observer

func (os Observers) OnState(now sim.Time, from, to State) {
	for _, o := range os {
		o.OnState(now, from, to)
	}
}

func (os Observers) OnReset(now sim.Time, signal string, value uint64) {
	for _, o := range os {
		o.OnReset(now, signal, value)
	}
}

func (os Observers) OnDrive(driver string, tx Transaction) {
	for _, o := range os {
		o.OnDrive(driver, tx)
	}
}

func (os Observers) OnSample(monitor string, tx Transaction) {
	for _, o := range os {
		o.OnSample(monitor, tx)
	}
}

func (os Observers) OnFailure(f *CheckingFailure) {
	for _, o := range os {
		o.OnFailure(f)
	}
}
