package tb

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/tbench/internal/clock"
	"github.com/roach88/tbench/internal/sim"
)

// Testbench owns the clock, the reset protocol, the named drivers and
// monitors of one DUT, and decides when a test has ended.
//
// All methods that take a *sim.Proc suspend and must be called from that
// process. A Testbench is not safe for use by several processes at once.
type Testbench struct {
	dut    *sim.DUT
	logger *slog.Logger
	obs    Observers
	strict bool

	clockPort  string
	period     int64
	unit       sim.Unit
	resetPort  string
	activeHigh bool

	clk   *sim.Signal
	rst   *sim.Signal
	clock *clock.Source

	drivers   []Driver
	monitors  []Monitor
	driverIx  map[string]Driver
	monitorIx map[string]Monitor
	owners    map[string]string

	params   Params
	state    State
	failures []*CheckingFailure
}

// Option configures a Testbench.
type Option func(*Testbench)

// WithClock binds the DUT port the clock source drives.
func WithClock(port string) Option {
	return func(t *Testbench) { t.clockPort = port }
}

// WithClockPeriod sets the clock period. The default is 10 ns.
func WithClockPeriod(period int64, unit sim.Unit) Option {
	return func(t *Testbench) {
		t.period = period
		t.unit = unit
	}
}

// WithReset binds the reset port and the polarity Initialize uses.
func WithReset(port string, activeHigh bool) Option {
	return func(t *Testbench) {
		t.resetPort = port
		t.activeHigh = activeHigh
	}
}

// WithStrict controls whether checking failures abort the test and whether
// leftover driver items fail it. The default is strict.
func WithStrict(strict bool) Option {
	return func(t *Testbench) { t.strict = strict }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Testbench) { t.logger = l }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(t *Testbench) { t.obs = append(t.obs, o) }
}

// New creates a Testbench for dut. When a clock port is bound, the clock
// source is started from p at once.
func New(p *sim.Proc, dut *sim.DUT, opts ...Option) (*Testbench, error) {
	t := &Testbench{
		dut:        dut,
		logger:     slog.Default(),
		strict:     true,
		period:     clock.DefaultPeriod,
		unit:       clock.DefaultUnit,
		activeHigh: true,
		driverIx:   make(map[string]Driver),
		monitorIx:  make(map[string]Monitor),
		owners:     make(map[string]string),
		params:     make(Params),
		state:      StateConstructed,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("dut", dut.Name())

	if t.resetPort != "" {
		s, err := dut.Signal(t.resetPort)
		if err != nil {
			return nil, &ConfigurationError{Message: "reset port", Err: err}
		}
		t.rst = s
	}
	if t.clockPort != "" {
		s, err := dut.Signal(t.clockPort)
		if err != nil {
			return nil, &ConfigurationError{Message: "clock port", Err: err}
		}
		src, err := clock.New(s, t.period, t.unit)
		if err != nil {
			return nil, &ConfigurationError{Message: "clock", Err: err}
		}
		if err := src.Start(p); err != nil {
			return nil, err
		}
		t.clk = s
		t.clock = src
	}
	return t, nil
}

// Base returns t. Benches embedding *Testbench satisfy Bench through it.
func (t *Testbench) Base() *Testbench { return t }

// DUT returns the device under test.
func (t *Testbench) DUT() *sim.DUT { return t.dut }

// Clock returns the clock source, or nil when no clock is bound.
func (t *Testbench) Clock() *clock.Source { return t.clock }

// State returns the current lifecycle state.
func (t *Testbench) State() State { return t.state }

// Strict reports whether checking failures are fatal.
func (t *Testbench) Strict() bool { return t.strict }

// Params returns the parameters read by AssignParams.
func (t *Testbench) Params() Params { return t.params }

// Failures returns every checking failure recorded so far.
func (t *Testbench) Failures() []*CheckingFailure { return t.failures }

// Logger returns the testbench logger.
func (t *Testbench) Logger() *slog.Logger { return t.logger }

// Signal returns the DUT signal bound to port.
func (t *Testbench) Signal(port string) (*sim.Signal, error) {
	return t.dut.Signal(port)
}

// AddDriver registers d. Names must be unique and no signal may have two
// writers.
func (t *Testbench) AddDriver(d Driver) error {
	if t.state.Terminal() {
		return &StateError{Op: "AddDriver", State: t.state}
	}
	if _, ok := t.driverIx[d.Name()]; ok {
		return configErrorf("duplicate driver %s", d.Name())
	}
	if err := t.claim("driver "+d.Name(), d.Targets()); err != nil {
		return err
	}
	t.drivers = append(t.drivers, d)
	t.driverIx[d.Name()] = d
	return nil
}

// AddMonitor registers m. A monitor added after Initialize is armed
// immediately.
func (t *Testbench) AddMonitor(m Monitor) error {
	if t.state.Terminal() {
		return &StateError{Op: "AddMonitor", State: t.state}
	}
	if _, ok := t.monitorIx[m.Name()]; ok {
		return configErrorf("duplicate monitor %s", m.Name())
	}
	if err := t.claim("monitor "+m.Name(), m.Targets()); err != nil {
		return err
	}
	t.monitors = append(t.monitors, m)
	t.monitorIx[m.Name()] = m
	if t.state == StateInitialized || t.state == StateRunning {
		m.Arm()
	}
	return nil
}

func (t *Testbench) claim(owner string, sigs []Signal) error {
	for _, s := range sigs {
		if prev, ok := t.owners[s.Name()]; ok {
			return configErrorf("signal %s is written by both %s and %s", s.Name(), prev, owner)
		}
	}
	for _, s := range sigs {
		t.owners[s.Name()] = owner
	}
	return nil
}

// Driver looks up a driver by name.
func (t *Testbench) Driver(name string) (Driver, error) {
	d, ok := t.driverIx[name]
	if !ok {
		return nil, configErrorf("no driver named %s", name)
	}
	return d, nil
}

// Monitor looks up a monitor by name.
func (t *Testbench) Monitor(name string) (Monitor, error) {
	m, ok := t.monitorIx[name]
	if !ok {
		return nil, configErrorf("no monitor named %s", name)
	}
	return m, nil
}

// Drivers returns the drivers in registration order.
func (t *Testbench) Drivers() []Driver { return t.drivers }

// Monitors returns the monitors in registration order.
func (t *Testbench) Monitors() []Monitor { return t.monitors }

// AssignParams copies the named DUT parameters into Params.
func (t *Testbench) AssignParams(names ...string) error {
	for _, n := range names {
		v, err := t.dut.Param(n)
		if err != nil {
			return fmt.Errorf("assign params: %w", err)
		}
		t.params[n] = v
	}
	return nil
}

// LoadStimulus loads each driver with its items.
func (t *Testbench) LoadStimulus(s Stimulus) error {
	for _, name := range sortedKeys(s) {
		d, err := t.Driver(name)
		if err != nil {
			return err
		}
		if err := d.Load(s[name]...); err != nil {
			return err
		}
	}
	return nil
}

// LoadExpectations loads each monitor with its expectations.
func (t *Testbench) LoadExpectations(e Expectations) error {
	for _, name := range sortedKeys(e) {
		m, err := t.Monitor(name)
		if err != nil {
			return err
		}
		if err := m.Load(e[name]...); err != nil {
			return err
		}
	}
	return nil
}

// Reset pulses the reset signal: one edge, assert, one edge, release, one
// edge. Calling it twice leaves the DUT in the same state as calling it once.
func (t *Testbench) Reset(p *sim.Proc, activeHigh bool) error {
	if t.state != StateConstructed && t.state != StateReset {
		return &StateError{Op: "Reset", State: t.state}
	}
	return t.reset(p, activeHigh)
}

func (t *Testbench) reset(p *sim.Proc, activeHigh bool) error {
	if t.rst == nil {
		return configErrorf("no reset signal bound for dut %s", t.dut.Name())
	}
	if t.clk == nil {
		return configErrorf("no clock bound for dut %s", t.dut.Name())
	}
	active, inactive := uint64(1), uint64(0)
	if !activeHigh {
		active, inactive = 0, 1
	}

	if err := p.RisingEdge(t.clk); err != nil {
		return err
	}
	t.rst.Set(active)
	t.obs.OnReset(p.Now(), t.rst.Name(), active)
	if err := p.RisingEdge(t.clk); err != nil {
		return err
	}
	t.rst.Set(inactive)
	t.obs.OnReset(p.Now(), t.rst.Name(), inactive)
	if err := p.RisingEdge(t.clk); err != nil {
		return err
	}
	t.logger.Debug("reset done", "time_ps", int64(p.Now()), "active_high", activeHigh)
	t.setState(p.Now(), StateReset)
	return nil
}

// Initialize resets the DUT when a reset signal is bound, arms every monitor
// and starts the per-cycle process that runs drivers and monitors.
func (t *Testbench) Initialize(p *sim.Proc) error {
	if t.state != StateConstructed && t.state != StateReset {
		return &StateError{Op: "Initialize", State: t.state}
	}
	if t.clk == nil {
		return configErrorf("no clock bound for dut %s", t.dut.Name())
	}
	if t.rst != nil {
		if err := t.reset(p, t.activeHigh); err != nil {
			return err
		}
	}
	for _, m := range t.monitors {
		m.Arm()
	}
	p.Spawn("cycle:"+t.dut.Name(), t.cycleLoop)
	t.setState(p.Now(), StateInitialized)
	return nil
}

func (t *Testbench) cycleLoop(p *sim.Proc) error {
	for {
		if err := p.RisingEdge(t.clk); err != nil {
			return nil
		}
		if t.state.Terminal() {
			return nil
		}
		if err := t.cycle(p.Now()); err != nil {
			return err
		}
	}
}

// cycle runs every driver, then every monitor, for one edge.
func (t *Testbench) cycle(now sim.Time) error {
	for _, d := range t.drivers {
		tx := d.Drive(now)
		if tx == nil {
			continue
		}
		t.logger.Debug("drive", "time_ps", int64(now), "driver", d.Name(), "item", tx.Index)
		t.obs.OnDrive(d.Name(), *tx)
	}
	for _, m := range t.monitors {
		tx, err := m.Sample(now)
		if tx != nil {
			if tx.Expected == nil {
				t.logger.Warn("unexpected transaction ignored", "time_ps", int64(now), "monitor", m.Name(), "values", tx.Values)
			}
			t.obs.OnSample(m.Name(), *tx)
		}
		if err == nil {
			continue
		}
		var cf *CheckingFailure
		if !errors.As(err, &cf) {
			return err
		}
		t.fail(cf)
		if t.strict {
			t.setState(now, StateFailed)
			return cf
		}
	}
	return nil
}

func (t *Testbench) fail(cf *CheckingFailure) {
	t.failures = append(t.failures, cf)
	t.logger.Warn("checking failure", "time_ps", int64(cf.Time), string(cf.Kind), cf.Name, "item", cf.Index, "error", cf.Error())
	t.obs.OnFailure(cf)
}

// WaitEnd suspends edge by edge until every monitor is idle. It fails with a
// TimeoutError once simulated time exceeds timeout (an absolute time in
// unit). In strict mode every driver must then have sent all of its items.
func (t *Testbench) WaitEnd(p *sim.Proc, timeout int64, unit sim.Unit) error {
	if t.state != StateInitialized {
		return &StateError{Op: "WaitEnd", State: t.state}
	}
	limit, err := sim.Duration(timeout, unit)
	if err != nil {
		return fmt.Errorf("wait end: %w", err)
	}
	t.setState(p.Now(), StateRunning)

	for {
		if err := p.RisingEdge(t.clk); err != nil {
			return err
		}
		if p.Now() > limit {
			t.setState(p.Now(), StateTimedOut)
			return &TimeoutError{Time: p.Now(), Limit: limit}
		}
		if t.quiescent() {
			break
		}
	}

	if t.strict {
		for _, d := range t.drivers {
			n := d.Pending()
			if n == 0 {
				continue
			}
			cf := &CheckingFailure{Kind: FailureDriver, Name: d.Name(), Index: -1, Pending: n, Time: p.Now()}
			if np, ok := d.(interface{ NextPending() int }); ok {
				cf.Index = np.NextPending()
			}
			t.fail(cf)
			t.setState(p.Now(), StateFailed)
			return cf
		}
	}
	t.setState(p.Now(), StateCompleted)
	return nil
}

func (t *Testbench) quiescent() bool {
	for _, m := range t.monitors {
		if m.InFlight() {
			return false
		}
	}
	return true
}

func (t *Testbench) setState(now sim.Time, to State) {
	from := t.state
	if from == to {
		return
	}
	t.state = to
	t.logger.Debug("state change", "time_ps", int64(now), "state", to.String(), "from", from.String())
	t.obs.OnState(now, from, to)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
