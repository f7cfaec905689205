package sim

import (
	"container/heap"
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrSimulationEnded is returned from suspension points once the run is over.
var ErrSimulationEnded = errors.New("simulation ended")

// Kernel is the discrete-event scheduler.
//
// A Kernel is single-use: build signals and DUTs, then call Run once.
type Kernel struct {
	logger *slog.Logger

	now    Time
	seq    uint64
	timers timerQueue
	edges  []edge

	signals map[string]*Signal
	duts    map[string]*DUT
	clocked map[*Signal][]*DUT

	wg      sync.WaitGroup
	done    chan struct{}
	started bool
	nprocs  int

	main     *Proc
	mainDone bool
	mainErr  error
	failure  error
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the kernel logger.
func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) {
		k.logger = l
	}
}

// New creates an empty kernel at time zero.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		signals: make(map[string]*Signal),
		duts:    make(map[string]*DUT),
		clocked: make(map[*Signal][]*DUT),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Now returns the current simulated time.
func (k *Kernel) Now() Time { return k.now }

// NewSignal creates a free-standing signal.
func (k *Kernel) NewSignal(name string, width uint) (*Signal, error) {
	if _, ok := k.signals[name]; ok {
		return nil, errors.Errorf("signal %s already exists", name)
	}
	s, err := newSignal(k, name, width)
	if err != nil {
		return nil, err
	}
	k.signals[name] = s
	return s, nil
}

// Signal looks up a signal by its full name.
func (k *Kernel) Signal(name string) (*Signal, error) {
	s, ok := k.signals[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "signal %s", name)
	}
	return s, nil
}

// Signals returns all signal names in lexical order.
func (k *Kernel) Signals() []string {
	names := make([]string, 0, len(k.signals))
	for n := range k.signals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes main as the first process and drives the simulation until main
// returns. It returns main's error, the first error returned by any other
// process, the context error, or a stall error.
func (k *Kernel) Run(ctx context.Context, main ProcFunc) error {
	if k.started {
		return errors.New("kernel already run")
	}
	k.started = true

	k.main = k.newProc("main")
	k.start(k.main, main)
	k.resume(k.main)

	err := k.loop(ctx)

	close(k.done)
	k.wg.Wait()
	k.logger.Debug("simulation finished", "time_ps", int64(k.now), "error", err)
	return err
}

func (k *Kernel) loop(ctx context.Context) error {
	for {
		if k.failure != nil {
			return k.failure
		}
		if k.mainDone {
			return k.mainErr
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "simulation interrupted at %s", k.now)
		}

		if len(k.edges) > 0 {
			e := k.edges[0]
			k.edges[0] = edge{}
			k.edges = k.edges[1:]
			k.fire(e)
			continue
		}

		if k.timers.Len() == 0 {
			return errors.Errorf("simulation stalled at %s: main process waits on an event that can never happen", k.now)
		}
		t := heap.Pop(&k.timers).(*timer)
		k.now = t.at
		k.resume(t.proc)
	}
}

type edge struct {
	sig    *Signal
	rising bool
}

func (k *Kernel) queueEdge(s *Signal, rising bool) {
	k.edges = append(k.edges, edge{sig: s, rising: rising})
}

// fire evaluates models clocked on a rising edge, then wakes the waiters.
func (k *Kernel) fire(e edge) {
	if e.rising {
		duts := k.clocked[e.sig]
		for _, d := range duts {
			d.evaluate()
		}
		for _, d := range duts {
			d.commit()
		}
	}

	var waiters []*Proc
	if e.rising {
		waiters, e.sig.rise = e.sig.rise, nil
	} else {
		waiters, e.sig.fall = e.sig.fall, nil
	}
	for _, p := range waiters {
		k.resume(p)
		if k.failure != nil || k.mainDone {
			return
		}
	}
}

func (k *Kernel) schedule(at Time, p *Proc) {
	k.seq++
	heap.Push(&k.timers, &timer{at: at, seq: k.seq, proc: p})
}

// resume hands control to p and blocks until p suspends or returns.
func (k *Kernel) resume(p *Proc) {
	p.wake <- struct{}{}
	<-p.parked
}

func (k *Kernel) ended() bool {
	select {
	case <-k.done:
		return true
	default:
		return false
	}
}

func (k *Kernel) exit(p *Proc, err error) {
	if k.ended() {
		return
	}
	if p == k.main {
		k.mainDone = true
		k.mainErr = err
		return
	}
	if err != nil && k.failure == nil {
		k.logger.Debug("process failed", "process", p.name, "time_ps", int64(k.now), "error", err)
		k.failure = err
	}
}

type timer struct {
	at   Time
	seq  uint64
	proc *Proc
}

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x any) { *q = append(*q, x.(*timer)) }

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
