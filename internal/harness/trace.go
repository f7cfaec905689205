package harness

import (
	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

// recorder is the tb.Observer that builds the run trace. Observer calls come
// from simulation processes one at a time, so it needs no locking.
type recorder struct {
	seq   int64
	trace []TraceEvent
}

func (r *recorder) add(ev TraceEvent) {
	r.seq++
	ev.Seq = r.seq
	r.trace = append(r.trace, ev)
}

func (r *recorder) OnState(now sim.Time, from, to tb.State) {
	r.add(TraceEvent{TimePS: int64(now), Kind: KindState, Name: to.String(), From: from.String()})
}

func (r *recorder) OnReset(now sim.Time, signal string, value uint64) {
	r.add(TraceEvent{TimePS: int64(now), Kind: KindReset, Name: signal, Values: []uint64{value}})
}

func (r *recorder) OnDrive(driver string, tx tb.Transaction) {
	r.add(TraceEvent{TimePS: int64(tx.Time), Kind: KindDrive, Name: driver, Index: tx.Index, Values: tx.Values})
}

func (r *recorder) OnSample(monitor string, tx tb.Transaction) {
	ev := TraceEvent{TimePS: int64(tx.Time), Kind: KindSample, Name: monitor, Index: tx.Index, Values: tx.Values, Match: tx.Match}
	if tx.Expected != nil {
		ev.Expected = tx.Expected.String()
	}
	r.add(ev)
}

func (r *recorder) OnFailure(f *tb.CheckingFailure) {
	r.add(TraceEvent{TimePS: int64(f.Time), Kind: KindFailure, Name: f.Name, Index: f.Index, Values: f.Observed, Message: f.Error()})
}
