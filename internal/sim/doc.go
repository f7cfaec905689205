// Package sim implements the discrete-event simulation kernel that testbenches
// synchronize against.
//
// The kernel owns simulated time, a set of named signals and a set of
// cooperative processes. Exactly one process runs at any moment; a process only
// gives up control at a suspension point:
//
//   - RisingEdge / FallingEdge: wait for bit 0 of a signal to change.
//   - Until / Timer: wait until simulated time reaches an absolute instant.
//
// # Edges
//
// Writing a signal never runs other code synchronously. Edges are queued and
// processed once the writing process suspends. For a rising edge on a DUT's
// clock port, every model clocked on that port evaluates against the values the
// signals held before the edge; model writes are staged and committed together
// (two state frames, as in a gate-level circuit simulator). Only then are the
// processes waiting on the edge woken, in the order they started waiting. A
// process that waits again while being woken waits for the next edge.
//
// # Time
//
// Time is an integer count of picoseconds. Events scheduled for the same
// instant run in scheduling order, so a run is fully deterministic.
//
// # Lifetime
//
// Kernel.Run starts the main process and returns once it finishes, once any
// other process returns an error, once the context is cancelled, or when no
// event is left that could wake anything. Every process still suspended at that
// point is released with ErrSimulationEnded.
package sim
