package tb

// State is the lifecycle position of a Testbench.
type State int

const (
	StateConstructed State = iota
	StateReset
	StateInitialized
	StateRunning
	StateCompleted
	StateTimedOut
	StateFailed
)

var stateNames = [...]string{
	StateConstructed: "CONSTRUCTED",
	StateReset:       "RESET",
	StateInitialized: "INITIALIZED",
	StateRunning:     "RUNNING",
	StateCompleted:   "COMPLETED",
	StateTimedOut:    "TIMED_OUT",
	StateFailed:      "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateFailed
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}
