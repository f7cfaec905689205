package harness

// Trace event kinds.
const (
	KindState   = "state"
	KindReset   = "reset"
	KindDrive   = "drive"
	KindSample  = "sample"
	KindFailure = "failure"
)

// TraceEvent is one testbench event recorded during a run.
//
// Name depends on Kind: the new state for state events, the signal for
// reset events, the driver or monitor for the others.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	TimePS int64  `json:"time_ps"`
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	// Index is the queue position for drive, sample and failure events.
	Index    int      `json:"index"`
	Values   []uint64 `json:"values,omitempty"`
	Expected string   `json:"expected,omitempty"`
	Match    bool     `json:"match,omitempty"`
	From     string   `json:"from,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Key returns "kind:name", the form assertions use to refer to events.
func (e TraceEvent) Key() string {
	return e.Kind + ":" + e.Name
}

func (e TraceEvent) indexed() bool {
	return e.Kind == KindDrive || e.Kind == KindSample || e.Kind == KindFailure
}

// canonical converts e to the map form canon.Marshal accepts.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"seq":     e.Seq,
		"time_ps": e.TimePS,
		"kind":    e.Kind,
		"name":    e.Name,
	}
	if e.indexed() {
		m["index"] = int64(e.Index)
	}
	if e.Values != nil {
		m["values"] = e.Values
	}
	if e.Expected != "" {
		m["expected"] = e.Expected
	}
	if e.Kind == KindSample {
		m["match"] = e.Match
	}
	if e.From != "" {
		m["from"] = e.From
	}
	if e.Message != "" {
		m["message"] = e.Message
	}
	return m
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when the testbench completed without checking failures
	// and every assertion held.
	Pass bool `json:"pass"`

	// Status is the final testbench state, e.g. COMPLETED or TIMED_OUT.
	Status string `json:"status"`

	// EndTimePS is the simulated time at which the run ended.
	EndTimePS int64 `json:"end_time_ps"`

	Trace []TraceEvent `json:"trace"`

	// Errors holds the testbench error and failed assertions.
	Errors []string `json:"errors,omitempty"`

	// Params are the parameters the testbench introspected.
	Params map[string]int64 `json:"params,omitempty"`

	// Signals are the final values of every DUT port, keyed by port name.
	Signals map[string]uint64 `json:"signals,omitempty"`

	// Digest is the trace digest of the canonical trace snapshot.
	Digest string `json:"digest,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Params:  make(map[string]int64),
		Signals: make(map[string]uint64),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
