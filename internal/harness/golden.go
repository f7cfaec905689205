package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tbench/internal/canon"
)

// snapshot builds the canonical form of a run: scenario, DUT, final state
// and every trace event.
func snapshot(s *Scenario, r *Result) map[string]any {
	return snapshotOf(s.Name, s.DUT, r)
}

func snapshotOf(name, dut string, r *Result) map[string]any {
	trace := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		trace[i] = ev.canonical()
	}
	m := map[string]any{
		"scenario": name,
		"trace":    trace,
	}
	if dut != "" {
		m["dut"] = dut
	}
	if r.Status != "" {
		m["status"] = r.Status
	}
	return m
}

// Digest returns the trace digest of a run of the named scenario.
func Digest(name, dut string, r *Result) (string, error) {
	return canon.TraceDigest(snapshotOf(name, dut, r))
}

// CanonicalTrace returns the canonical JSON bytes compared against golden
// files.
func CanonicalTrace(s *Scenario, r *Result) ([]byte, error) {
	return canon.Marshal(snapshot(s, r))
}

// RunWithGolden runs a scenario and compares its canonical trace with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	traceJSON, err := CanonicalTrace(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
	return result, nil
}

// AssertGolden compares an existing result's trace with a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	traceJSON, err := canon.Marshal(snapshotOf(name, "", result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
