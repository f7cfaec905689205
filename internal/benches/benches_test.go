package benches

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbench/internal/sim"
	"github.com/roach88/tbench/internal/tb"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func runBench(t *testing.T, model string, params map[string]int64, body func(p *sim.Proc, b tb.Bench) error) tb.Bench {
	t.Helper()
	e, err := Lookup(model)
	require.NoError(t, err)
	k := sim.New()
	d, err := e.Elaborate(k, params)
	require.NoError(t, err)

	var b tb.Bench
	err = k.Run(context.Background(), func(p *sim.Proc) error {
		var err error
		b, err = e.New(p, d, 7, tb.WithLogger(quiet))
		if err != nil {
			return err
		}
		if err := b.Base().Initialize(p); err != nil {
			return err
		}
		return body(p, b)
	})
	require.NoError(t, err)
	return b
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"fifo", "segtest", "timer", "tlc"}, Names())
	_, err := Lookup("cpu")
	assert.Error(t, err)
}

func TestRunBatches_AllBenches(t *testing.T) {
	cases := []struct {
		model   string
		params  map[string]int64
		batches int
	}{
		{"timer", nil, 3},
		{"timer", map[string]int64{"WIDTH": 2}, 4},
		{"fifo", nil, 2},
		{"fifo", map[string]int64{"DEPTH": 1, "DATA_WIDTH": 12}, 3},
		{"tlc", nil, 2},
		{"tlc", map[string]int64{"PED_CYCLES": 1}, 1},
		{"segtest", nil, 2},
	}
	for _, tc := range cases {
		t.Run(tc.model, func(t *testing.T) {
			b := runBench(t, tc.model, tc.params, func(p *sim.Proc, b tb.Bench) error {
				return tb.RunBatches(p, b, tc.batches, 1, sim.MS)
			})
			assert.Equal(t, tb.StateCompleted, b.Base().State())
			assert.Empty(t, b.Base().Failures())
		})
	}
}

func TestTimerBench_CountdownScenario(t *testing.T) {
	b := runBench(t, "timer", nil, func(p *sim.Proc, b tb.Bench) error {
		if err := b.LoadDrivers(tb.Stimulus{"count": {{5}}}); err != nil {
			return err
		}
		exp := tb.Expectations{"readout": {
			tb.Values(5), tb.Values(4), tb.Values(3), tb.Values(2), tb.Values(1), tb.Values(0),
		}}
		if err := b.LoadMonitors(exp); err != nil {
			return err
		}
		return b.Base().WaitEnd(p, 1, sim.MS)
	})
	tm := b.(*TimerBench)
	assert.Equal(t, 6, tm.Readout.Observed())
	assert.Equal(t, int64(32), tm.Params().MustGet("WIDTH"))
}

func TestTimerBench_Expected(t *testing.T) {
	b := &TimerBench{}
	exp, err := b.Expected(tb.Stimulus{"count": {{2}, {0}}})
	require.NoError(t, err)
	assert.Equal(t, []tb.Expectation{tb.Values(2), tb.Values(1), tb.Values(0), tb.Values(0)}, exp["readout"])
}

func TestTLCBench_ReferenceWalksAllStates(t *testing.T) {
	runBench(t, "tlc", nil, func(p *sim.Proc, b tb.Bench) error {
		in, err := b.GenerateInputs(1)
		require.NoError(t, err)
		exp, err := b.(tb.Reference).Expected(in)
		require.NoError(t, err)

		seen := map[uint64]bool{}
		for _, e := range exp["state"] {
			seen[e[0].Value] = true
		}
		assert.Len(t, seen, 4, "every FSM state is visited")
		assert.Equal(t, len(in["req"])+1, len(exp["state"]))
		return nil
	})
}

func TestGenerateInputs_Deterministic(t *testing.T) {
	gen := func() tb.Stimulus {
		var in tb.Stimulus
		runBench(t, "fifo", nil, func(p *sim.Proc, b tb.Bench) error {
			var err error
			in, err = b.GenerateInputs(2)
			return err
		})
		return in
	}
	assert.Equal(t, gen(), gen())

	runBench(t, "fifo", nil, func(p *sim.Proc, b tb.Bench) error {
		_, err := b.GenerateInputs(0)
		assert.Error(t, err)
		return nil
	})
}
