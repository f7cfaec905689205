package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbench/internal/harness"
	"github.com/roach88/tbench/internal/store"
)

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "", "trace", "--run", "run-0001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceListsRuns(t *testing.T) {
	dbPath := seedRuns(t, timerScenario, mismatchScenario)

	out, err := execute(t, "", "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ run-0001  timer_countdown (timer) COMPLETED at 90000ps")
	assert.Contains(t, out, "✗ run-0002  timer_mismatch (timer) FAILED")

	out, err = execute(t, "", "trace", "--db", dbPath, "--scenario", "timer_mismatch")
	require.NoError(t, err)
	assert.NotContains(t, out, "run-0001")
	assert.Contains(t, out, "run-0002")
}

func TestTraceShowsTimeline(t *testing.T) {
	dbPath := seedRuns(t, timerScenario)

	out, err := execute(t, "", "trace", "--db", dbPath, "--run", "run-0001")
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: timer_countdown (timer)")
	assert.Contains(t, out, "[1] 0ps reset:timer.rst_i [1]")
	assert.Contains(t, out, "drive:count[0] [5]")
	assert.Contains(t, out, "[13] 90000ps state:COMPLETED from RUNNING")
	assert.Contains(t, out, "Events: 13")
	assert.Contains(t, out, "verified")
}

func TestTraceKindFilterJSON(t *testing.T) {
	dbPath := seedRuns(t, timerScenario)

	out, err := execute(t, "", "trace", "--db", dbPath, "--run", "run-0001", "--kind", "sample", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Verified)
	require.Len(t, resp.Data.Timeline, 6)
	for i, ev := range resp.Data.Timeline {
		assert.Equal(t, harness.KindSample, ev.Kind)
		assert.Equal(t, []uint64{uint64(5 - i)}, ev.Values)
	}
	assert.Equal(t, 13, resp.Data.Stats.TotalEvents)
	assert.Equal(t, 6, resp.Data.Stats.ByKind[harness.KindSample])
	assert.Equal(t, 0, resp.Data.Stats.Failures)
}

func TestTraceUnknownRun(t *testing.T) {
	dbPath := seedRuns(t, timerScenario)

	_, err := execute(t, "", "trace", "--db", dbPath, "--run", "run-9999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found")
}

func TestTraceDetectsTampering(t *testing.T) {
	dbPath := seedRuns(t, timerScenario)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		`UPDATE events SET time_ps = time_ps + 1 WHERE run_id = ? AND seq = 5`, "run-0001")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "", "trace", "--db", dbPath, "--run", "run-0001")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match stored trace")
}

func TestTraceBadDatabasePath(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "no", "such", "dir", "runs.db")
	_, err := execute(t, "", "trace", "--db", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
