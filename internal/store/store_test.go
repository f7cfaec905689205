package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tbench/internal/harness"
	"github.com/roach88/tbench/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"), WithIDGenerator(testutil.NewSequentialIDs("run")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := openTestStore(t)

	v, err := s.schemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs("run")))
	require.NoError(t, err)
	id, err := s.BeginRun(ctx, "timer_countdown", "timer", []byte("name: x"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "timer_countdown", run.Scenario)
	assert.Equal(t, "name: x", run.Source)
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	var g UUIDv7Generator
	a := g.Generate()
	b := g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}

func TestBeginRun_Defaults(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.BeginRun(ctx, "fifo", "fifo", []byte("src"))
	require.NoError(t, err)
	assert.Equal(t, "run-0001", id)

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", run.Status)
	assert.False(t, run.Finished)
	assert.False(t, run.Pass)
	assert.Empty(t, run.Params)
	assert.Empty(t, run.Errors)
}

func TestWriteRun_RequiresID(t *testing.T) {
	s := openTestStore(t)
	err := s.WriteRun(context.Background(), Run{Scenario: "x", DUT: "timer"})
	assert.Error(t, err)
}

func TestWriteRun_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run := Run{ID: "run-a", Scenario: "x", DUT: "timer"}
	require.NoError(t, s.WriteRun(ctx, run))
	assert.Error(t, s.WriteRun(ctx, run))
}

func TestReadRun_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinishRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.BeginRun(ctx, "x", "timer", nil)
	require.NoError(t, err)

	r := harness.NewResult()
	r.Status = "FAILED"
	r.EndTimePS = 60000
	r.Digest = "abc"
	r.Params["WIDTH"] = 32
	r.AddError("readout[1]: expected 4, got 9")
	require.NoError(t, s.FinishRun(ctx, id, r))

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.True(t, run.Finished)
	assert.False(t, run.Pass)
	assert.Equal(t, "FAILED", run.Status)
	assert.Equal(t, int64(60000), run.EndTimePS)
	assert.Equal(t, "abc", run.Digest)
	assert.Equal(t, map[string]int64{"WIDTH": 32}, run.Params)
	assert.Equal(t, []string{"readout[1]: expected 4, got 9"}, run.Errors)

	assert.Error(t, s.FinishRun(ctx, id, r), "a run finishes once")
	assert.Error(t, s.FinishRun(ctx, "missing", r))
}

func TestWriteEvents_OrderAndPayload(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id, err := s.BeginRun(ctx, "x", "timer", nil)
	require.NoError(t, err)

	evs := []harness.TraceEvent{
		{Seq: 2, TimePS: 30000, Kind: harness.KindDrive, Name: "count", Values: []uint64{5}},
		{Seq: 0, TimePS: 0, Kind: harness.KindReset, Name: "rst_i", Values: []uint64{1}},
		{Seq: 1, TimePS: 20000, Kind: harness.KindState, Name: "RESET", From: "CONSTRUCTED"},
		{Seq: 3, TimePS: 40000, Kind: harness.KindSample, Name: "readout", Index: 1, Values: []uint64{5}, Expected: "5", Match: true},
	}
	require.NoError(t, s.WriteEvents(ctx, id, evs))

	got, err := s.ReadEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, ev := range got {
		assert.Equal(t, int64(i), ev.Seq)
	}
	assert.Equal(t, "CONSTRUCTED", got[1].From)
	assert.Equal(t, evs[3], got[3])
}

func TestWriteEvent_DuplicateSeqIgnored(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id, err := s.BeginRun(ctx, "x", "timer", nil)
	require.NoError(t, err)

	ev := harness.TraceEvent{Seq: 0, Kind: harness.KindState, Name: "RESET"}
	require.NoError(t, s.WriteEvent(ctx, id, ev))
	ev.Name = "RUNNING"
	require.NoError(t, s.WriteEvent(ctx, id, ev))

	got, err := s.ReadEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "RESET", got[0].Name)
}

func TestWriteEvent_UnknownRun(t *testing.T) {
	s := openTestStore(t)
	err := s.WriteEvent(context.Background(), "missing", harness.TraceEvent{Kind: harness.KindState, Name: "RESET"})
	assert.Error(t, err, "foreign keys reject events without a run")
}

func TestReadEvents_Empty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.ReadEvents(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadFailures(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	id, err := s.BeginRun(ctx, "x", "timer", nil)
	require.NoError(t, err)

	require.NoError(t, s.WriteEvents(ctx, id, []harness.TraceEvent{
		{Seq: 0, Kind: harness.KindSample, Name: "readout", Values: []uint64{9}, Expected: "4"},
		{Seq: 1, Kind: harness.KindFailure, Name: "readout", Index: 1, Message: "expected 4, got 9"},
		{Seq: 2, Kind: harness.KindState, Name: "FAILED", From: "RUNNING"},
	}))

	got, err := s.ReadFailures(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "expected 4, got 9", got[0].Message)
	assert.Equal(t, 1, got[0].Index)
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, name := range []string{"timer", "fifo", "timer"} {
		_, err := s.BeginRun(ctx, name, name, nil)
		require.NoError(t, err)
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-0001", all[0].ID)
	assert.Equal(t, "run-0003", all[2].ID)

	timers, err := s.ListRuns(ctx, RunFilter{Scenario: "timer"})
	require.NoError(t, err)
	require.Len(t, timers, 2)
	assert.Equal(t, "run-0003", timers[1].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-0001", limited[0].ID)
}

func TestRecordRun_DigestSurvivesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	path := filepath.Join("..", "harness", "testdata", "timer_countdown.yaml")
	source, err := harness.ReadScenarioSource(path)
	require.NoError(t, err)
	scenario, err := harness.ParseScenario(source)
	require.NoError(t, err)

	result, err := harness.Run(ctx, scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	id, err := s.RecordRun(ctx, scenario, source, result)
	require.NoError(t, err)

	stored, err := s.Result(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, result.Status, stored.Status)
	assert.Equal(t, result.EndTimePS, stored.EndTimePS)
	assert.Equal(t, result.Trace, stored.Trace)

	digest, err := harness.Digest(scenario.Name, scenario.DUT, stored)
	require.NoError(t, err)
	assert.Equal(t, result.Digest, digest)

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	replayed, err := harness.ParseScenario([]byte(run.Source))
	require.NoError(t, err)
	assert.Equal(t, scenario.Name, replayed.Name)
}
