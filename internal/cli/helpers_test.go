package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tbench/internal/harness"
	"github.com/roach88/tbench/internal/store"
	"github.com/roach88/tbench/internal/testutil"
)

const (
	timerScenario    = "testdata/scenarios/timer_countdown.yaml"
	mismatchScenario = "testdata/scenarios/timer_mismatch.yaml"
	fifoScenario     = "testdata/scenarios/fifo_generate.yaml"
)

// execute runs the root command with args and returns what it printed on
// stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// seedRuns stores one run of each scenario file with ids run-0001, run-0002, ...
func seedRuns(t *testing.T, files ...string) string {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath, store.WithIDGenerator(testutil.NewSequentialIDs("run")))
	require.NoError(t, err)
	defer st.Close()

	for _, f := range files {
		source, err := harness.ReadScenarioSource(f)
		require.NoError(t, err)
		s, err := harness.ParseScenario(source)
		require.NoError(t, err)
		r, err := harness.Run(ctx, s)
		require.NoError(t, err)
		_, err = st.RecordRun(ctx, s, source, r)
		require.NoError(t, err)
	}
	return dbPath
}

// copyScenario copies a scenario file into dir.
func copyScenario(t *testing.T, src, dir string) string {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	dst := filepath.Join(dir, filepath.Base(src))
	require.NoError(t, os.WriteFile(dst, data, 0644))
	return dst
}
