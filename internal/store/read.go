package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tbench/internal/harness"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Scenario string
	Limit    int
}

// ReadRun returns the run with the given id, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, dut, source, status, pass, end_time_ps, digest, params, errors, finished
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs in id order. With UUIDv7 ids that is creation order.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]Run, error) {
	query := `
		SELECT id, scenario, dut, source, status, pass, end_time_ps, digest, params, errors, finished
		FROM runs`
	var args []any
	if f.Scenario != "" {
		query += " WHERE scenario = ?"
		args = append(args, f.Scenario)
	}
	query += " ORDER BY id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns the trace of a run ordered by seq. A run with no
// events yields an empty slice, not nil.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]harness.TraceEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, time_ps, kind, name, idx, payload
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadFailures returns only the failure events of a run.
func (s *Store) ReadFailures(ctx context.Context, runID string) ([]harness.TraceEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, time_ps, kind, name, idx, payload
		FROM events
		WHERE run_id = ? AND kind = ?
		ORDER BY seq ASC
	`, runID, harness.KindFailure)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]harness.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	evs := []harness.TraceEvent{}
	for rows.Next() {
		var ev harness.TraceEvent
		var payload string
		if err := rows.Scan(&ev.Seq, &ev.TimePS, &ev.Kind, &ev.Name, &ev.Index, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := unmarshalPayload(payload, &ev); err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return evs, nil
}

// Result rebuilds the harness result of a finished run from its stored
// record and trace. Signals are not stored and stay empty.
func (s *Store) Result(ctx context.Context, id string) (*harness.Result, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return nil, err
	}
	evs, err := s.ReadEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	r := harness.NewResult()
	r.Pass = run.Pass
	r.Status = run.Status
	r.EndTimePS = run.EndTimePS
	r.Digest = run.Digest
	r.Trace = evs
	r.Errors = run.Errors
	r.Params = run.Params
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var params, errs string
	err := row.Scan(
		&run.ID,
		&run.Scenario,
		&run.DUT,
		&run.Source,
		&run.Status,
		&run.Pass,
		&run.EndTimePS,
		&run.Digest,
		&params,
		&errs,
		&run.Finished,
	)
	if err != nil {
		return Run{}, err
	}
	if run.Params, err = unmarshalParams(params); err != nil {
		return Run{}, err
	}
	if run.Errors, err = unmarshalErrors(errs); err != nil {
		return Run{}, err
	}
	return run, nil
}
