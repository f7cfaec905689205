package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tbench/internal/harness"
)

// Run is one recorded scenario run.
type Run struct {
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
	DUT      string `json:"dut"`
	// Source is the scenario document, YAML or exported JSON, that
	// harness.ParseScenario accepts. It lets a run be replayed.
	Source    string           `json:"-"`
	Status    string           `json:"status"`
	Pass      bool             `json:"pass"`
	EndTimePS int64            `json:"end_time_ps"`
	Digest    string           `json:"digest,omitempty"`
	Params    map[string]int64 `json:"params,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
	Finished  bool             `json:"finished"`
}

// BeginRun records a started run and returns its new id.
func (s *Store) BeginRun(ctx context.Context, scenario, dut string, source []byte) (string, error) {
	id := s.newID.Generate()
	if err := s.WriteRun(ctx, Run{ID: id, Scenario: scenario, DUT: dut, Source: string(source)}); err != nil {
		return "", err
	}
	return id, nil
}

// WriteRun inserts a run record. Writing an id that already exists is an
// error; runs are never overwritten.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}
	status := run.Status
	if status == "" {
		status = "RUNNING"
	}
	params, err := marshalParams(run.Params)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	errs, err := marshalErrors(run.Errors)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, dut, source, status, pass, end_time_ps, digest, params, errors, finished)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Scenario,
		run.DUT,
		run.Source,
		status,
		run.Pass,
		run.EndTimePS,
		run.Digest,
		params,
		errs,
		run.Finished,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run. Finishing a run twice is an error.
func (s *Store) FinishRun(ctx context.Context, id string, r *harness.Result) error {
	params, err := marshalParams(r.Params)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	errs, err := marshalErrors(r.Errors)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, pass = ?, end_time_ps = ?, digest = ?, params = ?, errors = ?, finished = 1
		WHERE id = ? AND finished = 0
	`,
		r.Status,
		r.Pass,
		r.EndTimePS,
		r.Digest,
		params,
		errs,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: no unfinished run with that id", id)
	}
	return nil
}

// WriteEvent appends one trace event to a run. The run must exist
// (foreign key). A duplicate seq is silently ignored.
func (s *Store) WriteEvent(ctx context.Context, runID string, ev harness.TraceEvent) error {
	return writeEvent(ctx, s.db, runID, ev)
}

// WriteEvents appends a whole trace in one transaction.
func (s *Store) WriteEvents(ctx context.Context, runID string, evs []harness.TraceEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	for _, ev := range evs {
		if err := writeEvent(ctx, tx, runID, ev); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeEvent(ctx context.Context, db execer, runID string, ev harness.TraceEvent) error {
	payload, err := marshalPayload(ev)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, time_ps, kind, name, idx, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		ev.Seq,
		ev.TimePS,
		ev.Kind,
		ev.Name,
		ev.Index,
		payload,
	)
	if err != nil {
		return fmt.Errorf("write event %d: %w", ev.Seq, err)
	}
	return nil
}

// RecordRun stores a finished run and its trace in one call.
func (s *Store) RecordRun(ctx context.Context, scenario *harness.Scenario, source []byte, r *harness.Result) (string, error) {
	id, err := s.BeginRun(ctx, scenario.Name, scenario.DUT, source)
	if err != nil {
		return "", err
	}
	if err := s.WriteEvents(ctx, id, r.Trace); err != nil {
		return "", err
	}
	if err := s.FinishRun(ctx, id, r); err != nil {
		return "", err
	}
	return id, nil
}
