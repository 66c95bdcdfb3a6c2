package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one finalize run with its summary counts.
type Run struct {
	ID      string
	Project string
	Locus   string
	Started time.Time
	Source  FileFingerprint

	RawReads     int64
	Total        int64
	VAssigned    int64
	JAssigned    int64
	CDR3Assigned int64
	InFrame      int64
	Good         int64
}

// NewRunID returns a new random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// WriteRun inserts or replaces a run record.
func (s *Store) WriteRun(r *Run) error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", r.ID, err)
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Project, r.Locus, r.Started.UTC(),
		r.Source.Path, r.Source.Size, r.Source.ModTime.UTC(),
		r.RawReads, r.Total, r.VAssigned, r.JAssigned, r.CDR3Assigned, r.InFrame, r.Good)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

const runColumns = `run_id, project, locus, started, source_path, source_size, source_mtime,
	raw_reads, total, v_assigned, j_assigned, cdr3_assigned, in_frame, good`

// Runs returns all runs, most recent first.
func (s *Store) Runs() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY started DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LookupRun returns the run with the given id, or nil if there is none.
func (s *Store) LookupRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id=?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// LatestRun returns the most recent run for a project, or nil if there is
// none.
func (s *Store) LatestRun(project string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE project=? ORDER BY started DESC LIMIT 1`, project)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	if err := sc.Scan(
		&r.ID, &r.Project, &r.Locus, &r.Started,
		&r.Source.Path, &r.Source.Size, &r.Source.ModTime,
		&r.RawReads, &r.Total, &r.VAssigned, &r.JAssigned, &r.CDR3Assigned, &r.InFrame, &r.Good,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &r, nil
}
