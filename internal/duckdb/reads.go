package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-cdr3/internal/classify"
)

// ReadRecord is a stored classification.
type ReadRecord struct {
	ReadID      string
	Status      classify.Status
	TrimLen     int64
	VGenes      string
	DGenes      string
	JGenes      string
	Constant    string
	InDel       bool
	Stop        bool
	VDivergence float64
	CDR3Nuc     string
	CDR3AA      string
}

// WriteClassifications batch-inserts classifications for a run using the
// Appender API. noV reads are skipped.
func (s *Store) WriteClassifications(runID string, cls []*classify.Classification) error {
	if len(cls) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "read_classifications")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, cl := range cls {
		if cl.Status == classify.NoV {
			continue
		}
		if err := appender.AppendRow(
			runID, cl.ReadID, cl.Status.String(), int64(len(cl.Seq)),
			cl.VGenes, cl.DGenes, cl.JGenes, cl.Constant,
			cl.InDel, cl.Stop, cl.VDivergence,
			cl.JunctionSeq, cl.JunctionAA,
		); err != nil {
			return fmt.Errorf("append classification %s: %w", cl.ReadID, err)
		}
	}

	return appender.Flush()
}

// LookupRead returns the stored classification of one read, or nil if the
// read was not stored.
func (s *Store) LookupRead(runID, readID string) (*ReadRecord, error) {
	row := s.db.QueryRow(`SELECT
		read_id, status, trim_len, v_genes, d_genes, j_genes, constant,
		indel, stop, v_div, cdr3_nt, cdr3_aa
		FROM read_classifications
		WHERE run_id=? AND read_id=?`, runID, readID)

	var rec ReadRecord
	var status string
	if err := row.Scan(
		&rec.ReadID, &status, &rec.TrimLen, &rec.VGenes, &rec.DGenes, &rec.JGenes, &rec.Constant,
		&rec.InDel, &rec.Stop, &rec.VDivergence, &rec.CDR3Nuc, &rec.CDR3AA,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan read: %w", err)
	}
	st, err := classify.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	rec.Status = st
	return &rec, nil
}

// StatusCounts returns the number of stored reads per status for a run.
func (s *Store) StatusCounts(runID string) (map[classify.Status]int, error) {
	rows, err := s.db.Query(`SELECT status, count(*) FROM read_classifications
		WHERE run_id=? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[classify.Status]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		st, err := classify.ParseStatus(name)
		if err != nil {
			return nil, err
		}
		counts[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// Clonotype is a CDR3 amino acid sequence with its read count.
type Clonotype struct {
	CDR3AA string
	Count  int
}

// TopClonotypes returns the n most frequent CDR3 amino acid sequences among
// the good reads of a run. Ties are ordered by sequence.
func (s *Store) TopClonotypes(runID string, n int) ([]Clonotype, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT cdr3_aa, count(*) AS n FROM read_classifications
		WHERE run_id=? AND status=?
		GROUP BY cdr3_aa
		ORDER BY n DESC, cdr3_aa
		LIMIT %d`, n), runID, classify.Good.String())
	if err != nil {
		return nil, fmt.Errorf("query clonotypes: %w", err)
	}
	defer rows.Close()

	var out []Clonotype
	for rows.Next() {
		var c Clonotype
		if err := rows.Scan(&c.CDR3AA, &c.Count); err != nil {
			return nil, fmt.Errorf("scan clonotype: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clonotypes: %w", err)
	}
	return out, nil
}

// DeleteRun removes a run and its classifications.
func (s *Store) DeleteRun(runID string) error {
	if _, err := s.db.Exec("DELETE FROM read_classifications WHERE run_id=?", runID); err != nil {
		return fmt.Errorf("delete classifications: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE run_id=?", runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
