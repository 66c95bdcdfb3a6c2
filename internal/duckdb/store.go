// Package duckdb stores per-read classifications and run summaries in DuckDB
// so repertoires can be queried after a run.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		project VARCHAR,
		locus VARCHAR,
		started TIMESTAMP,
		source_path VARCHAR,
		source_size BIGINT,
		source_mtime TIMESTAMP,
		raw_reads BIGINT,
		total BIGINT,
		v_assigned BIGINT,
		j_assigned BIGINT,
		cdr3_assigned BIGINT,
		in_frame BIGINT,
		good BIGINT
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS read_classifications (
		run_id VARCHAR,
		read_id VARCHAR,
		status VARCHAR,
		trim_len BIGINT,
		v_genes VARCHAR,
		d_genes VARCHAR,
		j_genes VARCHAR,
		constant VARCHAR,
		indel BOOLEAN,
		stop BOOLEAN,
		v_div DOUBLE,
		cdr3_nt VARCHAR,
		cdr3_aa VARCHAR
	)`)
	return err
}
