// Package fasta reads and writes FASTA records.
package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is a single FASTA entry.
type Record struct {
	ID          string // first whitespace-delimited token of the header
	Description string // rest of the header line
	Seq         string
}

// Reader reads FASTA records one at a time.
type Reader struct {
	scanner    *bufio.Scanner
	file       *os.File
	gzipReader *gzip.Reader
	pending    string // header seen while reading the previous record
	done       bool
}

// NewReader opens a FASTA file. Files ending in .gz are decompressed.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}

	r := &Reader{file: f}
	var reader io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		r.gzipReader = gz
		reader = gz
	}

	r.scanner = newScanner(reader)
	return r, nil
}

// NewReaderFromReader creates a reader over an already-open stream.
func NewReaderFromReader(rd io.Reader) *Reader {
	return &Reader{scanner: newScanner(rd)}
}

func newScanner(rd io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(rd)
	// Increase buffer size for long sequences
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	return scanner
}

// Next returns the next record, or nil, nil at end of input.
func (r *Reader) Next() (*Record, error) {
	if r.done {
		return nil, nil
	}

	header := r.pending
	r.pending = ""
	var seq strings.Builder

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if strings.HasPrefix(line, ">") {
			if header != "" {
				r.pending = line
				return newRecord(header, seq.String()), nil
			}
			header = line
			continue
		}
		if header == "" {
			// text before the first header
			continue
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}

	r.done = true
	if header == "" {
		return nil, nil
	}
	return newRecord(header, seq.String()), nil
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]*Record, error) {
	var recs []*Record
	for {
		rec, err := r.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return recs, nil
		}
		recs = append(recs, rec)
	}
}

// Close closes the reader and underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func newRecord(header, seq string) *Record {
	header = strings.TrimSpace(strings.TrimPrefix(header, ">"))
	rec := &Record{Seq: seq}
	if idx := strings.IndexAny(header, " \t"); idx != -1 {
		rec.ID = header[:idx]
		rec.Description = strings.TrimSpace(header[idx+1:])
	} else {
		rec.ID = header
	}
	return rec
}
