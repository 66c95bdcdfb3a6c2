package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// RawReader reads the tab-delimited raw read statistics table. Rows are
// written by the upstream filtering step in read order, one per raw read,
// with the read id in the first column and no header.
type RawReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewRawReader opens a raw statistics table.
func NewRawReader(path string) (*RawReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw statistics: %w", err)
	}
	r := NewRawReaderFromReader(f)
	r.closer = f
	return r, nil
}

// NewRawReaderFromReader creates a raw statistics reader from an io.Reader.
func NewRawReaderFromReader(rd io.Reader) *RawReader {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &RawReader{scanner: scanner}
}

// Next returns the next row, or nil at end of file.
func (r *RawReader) Next() ([]string, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" {
			continue
		}
		return strings.Split(line, "\t"), nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read raw statistics line %d: %w", r.line, err)
	}
	return nil, nil
}

// Close closes the underlying file, if any.
func (r *RawReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
