package blast

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reader reads hits from a tabular BLAST result file (-outfmt 6 or 7).
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	format     Format
	lineNumber int
}

// NewReader opens a BLAST table. Gzipped tables are detected by their
// magic bytes.
func NewReader(path string, format Format) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blast table: %w", err)
	}

	r := &Reader{file: file, format: format}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.reader = bufio.NewReader(r.gzipReader)
	} else {
		r.reader = br
	}

	return r, nil
}

// NewReaderFromReader creates a reader over an already-open stream.
func NewReaderFromReader(rd io.Reader, format Format) *Reader {
	return &Reader{
		reader: bufio.NewReader(rd),
		format: format,
	}
}

// Next reads the next hit.
// Returns nil, nil when there are no more hits.
func (r *Reader) Next() (*Hit, error) {
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read blast line: %w", err)
		}
		if err == io.EOF && line == "" {
			return nil, nil
		}
		r.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		// outfmt 7 interleaves comment lines with the hits
		if line == "" || strings.HasPrefix(line, "#") {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}

		return r.parseLine(line)
	}
}

// ReadAll reads every remaining hit in file order.
func (r *Reader) ReadAll() ([]*Hit, error) {
	var hits []*Hit
	for {
		h, err := r.Next()
		if err != nil {
			return nil, err
		}
		if h == nil {
			return hits, nil
		}
		hits = append(hits, h)
	}
}

func (r *Reader) parseLine(line string) (*Hit, error) {
	var cols []string
	if strings.Contains(line, "\t") {
		cols = strings.Split(line, "\t")
	} else {
		cols = strings.Fields(line)
	}
	if len(cols) < r.format.NumFields() {
		return nil, &ParseError{
			Line:    r.lineNumber,
			Message: fmt.Sprintf("expected %d columns, found %d", r.format.NumFields(), len(cols)),
		}
	}

	col := func(field string) string {
		return strings.TrimSpace(cols[r.format.index[field]])
	}

	h := &Hit{
		QueryID:   NormalizeID(col(FieldQueryID)),
		SubjectID: col(FieldSubjectID),
	}

	var err error
	if h.Identity, err = strconv.ParseFloat(col(FieldIdentity), 64); err != nil {
		return nil, r.fieldError(FieldIdentity, col(FieldIdentity))
	}

	ints := []intField{
		{FieldLength, &h.Length},
		{FieldQueryStart, &h.QueryStart},
		{FieldQueryEnd, &h.QueryEnd},
		{FieldSubjectStart, &h.SubjectStart},
		{FieldSubjectEnd, &h.SubjectEnd},
	}
	switch {
	case r.format.Has(FieldGaps):
		ints = append(ints, intField{FieldGaps, &h.Gaps})
	case r.format.Has(FieldGapOpen):
		ints = append(ints, intField{FieldGapOpen, &h.Gaps})
	}
	for _, f := range ints {
		v, err := strconv.Atoi(col(f.field))
		if err != nil {
			return nil, r.fieldError(f.field, col(f.field))
		}
		*f.dst = v
	}

	if h.QueryEnd < h.QueryStart {
		return nil, &ParseError{
			Line:    r.lineNumber,
			Message: fmt.Sprintf("query end %d before query start %d", h.QueryEnd, h.QueryStart),
		}
	}

	if r.format.Has(FieldEValue) {
		h.EValue, _ = strconv.ParseFloat(col(FieldEValue), 64)
	}
	if r.format.Has(FieldBitScore) {
		h.BitScore, _ = strconv.ParseFloat(col(FieldBitScore), 64)
	}

	h.Strand = StrandPlus
	if r.format.Has(FieldStrand) && col(FieldStrand) != "N/A" {
		if s := col(FieldStrand); s == "minus" || s == "-" {
			h.Strand = StrandMinus
		}
	} else if h.SubjectStart > h.SubjectEnd {
		h.Strand = StrandMinus
	}

	return h, nil
}

type intField struct {
	field string
	dst   *int
}

func (r *Reader) fieldError(field, value string) error {
	return &ParseError{
		Line:    r.lineNumber,
		Message: fmt.Sprintf("invalid %s: %q", field, value),
	}
}

// LineNumber returns the current line number being processed.
func (r *Reader) LineNumber() int {
	return r.lineNumber
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

// ParseError represents an error during BLAST table parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("blast parse error at line %d: %s", e.Line, e.Message)
}
