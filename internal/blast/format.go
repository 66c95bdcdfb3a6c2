package blast

import (
	"fmt"
	"strings"
)

// BLAST output format specifiers understood by the reader.
const (
	FieldQueryID      = "qseqid"
	FieldSubjectID    = "sseqid"
	FieldIdentity     = "pident"
	FieldLength       = "length"
	FieldQueryStart   = "qstart"
	FieldQueryEnd     = "qend"
	FieldSubjectStart = "sstart"
	FieldSubjectEnd   = "send"
	FieldGaps         = "gaps"
	FieldGapOpen      = "gapopen"
	FieldStrand       = "sstrand"
	FieldEValue       = "evalue"
	FieldBitScore     = "bitscore"
)

// DefaultFormat is the column layout written by the V/J/D/C search steps.
const DefaultFormat = "qseqid sseqid pident length mismatch gaps qstart qend sstart send evalue bitscore sstrand"

var requiredFields = []string{
	FieldQueryID, FieldSubjectID, FieldIdentity, FieldLength,
	FieldQueryStart, FieldQueryEnd, FieldSubjectStart, FieldSubjectEnd,
}

// Format maps BLAST field specifiers to column indices.
type Format struct {
	fields []string
	index  map[string]int
}

// ParseFormat parses a BLAST -outfmt specifier list such as
// "6 qseqid sseqid pident ...". A leading format number is ignored.
// Unknown specifiers are kept as placeholders so later columns line up.
func ParseFormat(spec string) (Format, error) {
	tokens := strings.Fields(spec)
	if len(tokens) > 0 && (tokens[0] == "6" || tokens[0] == "7" || tokens[0] == "10") {
		tokens = tokens[1:]
	}

	f := Format{index: make(map[string]int, len(tokens))}
	for i, tok := range tokens {
		if _, dup := f.index[tok]; dup {
			return Format{}, fmt.Errorf("duplicate output field %q", tok)
		}
		f.fields = append(f.fields, tok)
		f.index[tok] = i
	}

	for _, req := range requiredFields {
		if _, ok := f.index[req]; !ok {
			return Format{}, fmt.Errorf("output format is missing required field %q", req)
		}
	}
	return f, nil
}

// MustParseFormat is like ParseFormat but panics on error.
func MustParseFormat(spec string) Format {
	f, err := ParseFormat(spec)
	if err != nil {
		panic(err)
	}
	return f
}

// Has reports whether the format includes the given field.
func (f Format) Has(field string) bool {
	_, ok := f.index[field]
	return ok
}

// NumFields returns the number of columns in the format.
func (f Format) NumFields() int {
	return len(f.fields)
}

// String returns the specifier list.
func (f Format) String() string {
	return strings.Join(f.fields, " ")
}
