// Package blast reads tabular BLAST results and reconciles them into
// per-read top hits for one gene segment.
package blast

import "strings"

// Strand values relative to the read.
const (
	StrandPlus  = '+'
	StrandMinus = '-'
)

// Hit is one alignment of a read against one reference gene segment.
// Coordinates are 1-based and inclusive, as reported by BLAST.
type Hit struct {
	QueryID      string
	SubjectID    string
	Identity     float64 // percent identity
	Length       int     // alignment length
	QueryStart   int
	QueryEnd     int
	SubjectStart int
	SubjectEnd   int
	Gaps         int
	Strand       byte
	EValue       float64
	BitScore     float64
}

// QueryLen returns the number of read bases covered by the alignment.
// This can differ from Length when the alignment contains gaps.
func (h *Hit) QueryLen() int {
	return h.QueryEnd - h.QueryStart + 1
}

// SubjectMin returns the lower of the two subject coordinates.
func (h *Hit) SubjectMin() int {
	return min(h.SubjectStart, h.SubjectEnd)
}

// SubjectMax returns the higher of the two subject coordinates.
func (h *Hit) SubjectMax() int {
	return max(h.SubjectStart, h.SubjectEnd)
}

// IsMinus reports whether the reference matched the minus strand of the read.
func (h *Hit) IsMinus() bool {
	return h.Strand == StrandMinus
}

// tiesWith reports whether two hits score the same: equal identity and
// equal alignment length.
func (h *Hit) tiesWith(o *Hit) bool {
	return h.Identity == o.Identity && h.Length == o.Length
}

// NormalizeID strips leading zeros from an all-digit read id so FASTA ids
// like "000123" match the "123" that BLAST reports. Other ids are returned
// unchanged.
func NormalizeID(id string) string {
	if id == "" {
		return id
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return id
		}
	}
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
