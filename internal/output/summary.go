package output

import (
	"fmt"
	"io"

	"github.com/inodb/vibe-cdr3/internal/classify"
)

// Summary holds the run-level read counts.
type Summary struct {
	// RawReads counts rows of the raw statistics table.
	RawReads int
	// Counts holds the number of reads per status.
	Counts map[classify.Status]int
}

// NewSummary creates an empty summary.
func NewSummary() *Summary {
	return &Summary{Counts: make(map[classify.Status]int)}
}

// Add counts one classified read.
func (s *Summary) Add(st classify.Status) {
	s.Counts[st]++
}

// Total is the number of reads that passed upstream length filtering.
func (s *Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// VAssigned is the number of reads with a V hit.
func (s *Summary) VAssigned() int {
	return s.Total() - s.Counts[classify.NoV]
}

// Found is the number of reads with both V and J hits.
func (s *Summary) Found() int {
	return s.VAssigned() - s.Counts[classify.NoJ]
}

// CDR3Assigned is the number of found reads with a located junction.
func (s *Summary) CDR3Assigned() int {
	return s.Found() - s.Counts[classify.NoCDR3]
}

// InFrame is the number of reads with a junction and no in-del.
func (s *Summary) InFrame() int {
	return s.CDR3Assigned() - s.Counts[classify.InDel]
}

// Good is the number of reads with an open reading frame.
func (s *Summary) Good() int {
	return s.Counts[classify.Good]
}

// Write writes the human-readable summary.
func (s *Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "\nTotal raw reads: %d\nCorrect Length: %d\nV assigned: %d\nJ assigned: %d\n"+
		"CDR3 assigned: %d\nIn-frame junction/no indels: %d\nContinuous ORF with no stop codons: %d\n\n",
		s.RawReads, s.Total(), s.VAssigned(), s.Found(), s.CDR3Assigned(), s.InFrame(), s.Good())
	return err
}
