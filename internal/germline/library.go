// Package germline loads reference V and J gene libraries.
package germline

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-cdr3/internal/fasta"
)

// Gene is one reference gene segment.
type Gene struct {
	ID       string
	Sequence string
}

// Len returns the length of the reference sequence.
func (g *Gene) Len() int {
	return len(g.Sequence)
}

// Library is an immutable set of reference genes keyed by id.
type Library struct {
	path  string
	genes map[string]*Gene
}

// NewLibrary builds a library from genes already in memory.
func NewLibrary(genes ...*Gene) *Library {
	l := &Library{genes: make(map[string]*Gene, len(genes))}
	for _, g := range genes {
		l.genes[g.ID] = &Gene{ID: g.ID, Sequence: strings.ToUpper(g.Sequence)}
	}
	return l
}

// LoadLibrary reads a FASTA library. Gene ids are the first token of each
// header; sequences are upper-cased.
func LoadLibrary(path string) (*Library, error) {
	r, err := fasta.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	l := &Library{path: path, genes: make(map[string]*Gene)}
	for {
		rec, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("load library %s: %w", path, err)
		}
		if rec == nil {
			break
		}
		if rec.Seq == "" {
			continue
		}
		l.genes[rec.ID] = &Gene{ID: rec.ID, Sequence: strings.ToUpper(rec.Seq)}
	}
	if len(l.genes) == 0 {
		return nil, fmt.Errorf("library %s contains no sequences", path)
	}
	return l, nil
}

// Get returns the gene with the given id.
func (l *Library) Get(id string) (*Gene, bool) {
	g, ok := l.genes[id]
	return g, ok
}

// Len returns the number of genes in the library.
func (l *Library) Len() int {
	return len(l.genes)
}

// Path returns the file the library was loaded from, if any.
func (l *Library) Path() string {
	return l.path
}
