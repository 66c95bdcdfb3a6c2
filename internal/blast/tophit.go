package blast

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// HitSource yields hits in file order. Next returns nil, nil when done.
type HitSource interface {
	Next() (*Hit, error)
}

// Constraints bound where a segment hit may fall on a read, keyed by read id.
// Reads missing from a map are unconstrained by it.
type Constraints struct {
	// MinQueryStart skips hits starting before the given query position.
	MinQueryStart map[string]int
	// MaxQueryEnd skips hits ending after the given query position.
	MaxQueryEnd map[string]int
}

func (c *Constraints) allows(h *Hit) bool {
	if c == nil {
		return true
	}
	if lo, ok := c.MinQueryStart[h.QueryID]; ok && h.QueryStart < lo {
		return false
	}
	if hi, ok := c.MaxQueryEnd[h.QueryID]; ok && h.QueryEnd > hi {
		return false
	}
	return true
}

// GeneCounts counts best-hit subject ids across all reads of a run.
type GeneCounts map[string]int

// Add records one best hit for gene id.
func (g GeneCounts) Add(id string) {
	g[id]++
}

// Genes returns the counted gene ids in sorted order.
func (g GeneCounts) Genes() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Options configure one reconciliation pass. All fields are optional.
type Options struct {
	Constraints *Constraints
	// Writer receives each read's best hit as it is chosen.
	Writer *TopHitWriter
	// Counts is incremented once per best hit.
	Counts GeneCounts
}

// TopHits holds the reconciled hits for one segment type and one batch.
type TopHits struct {
	// Best maps read id to its best hit.
	Best map[string]*Hit
	// Others maps read id to subject ids tied with the best hit, in file
	// order, excluding the best hit's own subject.
	Others map[string][]string
}

// Get returns the best hit for a read, or nil when the segment was not found.
func (t *TopHits) Get(readID string) *Hit {
	if t == nil {
		return nil
	}
	return t.Best[readID]
}

// Genes returns the best subject id followed by any tied alternates,
// comma-joined. Returns "" when the read has no hit.
func (t *TopHits) Genes(readID string) string {
	best := t.Get(readID)
	if best == nil {
		return ""
	}
	return strings.Join(append([]string{best.SubjectID}, t.Others[readID]...), ",")
}

// Len returns the number of reads with a best hit.
func (t *TopHits) Len() int {
	return len(t.Best)
}

type tieState struct {
	best *Hit
	tied bool
}

// Reconcile picks the best hit and tied alternates for every read in src.
// Rows must already be ranked best-first per read, as BLAST writes them;
// they are never re-sorted. Alternates are the consecutive passing rows that
// tie the best on identity and alignment length.
func Reconcile(src HitSource, opts Options) (*TopHits, error) {
	th := &TopHits{
		Best:   make(map[string]*Hit),
		Others: make(map[string][]string),
	}
	state := make(map[string]*tieState)

	for {
		h, err := src.Next()
		if err != nil {
			return nil, err
		}
		if h == nil {
			break
		}
		if !opts.Constraints.allows(h) {
			continue
		}

		st, seen := state[h.QueryID]
		if !seen {
			state[h.QueryID] = &tieState{best: h, tied: true}
			th.Best[h.QueryID] = h
			if opts.Counts != nil {
				opts.Counts.Add(h.SubjectID)
			}
			if opts.Writer != nil {
				if err := opts.Writer.WriteHit(h); err != nil {
					return nil, fmt.Errorf("write top hit: %w", err)
				}
			}
			continue
		}

		if !st.tied {
			continue
		}
		if !h.tiesWith(st.best) {
			st.tied = false
			continue
		}
		if h.SubjectID == st.best.SubjectID || slices.Contains(th.Others[h.QueryID], h.SubjectID) {
			continue
		}
		th.Others[h.QueryID] = append(th.Others[h.QueryID], h.SubjectID)
	}

	return th, nil
}

// ReconcileFile reads a BLAST table and reconciles it.
func ReconcileFile(path string, format Format, opts Options) (*TopHits, error) {
	r, err := NewReader(path, format)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	th, err := Reconcile(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return th, nil
}

// TopHitColumns is the header of a top-hit table.
var TopHitColumns = []string{
	"query_id",
	"subject_id",
	"identity",
	"length",
	"query_start",
	"query_end",
	"subject_start",
	"subject_end",
	"strand",
	"gaps",
}

// TopHitWriter writes best hits as a tab-delimited table.
type TopHitWriter struct {
	w *bufio.Writer
}

// NewTopHitWriter creates a new top-hit table writer.
func NewTopHitWriter(w io.Writer) *TopHitWriter {
	return &TopHitWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (tw *TopHitWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(TopHitColumns, "\t") + "\n")
	return err
}

// WriteHit writes a single hit.
func (tw *TopHitWriter) WriteHit(h *Hit) error {
	values := []string{
		h.QueryID,
		h.SubjectID,
		strconv.FormatFloat(h.Identity, 'f', -1, 64),
		strconv.Itoa(h.Length),
		strconv.Itoa(h.QueryStart),
		strconv.Itoa(h.QueryEnd),
		strconv.Itoa(h.SubjectStart),
		strconv.Itoa(h.SubjectEnd),
		string(h.Strand),
		strconv.Itoa(h.Gaps),
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TopHitWriter) Flush() error {
	return tw.w.Flush()
}
