package cdr3

import "regexp"

// NotFound marks a junction boundary that could not be located.
const NotFound = -1

// Input is the evidence for one read. Coordinates from BLAST are 1-based.
type Input struct {
	VID           string
	VRef          string // germline V sequence
	VLen          int    // read bases covered by the V alignment
	VSubjectMin   int    // V alignment start on the germline
	VSubjectMax   int    // V alignment end on the germline
	JRef          string // germline J sequence
	JSubjectStart int
	JQueryStart   int // J alignment start on the read after the V match
	JGaps         int
	Read          string // V(D)J-trimmed read
}

// Boundary is the junction span on the trimmed read, 0-based and half-open.
type Boundary struct {
	Start int
	End   int
	// GapCorrected is set when the end was re-anchored on a J motif found
	// in the read.
	GapCorrected bool
}

// Valid reports whether the boundary lies inside a read of length n.
func (b Boundary) Valid(n int) bool {
	return b.Start >= 0 && b.End > b.Start && b.End <= n
}

// Len returns the junction length in nucleotides.
func (b Boundary) Len() int {
	return b.End - b.Start
}

// Locator finds junction boundaries.
type Locator struct {
	rules  []CysteineRule
	jMotif *regexp.Regexp
}

// NewLocator creates a locator using the default cysteine rules and the
// given J motif.
func NewLocator(jMotif *regexp.Regexp) *Locator {
	return &Locator{rules: DefaultCysteineRules, jMotif: jMotif}
}

// SetCysteineRules replaces the cysteine override rules.
func (l *Locator) SetCysteineRules(rules []CysteineRule) {
	l.rules = rules
}

// Locate computes the junction start and end. The result is not clamped;
// callers check it with Boundary.Valid.
func (l *Locator) Locate(in Input) Boundary {
	start := l.start(in)
	end, corrected := l.end(in, start)
	return Boundary{Start: start, End: end, GapCorrected: corrected}
}

func (l *Locator) start(in Input) int {
	pat := CysteinePattern(l.rules, in.VID)
	matches := pat.FindAllStringIndex(in.VRef, -1)

	// the last in-frame match is the conserved cysteine
	start := NotFound
	for i := len(matches) - 1; i >= 0; i-- {
		if matches[i][0]%3 == 0 {
			start = in.VLen - (in.VSubjectMax - matches[i][0])
			break
		}
	}

	// The alignment ended before the cysteine, which usually means a large
	// in-del. Fall back to CxR/K past the V match or give up.
	if start > in.VLen {
		if in.VLen <= len(in.Read) {
			if loc := cxrkRe.FindStringIndex(in.Read[in.VLen:]); loc != nil {
				return in.VLen + loc[0]
			}
		}
		return NotFound
	}
	return start
}

func (l *Locator) end(in Input, start int) (int, bool) {
	loc := l.jMotif.FindStringIndex(in.JRef)
	if loc == nil {
		return NotFound, false
	}
	end := in.VLen + in.JQueryStart + (loc[0] - in.JSubjectStart) + 3

	if in.JGaps == 0 {
		return end, false
	}

	// Re-anchor on the last motif in the read, but only within one codon:
	// CDR3 itself can contain look-alike motifs.
	from := max(start, 0)
	if from > len(in.Read) {
		return end, false
	}
	hits := l.jMotif.FindAllStringIndex(in.Read[from:], -1)
	if len(hits) == 0 {
		return end, false
	}
	last := from + hits[len(hits)-1][0] + 3
	if abs(last-end) <= 3 && last != end {
		return last, true
	}
	return end, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
