// Package cdr3 locates the CDR3 junction on a V(D)J-trimmed read.
package cdr3

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/inodb/vibe-cdr3/internal/germline"
)

// Nucleotide motifs bounding the junction.
const (
	// DefaultCysteine matches the conserved cysteine codons. N covers a few
	// short V genes such as IGHV4-31.
	DefaultCysteine = "TG[TCN]"

	// CXRK is Cys-X-Arg/Lys, used to recover the junction start when the V
	// alignment stops short of the cysteine.
	CXRK = "TG[TC]...(?:CG.|AG[AG]|AA[AG])"

	// HeavyJMotif is Trp-Gly (TGG GGN).
	HeavyJMotif = "TGGGG"
	// LightJMotif is Phe-Gly (TTY GGN).
	LightJMotif = "TT[CT]GG"
)

// CysteineRule overrides the cysteine pattern for V genes whose id starts
// with one of Prefixes.
type CysteineRule struct {
	Name     string
	Prefixes []string
	Pattern  *regexp.Regexp
}

// Matches reports whether the rule applies to a V gene id.
func (r CysteineRule) Matches(vID string) bool {
	for _, p := range r.Prefixes {
		if strings.HasPrefix(vID, p) {
			return true
		}
	}
	return false
}

// DefaultCysteineRules are evaluated in order before the default pattern.
var DefaultCysteineRules = []CysteineRule{
	{
		Name:     "IGLV2-11/23 double cysteine",
		Prefixes: []string{"IGLV2-11", "IGLV2-23"},
		Pattern:  regexp.MustCompile("TGCTGC"),
	},
	{
		Name:     "IGHV1-C",
		Prefixes: []string{"IGHV1-C"},
		Pattern:  regexp.MustCompile("TATGC"),
	},
}

var (
	defaultCysteineRe = regexp.MustCompile(DefaultCysteine)
	cxrkRe            = regexp.MustCompile(CXRK)
)

// CysteinePattern returns the pattern used for a V gene: the first matching
// rule, else DefaultCysteine.
func CysteinePattern(rules []CysteineRule, vID string) *regexp.Regexp {
	for _, r := range rules {
		if r.Matches(vID) {
			return r.Pattern
		}
	}
	return defaultCysteineRe
}

// JMotif returns the J-side motif for a locus. An override, when set,
// replaces the locus default and matches case-insensitively; custom libraries
// otherwise use the heavy chain motif.
func JMotif(locus germline.Locus, override string) (*regexp.Regexp, error) {
	pat := HeavyJMotif
	if locus.IsLight() {
		pat = LightJMotif
	}
	if override != "" {
		pat = "(?i)" + override
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, fmt.Errorf("compile J motif %q: %w", pat, err)
	}
	return re, nil
}
