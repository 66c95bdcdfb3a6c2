package classify

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-cdr3/internal/blast"
	"github.com/inodb/vibe-cdr3/internal/cdr3"
	"github.com/inodb/vibe-cdr3/internal/germline"
)

// Gene call placeholders.
const (
	NotApplicable = "NA"
	NotFound      = "not_found"
)

// Hits are the reconciled segment hits for one read. A nil hit means the
// segment was not found. D and C are only meaningful when their search ran.
type Hits struct {
	V, J, D, C                *blast.Hit
	VOthers, JOthers, DOthers []string
	DSearched, CSearched      bool
}

// FrameChecks are the three independent in-frame tests. Any one of them
// marks the read as an in-del.
type FrameChecks struct {
	JunctionLength bool // junction length is not a multiple of 3
	FrameMismatch  bool // V and J predict different junction frames
	GapParity      bool // V or J alignment has a net frameshift in-del
}

// Any reports whether any check failed.
func (f FrameChecks) Any() bool {
	return f.JunctionLength || f.FrameMismatch || f.GapParity
}

// Classification is the terminal record for one read.
type Classification struct {
	ReadID string
	Status Status

	// Seq is the oriented nucleotide record: the V(D)J span, or the read
	// from the V start on for noJ reads.
	Seq string
	// AA is Seq translated in the V gene's reading frame.
	AA string

	Junction    cdr3.Boundary
	JunctionSeq string // empty unless the boundary is valid
	JunctionAA  string

	Frame FrameChecks
	InDel bool
	Stop  bool

	VGenes   string
	DGenes   string
	JGenes   string
	Constant string

	// VDivergence is 100 minus the V percent identity.
	VDivergence float64
}

// CDR3NucLen is the CDR3 length excluding the bounding Cys and Trp/Phe codons.
func (c *Classification) CDR3NucLen() int {
	return len(c.JunctionSeq) - 6
}

// CDR3AALen is the CDR3 amino acid length excluding the bounding residues.
func (c *Classification) CDR3AALen() int {
	return len(c.JunctionSeq)/3 - 2
}

// Classifier turns one read and its hits into a Classification.
type Classifier struct {
	libs    *germline.Libraries
	locator *cdr3.Locator
	logger  *zap.Logger
}

// NewClassifier creates a classifier over the run's germline libraries.
func NewClassifier(libs *germline.Libraries, locator *cdr3.Locator) *Classifier {
	return &Classifier{
		libs:    libs,
		locator: locator,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (c *Classifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Classify runs the decision chain for one read: noV, noJ, then junction
// location, stop codon and frame checks. An error is returned only when a
// hit names a gene missing from the libraries.
func (c *Classifier) Classify(readID, seq string, h Hits) (*Classification, error) {
	cl := &Classification{
		ReadID:   readID,
		DGenes:   NotApplicable,
		JGenes:   NotApplicable,
		Constant: NotApplicable,
	}

	if h.V == nil {
		cl.Status = NoV
		cl.VGenes = NotApplicable
		return cl, nil
	}

	cl.VGenes = joinGenes(h.V, h.VOthers)
	cl.VDivergence = 100 - h.V.Identity
	cl.DGenes = dCall(h)
	cl.Constant = constantCall(h)

	read := Orient(seq, h.V)

	if h.J == nil {
		cl.Status = NoJ
		cl.Seq = read.Seq()
		cl.AA = TranslateSequence(cl.Seq)
		return cl, nil
	}
	cl.JGenes = joinGenes(h.J, h.JOthers)

	vGene, ok := c.libs.V.Get(h.V.SubjectID)
	if !ok {
		return nil, fmt.Errorf("read %s: V gene %q not in library", readID, h.V.SubjectID)
	}
	jGene, ok := c.libs.J.Get(h.J.SubjectID)
	if !ok {
		return nil, fmt.Errorf("read %s: J gene %q not in library", readID, h.J.SubjectID)
	}

	// query span, not alignment length, so gaps are accounted for
	vLen := h.V.QueryLen()
	vdjLen := vLen + h.J.QueryEnd
	cl.Seq = read.Prefix(vdjLen)

	cl.Junction = c.locator.Locate(cdr3.Input{
		VID:           h.V.SubjectID,
		VRef:          vGene.Sequence,
		VLen:          vLen,
		VSubjectMin:   h.V.SubjectMin(),
		VSubjectMax:   h.V.SubjectMax(),
		JRef:          jGene.Sequence,
		JSubjectStart: h.J.SubjectMin(),
		JQueryStart:   h.J.QueryStart,
		JGaps:         h.J.Gaps,
		Read:          cl.Seq,
	})
	junctionOK := cl.Junction.Valid(vdjLen) && cl.Junction.End <= len(cl.Seq)
	if junctionOK {
		cl.JunctionSeq = cl.Seq[cl.Junction.Start:cl.Junction.End]
		cl.JunctionAA = TranslateSequence(cl.JunctionSeq)
	}

	// Pad the 5' end so translation starts on a codon of the germline V.
	vFrame := h.V.SubjectMin() % 3
	inFrame := strings.Repeat("N", mod3(vFrame-1)) + cl.Seq
	cl.AA = TranslateSequence(inFrame)
	cl.Stop = strings.IndexByte(cl.AA, '*') >= 0

	cl.Frame = FrameChecks{
		JunctionLength: junctionOK && cl.Junction.Len()%3 != 0,
		FrameMismatch:  frameMismatch(vFrame, vLen, h.J, jGene),
		GapParity:      gapFrameshift(h.V) || gapFrameshift(h.J),
	}
	cl.InDel = cl.Frame.Any()

	switch {
	case !junctionOK:
		cl.Status = NoCDR3
	case cl.InDel:
		cl.Status = InDel
	case cl.Stop:
		cl.Status = Stop
	default:
		cl.Status = Good
	}

	c.logger.Debug("classified read",
		zap.String("read", readID),
		zap.Stringer("status", cl.Status),
		zap.Int("cdr3_start", cl.Junction.Start),
		zap.Int("cdr3_end", cl.Junction.End))

	return cl, nil
}

// frameMismatch compares the junction frame implied by the V alignment with
// the one implied by where the J alignment sits on its germline. J genes
// start in different frames, so the J side is computed from the gene end.
// Disagreement is treated as a sequencing in-del, which holds for cDNA.
func frameMismatch(vFrame, vLen int, j *blast.Hit, jGene *germline.Gene) bool {
	jFrame := 3 - mod3(jGene.Len()-j.SubjectMin()-1)
	shift := mod3(vLen + j.QueryStart - 1)
	return (vFrame+shift)%3 != jFrame%3
}

// gapFrameshift reports whether the subject and query spans of an alignment
// differ by a non-multiple of three.
func gapFrameshift(h *blast.Hit) bool {
	subjectSpan := h.SubjectMax() - h.SubjectMin()
	querySpan := h.QueryEnd - h.QueryStart
	return (subjectSpan-querySpan)%3 != 0
}

func joinGenes(best *blast.Hit, others []string) string {
	return strings.Join(append([]string{best.SubjectID}, others...), ",")
}

func dCall(h Hits) string {
	switch {
	case !h.DSearched:
		return NotApplicable
	case h.D == nil:
		return NotFound
	default:
		return joinGenes(h.D, h.DOthers)
	}
}

func constantCall(h Hits) string {
	if h.CSearched {
		if h.C == nil {
			return NotFound
		}
		return h.C.SubjectID
	}
	return InferLightChain(h.V.SubjectID)
}

// InferLightChain guesses the light chain isotype from a V gene name when
// no constant region search was run. Returns NotApplicable when the name
// carries no hint.
func InferLightChain(vID string) string {
	id := strings.ToUpper(vID)
	switch {
	case strings.Contains(id, "LV") || strings.Contains(id, "LAMBDA"):
		return "lambda"
	case strings.Contains(id, "KV") || strings.Contains(id, "KAPPA"):
		return "kappa"
	default:
		return NotApplicable
	}
}
