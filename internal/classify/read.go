package classify

import (
	"strings"

	"github.com/inodb/vibe-cdr3/internal/blast"
)

// OrientedRead is a read turned to the V gene's strand and cut to start at
// the first base of the V match. It is built once per read so nothing
// downstream branches on strand.
type OrientedRead struct {
	seq string
}

// Orient builds the oriented read for a V hit. Plus strand reads keep
// everything from the V query start; minus strand reads keep everything up
// to the V query end, reverse complemented.
func Orient(seq string, v *blast.Hit) OrientedRead {
	seq = strings.ToUpper(seq)
	if v.IsMinus() {
		end := min(v.QueryEnd, len(seq))
		return OrientedRead{seq: ReverseComplement(seq[:end])}
	}
	start := min(max(v.QueryStart-1, 0), len(seq))
	return OrientedRead{seq: seq[start:]}
}

// Seq returns the whole oriented read.
func (o OrientedRead) Seq() string {
	return o.seq
}

// Prefix returns the first n bases, or the whole read if it is shorter.
func (o OrientedRead) Prefix(n int) string {
	if n > len(o.seq) {
		return o.seq
	}
	if n < 0 {
		return ""
	}
	return o.seq[:n]
}

// Len returns the oriented read length.
func (o OrientedRead) Len() int {
	return len(o.seq)
}
