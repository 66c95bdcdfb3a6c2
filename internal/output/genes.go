package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/inodb/vibe-cdr3/internal/blast"
)

// WriteGeneStats writes a gene frequency table: each gene with its best-hit
// count and its percentage of total. Genes are written in name order.
func WriteGeneStats(w io.Writer, counts blast.GeneCounts, total int) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("gene\tcount\tpercent\n"); err != nil {
		return err
	}
	for _, gene := range counts.Genes() {
		n := counts[gene]
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(n) / float64(total)
		}
		if _, err := fmt.Fprintf(bw, "%s\t%d\t%4.2f\n", gene, n, pct); err != nil {
			return err
		}
	}
	return bw.Flush()
}
