package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-cdr3/internal/classify"
)

// RawColumns are the columns of the raw read statistics table produced by
// the upstream filtering step.
var RawColumns = []string{"id", "source_file", "source_id", "raw_len"}

// StatsColumns are appended to the raw columns in the master table.
var StatsColumns = []string{
	"trim_len",
	"V_genes",
	"D_genes",
	"J_genes",
	"Ig_class",
	"indels",
	"stop_codons",
	"V_div",
	"cdr3_nt_len",
	"cdr3_aa_len",
	"cdr3_aa_seq",
}

// StatsWriter writes the master per-read statistics table: one row per raw
// read, the raw columns followed by StatsColumns.
type StatsWriter struct {
	w      *bufio.Writer
	header []string
}

// NewStatsWriter creates a stats writer. rawHeader is the header of the raw
// table; RawColumns is used when it is empty.
func NewStatsWriter(w io.Writer, rawHeader []string) *StatsWriter {
	if len(rawHeader) == 0 {
		rawHeader = RawColumns
	}
	return &StatsWriter{
		w:      bufio.NewWriter(w),
		header: append(append([]string{}, rawHeader...), StatsColumns...),
	}
}

// WriteHeader writes the header line.
func (sw *StatsWriter) WriteHeader() error {
	return sw.writeRow(sw.header)
}

// WriteNA writes a raw row with every stats column set to NA.
func (sw *StatsWriter) WriteNA(raw []string) error {
	row := append(append([]string{}, raw...), naColumns(len(StatsColumns))...)
	return sw.writeRow(row)
}

// Write writes a raw row extended with the statistics of cl.
func (sw *StatsWriter) Write(raw []string, cl *classify.Classification) error {
	row := append(append([]string{}, raw...), StatsRow(cl)...)
	return sw.writeRow(row)
}

// Flush flushes any buffered data to the underlying writer.
func (sw *StatsWriter) Flush() error {
	return sw.w.Flush()
}

func (sw *StatsWriter) writeRow(values []string) error {
	_, err := sw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// StatsRow returns the StatsColumns values for one classification.
func StatsRow(cl *classify.Classification) []string {
	if cl.Status == classify.NoV {
		return naColumns(len(StatsColumns))
	}

	trimLen := len(cl.Seq)
	if cl.Status == classify.NoJ {
		// noJ reads are reported at their codon-trimmed length
		trimLen -= trimLen % 3
	}
	row := []string{
		strconv.Itoa(trimLen),
		cl.VGenes,
		cl.DGenes,
		cl.JGenes,
		cl.Constant,
	}
	if cl.Status == classify.NoJ {
		return append(row, naColumns(len(StatsColumns)-len(row))...)
	}

	row = append(row,
		yesNo(cl.InDel),
		yesNo(cl.Stop),
		fmt.Sprintf("%3.1f%%", cl.VDivergence),
	)
	switch {
	case cl.Status == classify.Good:
		return append(row,
			strconv.Itoa(cl.CDR3NucLen()),
			strconv.Itoa(cl.CDR3AALen()),
			cl.JunctionAA)
	case cl.Status.HasJunction():
		return append(row, strconv.Itoa(cl.CDR3NucLen()), classify.NotApplicable, classify.NotApplicable)
	default:
		return append(row, naColumns(3)...)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func naColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = classify.NotApplicable
	}
	return cols
}
