package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Segment names used in top-hit and gene frequency table names.
const (
	SegmentJ = "j"
	SegmentC = "c"
	SegmentD = "d"
)

// Layout locates the inputs and outputs of a project directory.
//
//	work/vgene/<name>_NNN.fasta       read batches
//	work/vgene/<name>_NNN.txt         V alignments
//	work/vgene/<name>_temp_lookup.txt raw read statistics
//	work/jgene/<name>_NNN.txt         J alignments
//	work/jgene/<name>_C_NNN.txt       constant region alignments
//	work/jgene/<name>_D_NNN.txt       D alignments
//	output/sequences/nucleotide       nucleotide channels
//	output/sequences/amino_acid       amino acid channels
//	output/tables                     statistics tables
//	output/logs                       run summary
type Layout struct {
	Root string
	Name string
}

// NewLayout creates a layout. An empty name defaults to the base name of the
// project root.
func NewLayout(root, name string) Layout {
	if name == "" {
		name = filepath.Base(filepath.Clean(root))
	}
	return Layout{Root: root, Name: name}
}

func (l Layout) VGeneDir() string { return filepath.Join(l.Root, "work", "vgene") }
func (l Layout) JGeneDir() string { return filepath.Join(l.Root, "work", "jgene") }
func (l Layout) NucleotideDir() string { return filepath.Join(l.Root, "output", "sequences", "nucleotide") }
func (l Layout) AminoAcidDir() string { return filepath.Join(l.Root, "output", "sequences", "amino_acid") }
func (l Layout) TablesDir() string { return filepath.Join(l.Root, "output", "tables") }
func (l Layout) LogsDir() string { return filepath.Join(l.Root, "output", "logs") }

// ReadsPath is the FASTA file of read batch n (1-based).
func (l Layout) ReadsPath(n int) string {
	return filepath.Join(l.VGeneDir(), fmt.Sprintf("%s_%03d.fasta", l.Name, n))
}

// VTablePath is the V alignment table of batch n.
func (l Layout) VTablePath(n int) string {
	return filepath.Join(l.VGeneDir(), fmt.Sprintf("%s_%03d.txt", l.Name, n))
}

// JTablePath is the J alignment table of batch n.
func (l Layout) JTablePath(n int) string {
	return filepath.Join(l.JGeneDir(), fmt.Sprintf("%s_%03d.txt", l.Name, n))
}

// CTablePath is the constant region alignment table of batch n.
func (l Layout) CTablePath(n int) string {
	return filepath.Join(l.JGeneDir(), fmt.Sprintf("%s_C_%03d.txt", l.Name, n))
}

// DTablePath is the D alignment table of batch n.
func (l Layout) DTablePath(n int) string {
	return filepath.Join(l.JGeneDir(), fmt.Sprintf("%s_D_%03d.txt", l.Name, n))
}

// RawStatsPath is the raw read statistics table.
func (l Layout) RawStatsPath() string {
	return filepath.Join(l.VGeneDir(), l.Name+"_temp_lookup.txt")
}

// StatsPath is the master per-read statistics table.
func (l Layout) StatsPath() string {
	return filepath.Join(l.TablesDir(), l.Name+"_all_seq_stats.txt")
}

// TopHitPath is the top-hit table of a segment.
func (l Layout) TopHitPath(segment string) string {
	return filepath.Join(l.TablesDir(), fmt.Sprintf("%s_%sgerm_tophit.txt", l.Name, segment))
}

// GeneStatPath is the gene frequency table of a segment.
func (l Layout) GeneStatPath(segment string) string {
	return filepath.Join(l.TablesDir(), fmt.Sprintf("%s_%sgerm_stat.txt", l.Name, segment))
}

// SummaryPath is the run summary log.
func (l Layout) SummaryPath() string {
	return filepath.Join(l.LogsDir(), "finalize_blast.log")
}

// EnsureOutputDirs creates the output directories.
func (l Layout) EnsureOutputDirs() error {
	for _, dir := range []string{l.NucleotideDir(), l.AminoAcidDir(), l.TablesDir(), l.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
