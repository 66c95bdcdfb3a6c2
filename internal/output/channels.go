// Package output writes classified reads to sequence channels and tables.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inodb/vibe-cdr3/internal/classify"
	"github.com/inodb/vibe-cdr3/internal/fasta"
)

// Channel names. Each is written as <name>_<channel>.fa.
const (
	ChannelAllV     = "allV"
	ChannelAllJ     = "allJ"
	ChannelGoodVJ   = "goodVJ"
	ChannelGoodCDR3 = "goodCDR3"
	ChannelAllCDR3  = "allCDR3"
)

// Channels routes each classified read to the FASTA outputs it belongs in.
//
//	allV      every read with a V hit (noJ and above)
//	allJ      every read with V and J hits
//	goodVJ    good reads
//	goodCDR3  junctions of good reads
//	allCDR3   every located junction (nucleotide only)
type Channels struct {
	allVNt, allVAa         *fasta.Writer
	allJNt, allJAa         *fasta.Writer
	goodVJNt, goodVJAa     *fasta.Writer
	goodCDR3Nt, goodCDR3Aa *fasta.Writer
	allCDR3Nt              *fasta.Writer

	files []*os.File
}

// NewChannels creates channels over caller-provided writers. Used in tests
// and when the caller manages files itself.
func NewChannels(w map[string]*fasta.Writer) *Channels {
	return &Channels{
		allVNt: w[ChannelAllV+".nt"], allVAa: w[ChannelAllV+".aa"],
		allJNt: w[ChannelAllJ+".nt"], allJAa: w[ChannelAllJ+".aa"],
		goodVJNt: w[ChannelGoodVJ+".nt"], goodVJAa: w[ChannelGoodVJ+".aa"],
		goodCDR3Nt: w[ChannelGoodCDR3+".nt"], goodCDR3Aa: w[ChannelGoodCDR3+".aa"],
		allCDR3Nt: w[ChannelAllCDR3+".nt"],
	}
}

// CreateChannels creates the channel files under ntDir and aaDir.
func CreateChannels(ntDir, aaDir, name string) (*Channels, error) {
	writers := make(map[string]*fasta.Writer)
	var files []*os.File

	open := func(dir, channel, kind string) error {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.fa", name, channel))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		files = append(files, f)
		writers[channel+"."+kind] = fasta.NewWriter(f)
		return nil
	}

	for _, ch := range []string{ChannelAllV, ChannelAllJ, ChannelGoodVJ, ChannelGoodCDR3, ChannelAllCDR3} {
		if err := open(ntDir, ch, "nt"); err != nil {
			closeAll(files)
			return nil, err
		}
		if ch == ChannelAllCDR3 {
			continue
		}
		if err := open(aaDir, ch, "aa"); err != nil {
			closeAll(files)
			return nil, err
		}
	}

	c := NewChannels(writers)
	c.files = files
	return c, nil
}

// Write routes one classification. noV reads are not written anywhere.
func (c *Channels) Write(id string, cl *classify.Classification) error {
	if cl.Status == classify.NoV {
		return nil
	}

	desc := Description(cl)
	if err := write(c.allVNt, id, desc, cl.Seq); err != nil {
		return err
	}
	if err := write(c.allVAa, id, desc, cl.AA); err != nil {
		return err
	}
	if !cl.Status.Found() {
		return nil
	}

	if err := write(c.allJNt, id, desc, cl.Seq); err != nil {
		return err
	}
	if err := write(c.allJAa, id, desc, cl.AA); err != nil {
		return err
	}

	if cl.Status == classify.Good {
		desc = GoodDescription(cl)
		if err := write(c.goodVJNt, id, desc, cl.Seq); err != nil {
			return err
		}
		if err := write(c.goodVJAa, id, desc, cl.AA); err != nil {
			return err
		}
		if err := write(c.goodCDR3Nt, id, desc, cl.JunctionSeq); err != nil {
			return err
		}
		if err := write(c.goodCDR3Aa, id, desc, cl.JunctionAA); err != nil {
			return err
		}
	}

	if cl.Status.HasJunction() {
		return write(c.allCDR3Nt, id, desc, cl.JunctionSeq)
	}
	return nil
}

// Flush flushes every channel.
func (c *Channels) Flush() error {
	var errs []error
	for _, w := range c.writers() {
		if w != nil {
			errs = append(errs, w.Flush())
		}
	}
	return errors.Join(errs...)
}

// Close flushes the channels and closes any files opened by CreateChannels.
func (c *Channels) Close() error {
	err := c.Flush()
	return errors.Join(err, closeAll(c.files))
}

func (c *Channels) writers() []*fasta.Writer {
	return []*fasta.Writer{
		c.allVNt, c.allVAa, c.allJNt, c.allJAa,
		c.goodVJNt, c.goodVJAa, c.goodCDR3Nt, c.goodCDR3Aa, c.allCDR3Nt,
	}
}

func write(w *fasta.Writer, id, desc, seq string) error {
	if w == nil {
		return nil
	}
	if err := w.Write(id, desc, seq); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}

func closeAll(files []*os.File) error {
	var errs []error
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Description is the FASTA header text for a classified read.
func Description(cl *classify.Classification) string {
	if cl.Status == classify.NoJ {
		return fmt.Sprintf("V_gene=%s status=%s", cl.VGenes, cl.Status)
	}
	nt := "NA"
	if cl.Status.HasJunction() {
		nt = fmt.Sprint(cl.CDR3NucLen())
	}
	return fmt.Sprintf("V_gene=%s J_gene=%s D_gene=%s constant=%s status=%s est_V_div=%3.1f%% cdr3_nt_len=%s",
		cl.VGenes, cl.JGenes, cl.DGenes, cl.Constant, cl.Status, cl.VDivergence, nt)
}

// GoodDescription extends Description with the CDR3 amino acid length and
// sequence.
func GoodDescription(cl *classify.Classification) string {
	return fmt.Sprintf("%s cdr3_aa_len=%d cdr3_aa_seq=%s", Description(cl), cl.CDR3AALen(), cl.JunctionAA)
}
