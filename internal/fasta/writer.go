package fasta

import (
	"bufio"
	"io"
)

// Writer writes FASTA records with the sequence on a single line.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a new FASTA writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes one record as ">id description\nseq\n".
func (fw *Writer) Write(id, description, seq string) error {
	if _, err := fw.w.WriteString(">" + id); err != nil {
		return err
	}
	if description != "" {
		if _, err := fw.w.WriteString(" " + description); err != nil {
			return err
		}
	}
	_, err := fw.w.WriteString("\n" + seq + "\n")
	return err
}

// WriteRecord writes rec.
func (fw *Writer) WriteRecord(rec *Record) error {
	return fw.Write(rec.ID, rec.Description, rec.Seq)
}

// Flush flushes any buffered data to the underlying writer.
func (fw *Writer) Flush() error {
	return fw.w.Flush()
}
