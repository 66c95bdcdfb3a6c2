package fasta

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Records(t *testing.T) {
	data := `>IGHV1-2*02 F|human
CAGGTGCAGCTGGTG
CAGTCTGGG
>IGHV1-3*01
CAGGTCCAG

>000017	source=run1
ACGT
`
	r := NewReaderFromReader(strings.NewReader(data))
	recs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "IGHV1-2*02", recs[0].ID)
	assert.Equal(t, "F|human", recs[0].Description)
	assert.Equal(t, "CAGGTGCAGCTGGTGCAGTCTGGG", recs[0].Seq)

	assert.Equal(t, "IGHV1-3*01", recs[1].ID)
	assert.Equal(t, "", recs[1].Description)
	assert.Equal(t, "CAGGTCCAG", recs[1].Seq)

	assert.Equal(t, "000017", recs[2].ID)
	assert.Equal(t, "source=run1", recs[2].Description)

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestReader_Empty(t *testing.T) {
	r := NewReaderFromReader(strings.NewReader("no header here\n"))
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestReader_GzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.fa.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(">IGHJ4*02\nACTACTTTGACTACTGGGGCCAGGGAACCCTGGTCACCGTCTCCTCAG\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	recs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "IGHJ4*02", recs[0].ID)
	assert.Len(t, recs[0].Seq, 48)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Write("17", "V_gene=IGHV1-2*02 status=noJ", "ACGT"))
	require.NoError(t, w.WriteRecord(&Record{ID: "18", Seq: "GG"}))
	require.NoError(t, w.Flush())

	assert.Equal(t, ">17 V_gene=IGHV1-2*02 status=noJ\nACGT\n>18\nGG\n", buf.String())
}
