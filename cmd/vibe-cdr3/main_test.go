package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-cdr3/internal/pipeline"
)

const (
	vRef   = "GCAGCAGCATATTACTGTGCGAGA"
	jRef   = "TACTTTGACTACTGGGGCCAGGGAACCG"
	insert = "GGGAGG"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// setupProject writes germline libraries and a one-batch project with a
// single good read.
func setupProject(t *testing.T) (germDir string, l pipeline.Layout) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	germDir = filepath.Join(dir, "germline")
	writeFile(t, filepath.Join(germDir, "IgHV.fa"), ">IGHV1-2*02\n"+vRef+"\n")
	writeFile(t, filepath.Join(germDir, "IgHJ.fa"), ">IGHJ4*02\n"+jRef+"\n")

	l = pipeline.NewLayout(filepath.Join(dir, "donor45"), "")
	writeFile(t, l.RawStatsPath(), "001\treads.fastq\t001\t300\n")
	writeFile(t, l.ReadsPath(1), ">001\n"+vRef+insert+jRef+"\n")
	writeFile(t, l.VTablePath(1), "1\tIGHV1-2*02\t98.00\t24\t0\t0\t1\t24\t1\t24\t1e-20\t50\tplus\n")
	writeFile(t, l.JTablePath(1), "1\tIGHJ4*02\t100.00\t28\t0\t0\t7\t34\t1\t28\t1e-20\t50\tplus\n")
	return germDir, l
}

func TestFinalize(t *testing.T) {
	germDir, l := setupProject(t)

	out, err := execute(t, "finalize", l.Root, "--germline-dir", germDir, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Total raw reads: 1\n")
	assert.Contains(t, out, "Continuous ORF with no stop codons: 1\n")

	assert.FileExists(t, l.StatsPath())
	assert.FileExists(t, l.SummaryPath())
	data, err := os.ReadFile(filepath.Join(l.NucleotideDir(), "donor45_goodCDR3.fa"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "cdr3_aa_seq=CARGRYFDYW")
}

func TestFinalize_MissingLibrary(t *testing.T) {
	_, l := setupProject(t)

	_, err := execute(t, "finalize", l.Root, "--germline-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "germline library not found")
}

func TestFinalize_NoProject(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := execute(t, "finalize")
	assert.Error(t, err)
}

func TestFinalize_BadLocus(t *testing.T) {
	germDir, l := setupProject(t)
	_, err := execute(t, "finalize", l.Root, "--germline-dir", germDir, "--locus", "gamma")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown locus")
}

func TestFinalizeAndSummary(t *testing.T) {
	germDir, l := setupProject(t)
	db := filepath.Join(t.TempDir(), "cdr3.duckdb")

	_, err := execute(t, "finalize", l.Root, "--germline-dir", germDir, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "summary", "--db", db, "--project", "donor45")
	require.NoError(t, err)
	assert.Contains(t, out, "Project: donor45\n")
	assert.Contains(t, out, "Locus: heavy\n")
	assert.Contains(t, out, "J assigned: 1\n")
	assert.Contains(t, out, "good\t1\n")
	assert.Contains(t, out, "CARGRYFDYW\t1\n")
	assert.NotContains(t, out, "Warning")

	out, err = execute(t, "summary", "--db", db, "--list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "\tdonor45\theavy\t")

	_, err = execute(t, "summary", "--db", db, "--project", "other")
	assert.Error(t, err)
}

func TestSummary_ReadAndDelete(t *testing.T) {
	germDir, l := setupProject(t)
	db := filepath.Join(t.TempDir(), "cdr3.duckdb")

	_, err := execute(t, "finalize", l.Root, "--germline-dir", germDir, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "summary", "--db", db, "--list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	runID := strings.Split(lines[1], "\t")[0]

	out, err = execute(t, "summary", "--db", db, "--project", "donor45", "--read", "001")
	require.NoError(t, err)
	assert.Contains(t, out, "Read 1 (run "+runID+")\n")
	assert.Contains(t, out, "Status: good\n")
	assert.Contains(t, out, "V: IGHV1-2*02\n")
	assert.Contains(t, out, "J: IGHJ4*02\n")
	assert.Contains(t, out, "CDR3 aa: CARGRYFDYW\n")

	_, err = execute(t, "summary", "--db", db, "--read", "999")
	assert.Error(t, err)

	_, err = execute(t, "summary", "--db", db, "--delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--run")

	out, err = execute(t, "summary", "--db", db, "--run", runID, "--delete")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted run "+runID+" (donor45, 1 reads)")

	out, err = execute(t, "summary", "--db", db, "--list")
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)

	_, err = execute(t, "summary", "--db", db, "--run", runID, "--delete")
	assert.Error(t, err)
}

func TestSummary_NoDB(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := execute(t, "summary")
	assert.Error(t, err)
}

func TestConfigSetGet(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := execute(t, "config", "set", "workers", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Set workers = 4")
	assert.FileExists(t, filepath.Join(home, configName))

	out, err = execute(t, "config", "get", "workers")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)

	out, err = execute(t, "config", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "workers: 4")

	_, err = execute(t, "config", "get", "no.such.key")
	assert.Error(t, err)
}

func TestConfigSet_Validation(t *testing.T) {
	tests := []struct {
		key, value string
		want       string // stored value; empty means rejected
	}{
		{"locus", "KAPPA", "kappa"},
		{"locus", "3", "kappa-lambda"},
		{"locus", "mouse", ""},
		{"workers", "0", "0"},
		{"workers", "-2", ""},
		{"workers", "many", ""},
		{"junction.j_motif", "TT[CT]GG", "TT[CT]GG"},
		{"junction.j_motif", "TT[CT", ""},
		{"blast.outfmt", "6 qseqid", ""},
		{"verbose", "yes", "true"},
		{"germline.dir", "/data/germline", "/data/germline"},
		{"germline.path", "/data", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			_, err := execute(t, "config", "set", tt.key, tt.value)
			if tt.want == "" {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			out, err := execute(t, "config", "get", tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

// settingLine returns the fields of the config listing line for key.
func settingLine(t *testing.T, out, key string) []string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if f := strings.Fields(line); len(f) > 0 && f[0] == key {
			return f
		}
	}
	t.Fatalf("no line for %s in:\n%s", key, out)
	return nil
}

func TestConfigShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIBE_CDR3_DB", "/data/runs.duckdb")

	_, err := execute(t, "config", "set", "workers", "6")
	require.NoError(t, err)

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "# Config file: ")
	assert.Equal(t, []string{"workers", "6", "file"}, settingLine(t, out, "workers"))
	assert.Equal(t, []string{"db", "/data/runs.duckdb", "env"}, settingLine(t, out, "db"))
	assert.Equal(t, []string{"locus", "heavy", "default"}, settingLine(t, out, "locus"))
	assert.Equal(t, []string{"vlib", "(none)", "default"}, settingLine(t, out, "vlib"))
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VIBE_CDR3_GERMLINE_DIR", "/data/germline")

	out, err := execute(t, "config", "get", "germline.dir")
	require.NoError(t, err)
	assert.Equal(t, "/data/germline\n", out)
}
