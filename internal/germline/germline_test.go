package germline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "v.fa", ">IGHV1-2*02 F\ncaggtgcag\nCTGGTG\n>empty\n>IGHV3-23*01\nGAGGTG\n")

	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len(), "empty records are skipped")
	assert.Equal(t, path, lib.Path())

	g, ok := lib.Get("IGHV1-2*02")
	require.True(t, ok)
	assert.Equal(t, "CAGGTGCAGCTGGTG", g.Sequence)
	assert.Equal(t, 15, g.Len())

	_, ok = lib.Get("IGHV9-9*01")
	assert.False(t, ok)
}

func TestLoadLibrary_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadLibrary(filepath.Join(dir, "missing.fa"))
	assert.Error(t, err)

	empty := writeFile(t, dir, "empty.fa", "")
	_, err = LoadLibrary(empty)
	assert.ErrorContains(t, err, "no sequences")
}

func TestParseLocus(t *testing.T) {
	tests := []struct {
		in      string
		want    Locus
		wantErr bool
	}{
		{"0", Heavy, false},
		{"1", Kappa, false},
		{"2", Lambda, false},
		{"3", KappaLambda, false},
		{"4", Custom, false},
		{"lambda", Lambda, false},
		{" Heavy ", Heavy, false},
		{"5", 0, true},
		{"-1", 0, true},
		{"beta", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocus_IsLight(t *testing.T) {
	assert.False(t, Heavy.IsLight())
	assert.True(t, Kappa.IsLight())
	assert.True(t, Lambda.IsLight())
	assert.True(t, KappaLambda.IsLight())
	assert.False(t, Custom.IsLight())
	assert.Equal(t, "kappa-lambda", KappaLambda.String())
	assert.Equal(t, "Locus(9)", Locus(9).String())
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "IgHV.fa", ">v\nA\n")
	writeFile(t, dir, "IgHJ.fa", ">j\nA\n")

	v, j, err := Paths(Heavy, dir, "", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "IgHV.fa"), v)
	assert.Equal(t, filepath.Join(dir, "IgHJ.fa"), j)

	_, _, err = Paths(Kappa, dir, "", "")
	assert.True(t, errors.Is(err, ErrMissingLibrary))

	// custom libraries must be supplied and exist
	_, _, err = Paths(Custom, dir, "", "")
	assert.ErrorIs(t, err, ErrMissingLibrary)
	assert.ErrorContains(t, err, "V gene library")

	cv := writeFile(t, dir, "custom_v.fa", ">v\nA\n")
	_, _, err = Paths(Custom, dir, cv, filepath.Join(dir, "nope.fa"))
	assert.ErrorIs(t, err, ErrMissingLibrary)
	assert.ErrorContains(t, err, "J gene library")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cv := writeFile(t, dir, "custom_v.fa", ">IGLV1-40*01\nCAGTCT\n")
	cj := writeFile(t, dir, "custom_j.fa", ">IGLJ2*01\nTTCGGC\n")

	libs, err := Load(Custom, "", cv, cj)
	require.NoError(t, err)
	assert.Equal(t, Custom, libs.Locus)
	assert.Equal(t, 1, libs.V.Len())
	assert.Equal(t, 1, libs.J.Len())
}
