package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-cdr3/internal/classify"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cdr3.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.DirExists(t, filepath.Dir(path))
	assert.Equal(t, path, s.Path())
}

func classification(id string, st classify.Status, cdr3aa string) *classify.Classification {
	return &classify.Classification{
		ReadID:      id,
		Status:      st,
		Seq:         "GCAGCAGCATATTACTGTGCGAGAGGGAGGTACTTTGACTACTGG",
		JunctionSeq: "TGTGCGAGAGGGAGGTACTTTGACTACTGG",
		JunctionAA:  cdr3aa,
		VGenes:      "IGHV1-2*01",
		DGenes:      classify.NotApplicable,
		JGenes:      "IGHJ4*01",
		Constant:    "IGHM",
		Stop:        st == classify.Stop,
		VDivergence: 1.5,
	}
}

func TestWriteAndLookupClassifications(t *testing.T) {
	s := openInMemory(t)
	runID := NewRunID()

	cls := []*classify.Classification{
		classification("1", classify.Good, "CARGRYFDYW"),
		classification("2", classify.Stop, "CAR*RYFDYW"),
		{ReadID: "3", Status: classify.NoV},
	}
	require.NoError(t, s.WriteClassifications(runID, cls))

	rec, err := s.LookupRead(runID, "1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, classify.Good, rec.Status)
	assert.Equal(t, int64(45), rec.TrimLen)
	assert.Equal(t, "IGHV1-2*01", rec.VGenes)
	assert.Equal(t, "IGHM", rec.Constant)
	assert.Equal(t, "CARGRYFDYW", rec.CDR3AA)
	assert.InDelta(t, 1.5, rec.VDivergence, 1e-9)
	assert.False(t, rec.Stop)

	rec, err = s.LookupRead(runID, "2")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Stop)

	// noV reads are not stored
	rec, err = s.LookupRead(runID, "3")
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = s.LookupRead(NewRunID(), "1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestWriteClassifications_Empty(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteClassifications(NewRunID(), nil))
}

func TestStatusCounts(t *testing.T) {
	s := openInMemory(t)
	runID := NewRunID()
	other := NewRunID()

	require.NoError(t, s.WriteClassifications(runID, []*classify.Classification{
		classification("1", classify.Good, "CARGRYFDYW"),
		classification("2", classify.Good, "CARGRYFDYW"),
		classification("3", classify.InDel, ""),
		classification("4", classify.NoJ, ""),
	}))
	require.NoError(t, s.WriteClassifications(other, []*classify.Classification{
		classification("1", classify.Stop, ""),
	}))

	counts, err := s.StatusCounts(runID)
	require.NoError(t, err)
	assert.Equal(t, map[classify.Status]int{
		classify.Good:  2,
		classify.InDel: 1,
		classify.NoJ:   1,
	}, counts)
}

func TestTopClonotypes(t *testing.T) {
	s := openInMemory(t)
	runID := NewRunID()

	require.NoError(t, s.WriteClassifications(runID, []*classify.Classification{
		classification("1", classify.Good, "CARGRYFDYW"),
		classification("2", classify.Good, "CARGRYFDYW"),
		classification("3", classify.Good, "CAKDWFDPW"),
		classification("4", classify.Good, "CARDYW"),
		classification("5", classify.Stop, "CAR*YW"),
		classification("6", classify.Stop, "CAR*YW"),
		classification("7", classify.Stop, "CAR*YW"),
	}))

	top, err := s.TopClonotypes(runID, 2)
	require.NoError(t, err)
	assert.Equal(t, []Clonotype{
		{CDR3AA: "CARGRYFDYW", Count: 2},
		{CDR3AA: "CAKDWFDPW", Count: 1},
	}, top)
}

func TestWriteAndLookupRun(t *testing.T) {
	s := openInMemory(t)

	older := &Run{
		ID:      NewRunID(),
		Project: "prj",
		Locus:   "heavy",
		Started: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Total:   10,
	}
	newer := &Run{
		ID:      NewRunID(),
		Project: "prj",
		Locus:   "heavy",
		Started: time.Date(2024, 2, 2, 3, 4, 5, 0, time.UTC),
		Source: FileFingerprint{
			Path:    "/data/prj_temp_lookup.txt",
			Size:    1234,
			ModTime: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		RawReads: 20, Total: 15, VAssigned: 13, JAssigned: 10,
		CDR3Assigned: 9, InFrame: 7, Good: 6,
	}
	require.NoError(t, s.WriteRun(older))
	require.NoError(t, s.WriteRun(newer))

	got, err := s.LookupRun(newer.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.Project, got.Project)
	assert.Equal(t, int64(6), got.Good)
	assert.Equal(t, int64(1234), got.Source.Size)
	assert.True(t, newer.Started.Equal(got.Started))

	latest, err := s.LatestRun("prj")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)

	missing, err := s.LatestRun("other")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// rewriting a run replaces it
	newer.Good = 7
	require.NoError(t, s.WriteRun(newer))
	got, err = s.LookupRun(newer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Good)
}

func TestWriteRun_InvalidID(t *testing.T) {
	s := openInMemory(t)
	assert.Error(t, s.WriteRun(&Run{ID: "not-a-uuid"}))
}

func TestDeleteRun(t *testing.T) {
	s := openInMemory(t)
	run := &Run{ID: NewRunID(), Project: "prj", Started: time.Now()}
	require.NoError(t, s.WriteRun(run))
	require.NoError(t, s.WriteClassifications(run.ID, []*classify.Classification{
		classification("1", classify.Good, "CARGRYFDYW"),
	}))

	require.NoError(t, s.DeleteRun(run.ID))

	got, err := s.LookupRun(run.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	counts, err := s.StatusCounts(run.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestFileFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.txt")
	require.NoError(t, os.WriteFile(path, []byte("id\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fp.Size)
	assert.True(t, fp.Matches())

	require.NoError(t, os.WriteFile(path, []byte("id\tsource\n"), 0644))
	assert.False(t, fp.Matches())

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
