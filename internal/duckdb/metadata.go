package duckdb

import (
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a run input file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime().Truncate(time.Microsecond), // TIMESTAMP precision
	}, nil
}

// Matches reports whether the file on disk still has this fingerprint.
func (f FileFingerprint) Matches() bool {
	cur, err := StatFile(f.Path)
	if err != nil {
		return false
	}
	return cur.Size == f.Size && cur.ModTime.Equal(f.ModTime)
}
