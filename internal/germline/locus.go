package germline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMissingLibrary is returned when a germline library file cannot be found.
var ErrMissingLibrary = errors.New("germline library not found")

// Locus selects the germline libraries and J motif used for a run.
type Locus int

const (
	Heavy Locus = iota
	Kappa
	Lambda
	KappaLambda
	Custom
)

var locusNames = map[Locus]string{
	Heavy:       "heavy",
	Kappa:       "kappa",
	Lambda:      "lambda",
	KappaLambda: "kappa-lambda",
	Custom:      "custom",
}

func (l Locus) String() string {
	if name, ok := locusNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Locus(%d)", int(l))
}

// IsLight reports whether the locus is one of the built-in light chain loci.
// Custom libraries are not assumed to be light chains.
func (l Locus) IsLight() bool {
	return l == Kappa || l == Lambda || l == KappaLambda
}

// ParseLocus accepts either the numeric selector (0-4) or a locus name.
func ParseLocus(s string) (Locus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(Heavy) || n > int(Custom) {
			return 0, fmt.Errorf("locus %d out of range 0-4", n)
		}
		return Locus(n), nil
	}
	for l, name := range locusNames {
		if name == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown locus %q", s)
}

// libraryFiles are the built-in V and J library file names per locus.
var libraryFiles = map[Locus][2]string{
	Heavy:       {"IgHV.fa", "IgHJ.fa"},
	Kappa:       {"IgKV.fa", "IgKJ.fa"},
	Lambda:      {"IgLV.fa", "IgLJ.fa"},
	KappaLambda: {"IgKLV.fa", "IgKLJ.fa"},
}

// Libraries holds the V and J libraries for one run.
type Libraries struct {
	Locus Locus
	V     *Library
	J     *Library
}

// Paths resolves the V and J library files for a locus. Built-in loci use
// the files in dir; Custom requires vlib and jlib. Every returned path has
// been checked to exist.
func Paths(locus Locus, dir, vlib, jlib string) (vpath, jpath string, err error) {
	if locus == Custom {
		vpath, jpath = vlib, jlib
	} else {
		files, ok := libraryFiles[locus]
		if !ok {
			return "", "", fmt.Errorf("no built-in libraries for %s", locus)
		}
		vpath, jpath = filepath.Join(dir, files[0]), filepath.Join(dir, files[1])
	}

	if vpath == "" || !fileExists(vpath) {
		return "", "", fmt.Errorf("can't find %s V gene library %q: %w", locus, vpath, ErrMissingLibrary)
	}
	if jpath == "" || !fileExists(jpath) {
		return "", "", fmt.Errorf("can't find %s J gene library %q: %w", locus, jpath, ErrMissingLibrary)
	}
	return vpath, jpath, nil
}

// Load resolves and loads the V and J libraries for a locus.
func Load(locus Locus, dir, vlib, jlib string) (*Libraries, error) {
	vpath, jpath, err := Paths(locus, dir, vlib, jlib)
	if err != nil {
		return nil, err
	}
	v, err := LoadLibrary(vpath)
	if err != nil {
		return nil, err
	}
	j, err := LoadLibrary(jpath)
	if err != nil {
		return nil, err
	}
	return &Libraries{Locus: locus, V: v, J: j}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
