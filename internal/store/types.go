package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DirName is the archive directory created next to tracked files.
	DirName = ".track"

	// MaxSeq is the highest sequence number a name can use.
	MaxSeq = 999
)

// Snapshot is one stored copy of a tracked file.
// Name is the tracked file's base name, Seq its 1-based sequence number and
// Path the location of the copy inside the archive directory.
type Snapshot struct {
	Name string
	Seq  int
	Path string
}

// FileName returns "<name>.<seq:03d>".
func (s Snapshot) FileName() string {
	return snapshotName(s.Name, s.Seq)
}

func (s Snapshot) String() string {
	return s.FileName()
}

func snapshotName(name string, seq int) string {
	return fmt.Sprintf("%s.%03d", name, seq)
}

// parseSeq extracts the sequence number from an archive entry belonging to
// name. The suffix must be exactly three ASCII digits in [1, MaxSeq].
func parseSeq(name, entry string) (int, bool) {
	rest, ok := strings.CutPrefix(entry, name+".")
	if !ok || len(rest) != 3 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n < 1 || n > MaxSeq {
		return 0, false
	}
	return n, true
}

// BaseName returns the tracked name for a file path. A path with no file
// name component is a caller bug and panics.
func BaseName(filePath string) string {
	base := filepath.Base(filePath)
	switch base {
	case "", ".", "..", string(filepath.Separator):
		panic(fmt.Sprintf("store: path %q has no file name", filePath))
	}
	return base
}
