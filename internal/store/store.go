// Package store keeps sequenced copies of tracked files in a flat archive
// directory.
//
// Conventions:
//   - The archive directory is passed in explicitly; callers normally use
//     filepath.Join(workdir, DirName).
//   - A snapshot of "notes.txt" is stored as <root>/notes.txt.001, .002, ...
//   - Snapshots are never modified or removed once published.
//   - Publishing is atomic: content is written to a temp file in the same
//     directory and hard-linked into its slot, so a slot is either absent or
//     complete, and an existing slot is never overwritten.
package store

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"filetrack/internal/sortutil"
	"filetrack/internal/textutil"
)

// beforeLink, when set, runs between choosing a slot and publishing it.
// Tests use it to interleave a competing writer.
var beforeLink func(slot string)

// Store is a handle on one archive directory. It holds no state beyond the
// root path; every call reads the directory afresh.
type Store struct {
	root string
}

// New returns a store rooted at dir. The directory is created lazily by the
// first Commit.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the archive directory.
func (s *Store) Root() string { return s.root }

// Commit copies filePath into the next free slot for its base name and
// returns the new snapshot.
//
// The source is checked before the archive directory is touched, so
// committing a missing file never creates the directory.
func (s *Store) Commit(filePath string) (Snapshot, error) {
	fi, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, wrap(ErrNotFound, filePath, err)
		}
		return Snapshot{}, wrap(ErrReadFailed, filePath, err)
	}
	if !fi.Mode().IsRegular() {
		return Snapshot{}, wrap(ErrNotFound, filePath+": not a regular file", nil)
	}
	name := BaseName(filePath)

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return Snapshot{}, wrap(ErrStoreUnavailable, s.root, err)
	}

	seq, err := s.freeSlot(name)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Name: name, Seq: seq, Path: filepath.Join(s.root, snapshotName(name, seq))}

	tmp, err := s.copyToTemp(filePath, name, fi.Mode().Perm())
	if err != nil {
		return Snapshot{}, wrap(ErrCopyFailed, filePath, err)
	}
	defer os.Remove(tmp)

	if beforeLink != nil {
		beforeLink(snap.Path)
	}
	// Link fails with EEXIST instead of replacing, unlike Rename.
	if err := os.Link(tmp, snap.Path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Snapshot{}, wrap(ErrSlotTaken, snap.Path, err)
		}
		return Snapshot{}, wrap(ErrCopyFailed, snap.Path, err)
	}
	return snap, nil
}

// freeSlot returns the lowest sequence number with no entry for name.
func (s *Store) freeSlot(name string) (int, error) {
	for n := 1; n <= MaxSeq; n++ {
		_, err := os.Lstat(filepath.Join(s.root, snapshotName(name, n)))
		if errors.Is(err, fs.ErrNotExist) {
			return n, nil
		}
		if err != nil {
			return 0, wrap(ErrStoreUnavailable, s.root, err)
		}
	}
	return 0, wrap(ErrStoreExhausted, name, nil)
}

// copyToTemp writes the content of src into a temp file in the archive
// directory and returns its path. The temp file is removed on failure.
func (s *Store) copyToTemp(src, name string, perm fs.FileMode) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	f, err := os.CreateTemp(s.root, ".tmp-"+name+"-")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := io.Copy(f, in); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// List returns all snapshots of name in ascending sequence order.
// It fails with ErrNoTrackRepo when the archive directory is missing and
// with ErrNotFound when it has no entries for name.
func (s *Store) List(name string) ([]Snapshot, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wrap(ErrNoTrackRepo, s.root, err)
		}
		return nil, wrap(ErrReadFailed, s.root, err)
	}
	var snaps []Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		seq, ok := parseSeq(name, e.Name())
		if !ok {
			continue
		}
		snaps = append(snaps, Snapshot{Name: name, Seq: seq, Path: filepath.Join(s.root, e.Name())})
	}
	if len(snaps) == 0 {
		return nil, wrap(ErrNotFound, "no snapshots of "+name, nil)
	}
	// ReadDir happens to sort by name, but the order is not part of our
	// contract, so sort on the parsed number.
	return sortutil.StableByKey(snaps, seqOf), nil
}

// LatestSnapshot returns the snapshot of name with the highest sequence
// number.
func (s *Store) LatestSnapshot(name string) (Snapshot, error) {
	snaps, err := s.List(name)
	if err != nil {
		return Snapshot{}, err
	}
	return sortutil.StableByKeyDesc(snaps, seqOf)[0], nil
}

// ReadText reads path and decodes it as text. Any failure, including
// content that is not text, is reported as ErrReadFailed.
func ReadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", wrap(ErrReadFailed, path, err)
	}
	text, err := textutil.Decode(b)
	if err != nil {
		return "", wrap(ErrReadFailed, path, err)
	}
	return text, nil
}

func seqOf(s Snapshot) int { return s.Seq }
