package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func setup(t *testing.T, content string) (work string, file string, s *Store) {
	t.Helper()
	work = t.TempDir()
	file = filepath.Join(work, "f")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return work, file, New(filepath.Join(work, DirName))
}

func TestCommitCreatesFirstSnapshot(t *testing.T) {
	work, file, s := setup(t, "0123456789\n")

	snap, err := s.Commit(file)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if snap.Seq != 1 || snap.Name != "f" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	want := filepath.Join(work, DirName, "f.001")
	if snap.Path != want {
		t.Fatalf("path got %q want %q", snap.Path, want)
	}
	b, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(b) != "0123456789\n" {
		t.Fatalf("snapshot content %q", b)
	}
}

func TestCommitSequencesAreGapFree(t *testing.T) {
	work, file, s := setup(t, "same\n")
	for i := 1; i <= 3; i++ {
		snap, err := s.Commit(file)
		if err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		if snap.Seq != i {
			t.Fatalf("commit %d got seq %d", i, snap.Seq)
		}
	}
	a, _ := os.ReadFile(filepath.Join(work, DirName, "f.001"))
	b, _ := os.ReadFile(filepath.Join(work, DirName, "f.002"))
	if !bytes.Equal(a, b) {
		t.Fatalf("f.001 and f.002 differ")
	}
}

func TestCommitMissingFileLeavesNoArchive(t *testing.T) {
	work, _, s := setup(t, "x")
	_, err := s.Commit(filepath.Join(work, "bad_f"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, DirName)); !os.IsNotExist(err) {
		t.Fatalf("archive directory should not exist: %v", err)
	}
}

func TestCommitDirectoryIsNotFound(t *testing.T) {
	work, _, s := setup(t, "x")
	if _, err := s.Commit(work); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestCommitFillsLowestFreeSlot(t *testing.T) {
	work, file, s := setup(t, "x")
	dir := filepath.Join(work, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"f.001", "f.003"} {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	snap, err := s.Commit(file)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if snap.Seq != 2 {
		t.Fatalf("expected slot 2, got %d", snap.Seq)
	}
}

func TestCommitExhausted(t *testing.T) {
	work, file, s := setup(t, "x")
	dir := filepath.Join(work, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for n := 1; n <= MaxSeq; n++ {
		if err := os.WriteFile(filepath.Join(dir, snapshotName("f", n)), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Commit(file); !errors.Is(err, ErrStoreExhausted) {
		t.Fatalf("expected ErrStoreExhausted, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != MaxSeq {
		t.Fatalf("expected no temp leftovers, found %d entries", len(entries))
	}
}

func TestCommitStoreUnavailable(t *testing.T) {
	work, file, _ := setup(t, "x")
	blocker := filepath.Join(work, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(filepath.Join(blocker, DirName))
	if _, err := s.Commit(file); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCommitSlotTakenBeforeLink(t *testing.T) {
	work, file, s := setup(t, "mine\n")
	// Another writer publishes the chosen slot between scan and link.
	beforeLink = func(slot string) {
		if err := os.WriteFile(slot, []byte("theirs\n"), 0o644); err != nil {
			t.Errorf("competing write: %v", err)
		}
	}
	t.Cleanup(func() { beforeLink = nil })

	_, err := s.Commit(file)
	if !errors.Is(err, ErrSlotTaken) || !errors.Is(err, ErrCopyFailed) {
		t.Fatalf("expected ErrSlotTaken matching ErrCopyFailed, got %v", err)
	}
	b, err := os.ReadFile(filepath.Join(work, DirName, "f.001"))
	if err != nil || string(b) != "theirs\n" {
		t.Fatalf("existing slot was overwritten: %q, %v", b, err)
	}
	assertNoTemp(t, filepath.Join(work, DirName))
}

func TestConcurrentCommitsNeverShareSlot(t *testing.T) {
	work, file, s := setup(t, "shared\n")
	const n = 16

	var wg sync.WaitGroup
	seqs := make(chan int, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.Commit(file)
			if err != nil {
				errs <- err
				return
			}
			seqs <- snap.Seq
		}()
	}
	wg.Wait()
	close(seqs)
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrSlotTaken) {
			t.Fatalf("concurrent commit failed with %v, want ErrSlotTaken", err)
		}
	}
	seen := map[int]bool{}
	for seq := range seqs {
		if seen[seq] {
			t.Fatalf("sequence %d handed out twice", seq)
		}
		seen[seq] = true
	}
	if len(seen) == 0 {
		t.Fatalf("no commit succeeded")
	}
	assertNoTemp(t, filepath.Join(work, DirName))
}

func assertNoTemp(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLatestSnapshotErrors(t *testing.T) {
	work, file, s := setup(t, "x")
	if _, err := s.LatestSnapshot("f"); !errors.Is(err, ErrNoTrackRepo) {
		t.Fatalf("expected ErrNoTrackRepo, got %v", err)
	}
	if _, err := s.Commit(file); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LatestSnapshot("other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, DirName)); err != nil {
		t.Fatalf("archive dir should exist: %v", err)
	}
}

func TestLatestSnapshotPicksHighestNumber(t *testing.T) {
	work, _, s := setup(t, "x")
	dir := filepath.Join(work, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Decoys: wrong prefix, wrong width, non-digits, zero, temp file.
	names := []string{"f.002", "f.010", "f.009", "ff.500", "f.0100", "f.abc", "f.000", "f.1", ".tmp-f-123", "g.999"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	snap, err := s.LatestSnapshot("f")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Seq != 10 || snap.FileName() != "f.010" {
		t.Fatalf("unexpected latest %+v", snap)
	}

	all, err := s.List("f")
	if err != nil {
		t.Fatal(err)
	}
	var seqs []int
	for _, sn := range all {
		seqs = append(seqs, sn.Seq)
	}
	if len(seqs) != 3 || seqs[0] != 2 || seqs[1] != 9 || seqs[2] != 10 {
		t.Fatalf("unexpected list %v", seqs)
	}
}

func TestCommitThenLatestRoundTrip(t *testing.T) {
	_, file, s := setup(t, "line one\nline two\n")
	if _, err := s.Commit(file); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(file); err != nil {
		t.Fatal(err)
	}
	snap, err := s.LatestSnapshot("f")
	if err != nil {
		t.Fatal(err)
	}
	text, err := ReadText(snap.Path)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Seq != 2 || text != "changed\n" {
		t.Fatalf("got seq %d text %q", snap.Seq, text)
	}
}

func TestReadTextFailures(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadText(filepath.Join(dir, "missing")); !errors.Is(err, ErrReadFailed) {
		t.Fatalf("missing file: %v", err)
	}
	bin := filepath.Join(dir, "bin")
	if err := os.WriteFile(bin, []byte{0, 1, 2, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadText(bin); !errors.Is(err, ErrReadFailed) {
		t.Fatalf("binary file: %v", err)
	}
}

func TestDigestMatchesForIdenticalContent(t *testing.T) {
	_, file, s := setup(t, "same\n")
	a, _ := s.Commit(file)
	b, _ := s.Commit(file)
	if err := os.WriteFile(file, []byte("different\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, _ := s.Commit(file)

	da, err := a.Digest()
	if err != nil {
		t.Fatal(err)
	}
	db, _ := b.Digest()
	dc, _ := c.Digest()
	if da != db {
		t.Fatalf("identical snapshots have different digests: %s %s", da, db)
	}
	if da == dc {
		t.Fatalf("different snapshots share digest %s", da)
	}
	if len(da) != 32 {
		t.Fatalf("expected 128-bit hex digest, got %q", da)
	}
}

func TestDigestEmptyFile(t *testing.T) {
	_, file, s := setup(t, "")
	snap, err := s.Commit(file)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := snap.Digest(); err != nil {
		t.Fatalf("digest of empty snapshot: %v", err)
	}
}

func TestBaseNamePanicsWithoutFileName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	BaseName("/")
}
