// Package track routes commit and diff commands to the snapshot store and the
// diff engine.
//
// A Tracker is bound to one archive directory and one output writer at
// construction time; it never consults the process working directory, so
// several trackers can run side by side in tests.
package track

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"filetrack/internal/diff"
	"filetrack/internal/store"
	"filetrack/internal/textutil"
)

// Op selects what a Command does.
type Op int

const (
	OpCommit Op = iota
	OpDiff
)

func (o Op) String() string {
	switch o {
	case OpCommit:
		return "commit"
	case OpDiff:
		return "diff"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Command carries exactly one operation on one file path.
type Command struct {
	Op   Op
	Path string
}

// Commit builds a commit command for path.
func Commit(path string) Command { return Command{Op: OpCommit, Path: path} }

// Diff builds a diff command for path.
func Diff(path string) Command { return Command{Op: OpDiff, Path: path} }

func (c Command) String() string { return c.Op.String() + " " + c.Path }

// Result is the success payload of Handle. Snapshot is set for both
// operations: the new snapshot for a commit, the compared one for a diff.
// Script is only set for a diff and is empty when nothing changed.
type Result struct {
	Op       Op
	Snapshot store.Snapshot
	Script   diff.Script
}

// Tracker executes commands against one archive directory.
type Tracker struct {
	store *store.Store
	out   io.Writer
	log   *slog.Logger
	diff  diff.Options
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithOutput sets where diff renderings go. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option { return func(t *Tracker) { t.out = w } }

// WithLogger sets the logger. Defaults to a logger that discards.
func WithLogger(l *slog.Logger) Option { return func(t *Tracker) { t.log = l } }

// WithDiffOptions sets rendering options for diffs.
func WithDiffOptions(o diff.Options) Option { return func(t *Tracker) { t.diff = o } }

// New returns a tracker that keeps snapshots in archiveDir.
func New(archiveDir string, opts ...Option) *Tracker {
	t := &Tracker{
		store: store.New(archiveDir),
		out:   os.Stdout,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Store exposes the underlying snapshot store.
func (t *Tracker) Store() *store.Store { return t.store }

// Handle runs cmd and returns its result. Errors are logged and returned
// unchanged; their kind is testable with errors.Is against the store
// sentinels.
func (t *Tracker) Handle(cmd Command) (Result, error) {
	t.log.Debug("handle", "op", cmd.Op, "path", cmd.Path, "archive", t.store.Root())
	switch cmd.Op {
	case OpCommit:
		snap, err := t.Commit(cmd.Path)
		if err != nil {
			t.log.Error("commit failed", "path", cmd.Path, "err", err)
			return Result{}, err
		}
		return Result{Op: OpCommit, Snapshot: snap}, nil
	case OpDiff:
		snap, script, err := t.diffLatest(cmd.Path)
		if err != nil {
			t.log.Error("diff failed", "path", cmd.Path, "err", err)
			return Result{}, err
		}
		return Result{Op: OpDiff, Snapshot: snap, Script: script}, nil
	}
	panic(fmt.Sprintf("track: unknown op %v", cmd.Op))
}

// Commit stores a new snapshot of filePath.
func (t *Tracker) Commit(filePath string) (store.Snapshot, error) {
	snap, err := t.store.Commit(filePath)
	if err != nil {
		return store.Snapshot{}, err
	}
	t.log.Info("committed", "path", filePath, "snapshot", snap.FileName())
	return snap, nil
}

// ComputeDiff compares the latest snapshot of filePath (before) with the
// file's current content (after). The unified rendering is written to the
// tracker's output; the returned script is empty when nothing changed.
func (t *Tracker) ComputeDiff(filePath string) (diff.Script, error) {
	_, script, err := t.diffLatest(filePath)
	return script, err
}

func (t *Tracker) diffLatest(filePath string) (store.Snapshot, diff.Script, error) {
	snap, err := t.store.LatestSnapshot(store.BaseName(filePath))
	if err != nil {
		return store.Snapshot{}, nil, err
	}
	t.log.Debug("latest snapshot", "path", filePath, "snapshot", snap.Path)

	current, err := store.ReadText(filePath)
	if err != nil {
		return store.Snapshot{}, nil, err
	}
	archived, err := store.ReadText(snap.Path)
	if err != nil {
		return store.Snapshot{}, nil, err
	}

	d := diff.Compute(textutil.SplitLines(archived), textutil.SplitLines(current))
	if err := d.WriteUnified(t.out, snap.FileName(), filePath, t.diff); err != nil {
		return store.Snapshot{}, nil, fmt.Errorf("write diff: %w", err)
	}
	ins, del := d.Script.Counts()
	t.log.Debug("diff computed", "path", filePath, "inserted", ins, "deleted", del)
	return snap, d.Script, nil
}

// Entry describes one stored snapshot for Log.
type Entry struct {
	Snapshot store.Snapshot
	Size     int64
	ModTime  time.Time
	Digest   string
}

// Log lists the snapshots of filePath's base name, oldest first.
func (t *Tracker) Log(filePath string) ([]Entry, error) {
	snaps, err := t.store.List(store.BaseName(filePath))
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(snaps))
	for _, s := range snaps {
		fi, err := os.Stat(s.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", s.Path, store.ErrReadFailed, err)
		}
		sum, err := s.Digest()
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Snapshot: s,
			Size:     fi.Size(),
			ModTime:  fi.ModTime(),
			Digest:   sum,
		})
	}
	return out, nil
}
