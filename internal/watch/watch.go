// Package watch calls back whenever a single file settles after a change.
//
// The parent directory is watched rather than the file itself: many editors
// save by writing a new file and renaming it over the old one, which drops a
// watch placed on the original inode.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when New gets a non-positive debounce.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports settled changes to one file.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func(path string)

	// Errors receives fsnotify errors. It is never closed and drops values
	// nobody reads.
	Errors chan error
}

// New watches path and calls onChange on the Run goroutine once no event
// has arrived for debounce.
func New(path string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: nil callback")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		fsw:      fsw,
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		Errors:   make(chan error, 8),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run forwards settled changes until ctx is done, then closes the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	// fire is nil while nothing is pending; each relevant event restarts it.
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				fire = time.After(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-fire:
			fire = nil
			w.onChange(w.path)
		}
	}
}

// relevant keeps content-changing events for the watched file. Remove and
// chmod are ignored; a rename-over shows up as Create on the target name.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
