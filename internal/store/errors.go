package store

import (
	"errors"
	"fmt"
)

// Error kinds returned by the store and by the diff path built on it.
// Returned errors wrap one of these plus the underlying cause, so callers
// test the kind with errors.Is.
var (
	// ErrNotFound: the file to commit does not exist, or no snapshot exists
	// for the requested name.
	ErrNotFound = errors.New("not found")
	// ErrNoTrackRepo: the archive directory is absent.
	ErrNoTrackRepo = errors.New("no track repository")
	// ErrStoreUnavailable: the archive directory could not be created.
	ErrStoreUnavailable = errors.New("archive directory unavailable")
	// ErrStoreExhausted: all 999 sequence slots are occupied.
	ErrStoreExhausted = errors.New("all snapshot slots used")
	// ErrCopyFailed: writing the snapshot failed.
	ErrCopyFailed = errors.New("copy failed")
	// ErrReadFailed: a file could not be read or is not text.
	ErrReadFailed = errors.New("read failed")
)

// ErrSlotTaken reports that another writer published the chosen slot
// between the scan and the link. It matches ErrCopyFailed too.
var ErrSlotTaken = fmt.Errorf("%w: slot taken", ErrCopyFailed)

func wrap(kind error, what string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", what, kind)
	}
	return fmt.Errorf("%s: %w: %w", what, kind, cause)
}
