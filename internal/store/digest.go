package store

import (
	"fmt"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"
)

// Digest returns the xxh3-128 hash of the snapshot content as lowercase hex.
// Two snapshots with equal digests hold the same bytes.
func (s Snapshot) Digest() (string, error) {
	r, err := mmap.Open(s.Path)
	if err != nil {
		return "", wrap(ErrReadFailed, s.Path, err)
	}
	defer r.Close()

	data := make([]byte, r.Len())
	if len(data) > 0 {
		if _, err := r.ReadAt(data, 0); err != nil {
			return "", wrap(ErrReadFailed, s.Path, err)
		}
	}
	return fmt.Sprintf("%x", xxh3.Hash128(data).Bytes()), nil
}
