// Package store emulates the small non-volatile key/value area a
// microcontroller keeps in flash. Records are signed 32-bit integers keyed
// by short names and survive restarts of the process.
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when no record exists for a key.
	ErrNotFound = errors.New("store: key not found")
	// ErrCorrupt is returned by Get when a record fails its integrity check.
	ErrCorrupt = errors.New("store: record corrupt")
	// ErrFull is returned by Set when every slot is taken by another key.
	ErrFull = errors.New("store: no free slot")
)

// Store is a durable integer record store.
type Store interface {
	// Get returns the value stored under key, ErrNotFound if absent, or
	// ErrCorrupt if the record failed verification.
	Get(key string) (int32, error)
	// Set stores v under key and flushes it to the backing medium.
	Set(key string, v int32) error
	// Close releases the backing medium.
	Close() error
}

// Open creates a Store for the given backend: "memory", "file", "mmap" or
// "flash". path is ignored for "memory" and "flash".
func Open(backend, path string) (Store, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		fs, err := OpenFileStore(path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "mmap":
		ms, err := OpenMmapStore(path)
		if err != nil {
			return nil, err
		}
		return ms, nil
	case "flash":
		fl, err := openFlash()
		if err != nil {
			return nil, err
		}
		return fl, nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
