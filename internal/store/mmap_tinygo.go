//go:build tinygo

package store

import "errors"

// MmapStore is unavailable on microcontrollers.
type MmapStore struct {
	FileStore
}

// OpenMmapStore always fails on tinygo builds; use the file or memory backend.
func OpenMmapStore(path string) (*MmapStore, error) {
	return nil, errors.New("store: mmap backend needs a host build")
}
