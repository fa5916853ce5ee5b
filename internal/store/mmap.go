//go:build !tinygo

package store

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// MmapStore maps the page file into memory, so the page behaves like a
// flash sector that the OS writes back. Set flushes explicitly.
type MmapStore struct {
	mu   sync.Mutex
	path string
	file *os.File
	data mmap.MMap
}

// OpenMmapStore opens or creates the page file at path and maps it.
func OpenMmapStore(path string) (*MmapStore, error) {
	f, err := openPageFile(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: mmap %s: %w", path, err)
	}
	slog.Debug("[STORE] page mapped", "path", path)
	return &MmapStore{path: path, file: f, data: data}, nil
}

func (ms *MmapStore) Get(key string) (int32, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.data == nil {
		return 0, fmt.Errorf("store: %s is closed", ms.path)
	}
	return page(ms.data).get(key)
}

func (ms *MmapStore) Set(key string, v int32) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.data == nil {
		return fmt.Errorf("store: %s is closed", ms.path)
	}
	if err := page(ms.data).set(key, v); err != nil {
		return err
	}
	if err := ms.data.Flush(); err != nil {
		return fmt.Errorf("store: flush %s: %w", ms.path, err)
	}
	return nil
}

// Close unmaps and closes the file.
func (ms *MmapStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var err error
	if ms.data != nil {
		if e := ms.data.Unmap(); e != nil {
			err = e
		}
		ms.data = nil
	}
	if ms.file != nil {
		if e := ms.file.Close(); e != nil {
			err = e
		}
		ms.file = nil
	}
	return err
}
