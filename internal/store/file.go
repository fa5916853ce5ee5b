package store

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the page in a regular file, rewritten and synced on
// every Set.
type FileStore struct {
	mu   sync.Mutex
	path string
	file *os.File
	data page
}

// OpenFileStore opens or creates the page file at path.
func OpenFileStore(path string) (*FileStore, error) {
	f, err := openPageFile(path)
	if err != nil {
		return nil, err
	}

	data := make(page, PageSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, PageSize), data); err != nil {
		f.Close()
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}

	slog.Debug("[STORE] file opened", "path", path)
	return &FileStore{path: path, file: f, data: data}, nil
}

func (fs *FileStore) Get(key string) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.data.get(key)
}

func (fs *FileStore) Set(key string, v int32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.data.set(key, v); err != nil {
		return err
	}
	return fs.sync()
}

func (fs *FileStore) sync() error {
	if fs.file == nil {
		return fmt.Errorf("store: %s is closed", fs.path)
	}
	if _, err := fs.file.WriteAt(fs.data, 0); err != nil {
		return fmt.Errorf("store: write %s: %w", fs.path, err)
	}
	if err := fs.file.Sync(); err != nil {
		return fmt.Errorf("store: sync %s: %w", fs.path, err)
	}
	return nil
}

func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	return err
}

// openPageFile opens path read-write, creating it and its parent directory
// if needed, and sizes it to exactly one page.
func openPageFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("store: stat %s: %w", path, err)
	}
	if fi.Size() != PageSize {
		if err := f.Truncate(PageSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("store: resize %s: %w", path, err)
		}
	}
	return f, nil
}
