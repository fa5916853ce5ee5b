package store

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// BlockDevice is raw NOR flash: writes can only clear bits, so a region
// must be erased (set to 0xFF) in whole erase blocks before it is
// rewritten. tinygo's machine.Flash satisfies it.
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
	WriteBlockSize() int64
	EraseBlockSize() int64
	EraseBlocks(start, length int64) error
}

// FlashStore keeps the page at the start of a BlockDevice. Every Set
// erases the blocks under the page and programs it again.
type FlashStore struct {
	mu     sync.Mutex
	dev    BlockDevice
	blocks int64 // erase blocks covering the page
	data   page
}

// OpenFlashStore reads the page from dev. Blank flash reads as an empty
// page because 0xFF is never a used-slot marker.
func OpenFlashStore(dev BlockDevice) (*FlashStore, error) {
	erase := dev.EraseBlockSize()
	if erase <= 0 {
		return nil, fmt.Errorf("store: flash erase block size %d", erase)
	}
	blocks := (PageSize + erase - 1) / erase
	if dev.Size() < blocks*erase {
		return nil, fmt.Errorf("store: flash has %d bytes, need %d", dev.Size(), blocks*erase)
	}

	data := make(page, PageSize)
	if _, err := dev.ReadAt(data, 0); err != nil {
		return nil, fmt.Errorf("store: read flash: %w", err)
	}

	slog.Debug("[STORE] flash opened", "size", dev.Size(), "erase_block", erase)
	return &FlashStore{dev: dev, blocks: blocks, data: data}, nil
}

func (fs *FlashStore) Get(key string) (int32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.data.get(key)
}

func (fs *FlashStore) Set(key string, v int32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.data.set(key, v); err != nil {
		return err
	}
	return fs.program()
}

func (fs *FlashStore) program() error {
	if err := fs.dev.EraseBlocks(0, fs.blocks); err != nil {
		return fmt.Errorf("store: erase flash: %w", err)
	}

	buf := []byte(fs.data)
	if w := fs.dev.WriteBlockSize(); w > 1 && int64(len(buf))%w != 0 {
		pad := w - int64(len(buf))%w
		buf = append(bytes.Clone(buf), bytes.Repeat([]byte{0xFF}, int(pad))...)
	}
	if _, err := fs.dev.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("store: program flash: %w", err)
	}
	return nil
}

func (fs *FlashStore) Close() error {
	return nil
}

var _ Store = (*FlashStore)(nil)
