package store

import (
	"errors"
	"testing"
)

// norFlash behaves like NOR flash: programming can only clear bits.
type norFlash struct {
	mem        []byte
	eraseBlock int64
	writeBlock int64
	erases     int
}

func newNORFlash(size, eraseBlock, writeBlock int64) *norFlash {
	f := &norFlash{mem: make([]byte, size), eraseBlock: eraseBlock, writeBlock: writeBlock}
	for i := range f.mem {
		f.mem[i] = 0xFF
	}
	return f
}

func (f *norFlash) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, f.mem[off:]), nil
}

func (f *norFlash) WriteAt(p []byte, off int64) (int, error) {
	if int64(len(p))%f.writeBlock != 0 {
		return 0, errors.New("unaligned write")
	}
	for i, b := range p {
		f.mem[off+int64(i)] &= b
	}
	return len(p), nil
}

func (f *norFlash) Size() int64           { return int64(len(f.mem)) }
func (f *norFlash) WriteBlockSize() int64 { return f.writeBlock }
func (f *norFlash) EraseBlockSize() int64 { return f.eraseBlock }

func (f *norFlash) EraseBlocks(start, length int64) error {
	f.erases++
	for i := start * f.eraseBlock; i < (start+length)*f.eraseBlock; i++ {
		f.mem[i] = 0xFF
	}
	return nil
}

var _ BlockDevice = (*norFlash)(nil)

func TestFlashBlankIsEmpty(t *testing.T) {
	s, err := OpenFlashStore(newNORFlash(4096, 4096, 256))
	if err != nil {
		t.Fatalf("OpenFlashStore() error = %v", err)
	}
	if _, err := s.Get("tare"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want %v", err, ErrNotFound)
	}
}

func TestFlashPersistsAcrossReopen(t *testing.T) {
	dev := newNORFlash(8192, 4096, 256)
	s, err := OpenFlashStore(dev)
	if err != nil {
		t.Fatal(err)
	}
	// Overwriting clears and sets bits, which only works after an erase.
	if err := s.Set("tare", 0x0f0f0f0f); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set("tare", 0x70f0f0f0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if dev.erases != 2 {
		t.Errorf("erases = %d, want 2", dev.erases)
	}

	reopened, err := OpenFlashStore(dev)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Get("tare")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got != 0x70f0f0f0 {
		t.Errorf("Get() = %#x, want %#x", got, 0x70f0f0f0)
	}
}

func TestFlashSpansEraseBlocks(t *testing.T) {
	// 640-byte page over 256-byte erase blocks needs three blocks.
	dev := newNORFlash(1024, 256, 4)
	s, err := OpenFlashStore(dev)
	if err != nil {
		t.Fatal(err)
	}
	if s.blocks != 3 {
		t.Errorf("blocks = %d, want 3", s.blocks)
	}
	if err := s.Set("tare", 32640); err != nil {
		t.Fatal(err)
	}
	for i := 3 * 256; i < 1024; i++ {
		if dev.mem[i] != 0xFF {
			t.Fatalf("byte %d outside the page was programmed", i)
		}
	}
}

func TestFlashTooSmall(t *testing.T) {
	if _, err := OpenFlashStore(newNORFlash(512, 512, 1)); err == nil {
		t.Error("OpenFlashStore() on a 512-byte device should fail")
	}
}
