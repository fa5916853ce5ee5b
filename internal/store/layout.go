package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Page layout, shared by every backend:
//
//	slot i at offset i*SlotSize, SlotCount slots, PageSize bytes total
//	[0]      marker (slotUsed when occupied)
//	[1]      key length
//	[2:18]   key, zero padded
//	[18:22]  value, int32 little-endian
//	[22:24]  reserved, zero
//	[24:40]  BLAKE2b-128 digest of bytes [0:24]
const (
	SlotSize  = 40
	SlotCount = 16
	PageSize  = SlotSize * SlotCount

	// MaxKeyLen is the longest key a slot can hold.
	MaxKeyLen = 16

	slotUsed    = 0xA5
	headerLen   = 24
	digestLen   = 16
	keyOffset   = 2
	valueOffset = 18
)

// page is a view over PageSize bytes of backing memory.
type page []byte

func (p page) slot(i int) []byte {
	return p[i*SlotSize : (i+1)*SlotSize]
}

// find returns the slot holding key, or the first free slot when key is
// absent (found == false). free is -1 when the page is full.
func (p page) find(key string) (idx int, found bool, free int) {
	free = -1
	for i := 0; i < SlotCount; i++ {
		s := p.slot(i)
		if s[0] != slotUsed {
			if free < 0 {
				free = i
			}
			continue
		}
		n := int(s[1])
		if n <= MaxKeyLen && bytes.Equal(s[keyOffset:keyOffset+n], []byte(key)) {
			return i, true, free
		}
	}
	return -1, false, free
}

func (p page) get(key string) (int32, error) {
	idx, found, _ := p.find(key)
	if !found {
		return 0, ErrNotFound
	}
	s := p.slot(idx)
	sum := digest(s[:headerLen])
	if !bytes.Equal(sum, s[headerLen:headerLen+digestLen]) {
		return 0, fmt.Errorf("%w: key %q", ErrCorrupt, key)
	}
	return int32(binary.LittleEndian.Uint32(s[valueOffset : valueOffset+4])), nil
}

func (p page) set(key string, v int32) error {
	if key == "" || len(key) > MaxKeyLen {
		return fmt.Errorf("store: key %q must be 1-%d bytes", key, MaxKeyLen)
	}
	idx, found, free := p.find(key)
	if !found {
		if free < 0 {
			return ErrFull
		}
		idx = free
	}
	s := p.slot(idx)
	clear(s)
	s[0] = slotUsed
	s[1] = byte(len(key))
	copy(s[keyOffset:], key)
	binary.LittleEndian.PutUint32(s[valueOffset:valueOffset+4], uint32(v))
	copy(s[headerLen:], digest(s[:headerLen]))
	return nil
}

func digest(b []byte) []byte {
	h, err := blake2b.New(digestLen, nil)
	if err != nil {
		// Only possible for an invalid size, which digestLen is not.
		panic(err)
	}
	h.Write(b)
	return h.Sum(nil)
}
