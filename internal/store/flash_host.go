//go:build !tinygo

package store

import "errors"

func openFlash() (*FlashStore, error) {
	return nil, errors.New("store: flash backend needs a tinygo build; use file or mmap")
}
