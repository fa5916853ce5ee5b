//go:build tinygo

package store

import "machine"

// openFlash returns the store kept in the board's flash data area, the
// region after the program image that tinygo exposes as machine.Flash.
func openFlash() (*FlashStore, error) {
	return OpenFlashStore(machine.Flash)
}
