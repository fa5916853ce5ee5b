//go:build !tinygo

package gpio

// OpenOutput is unavailable on hosts; use the serial or simulated sensor
// backends and the hotkey button instead.
func OpenOutput(n int) (Output, error) {
	return nil, ErrUnsupported
}

func OpenInput(n int, pull Pull) (Input, error) {
	return nil, ErrUnsupported
}

func OnChange(n int, fn func(high bool)) error {
	return ErrUnsupported
}
