//go:build tinygo

package gpio

import "machine"

// Pin wraps a microcontroller pin.
type Pin struct {
	pin machine.Pin
}

func (p Pin) Get() bool { return p.pin.Get() }
func (p Pin) High()     { p.pin.High() }
func (p Pin) Low()      { p.pin.Low() }

// OpenOutput configures pin number n as an output, initially low.
func OpenOutput(n int) (Output, error) {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return Pin{pin: p}, nil
}

// OpenInput configures pin number n as an input with the given bias.
func OpenInput(n int, pull Pull) (Input, error) {
	p := machine.Pin(n)
	mode := machine.PinInput
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	}
	p.Configure(machine.PinConfig{Mode: mode})
	return Pin{pin: p}, nil
}

// OnChange registers fn to run from interrupt context on every edge of
// input pin n, with the level read right after the edge. fn must not
// block or allocate.
func OnChange(n int, fn func(high bool)) error {
	p := machine.Pin(n)
	return p.SetInterrupt(machine.PinToggle, func(pin machine.Pin) {
		fn(pin.Get())
	})
}
