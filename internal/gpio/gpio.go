// Package gpio abstracts the handful of digital lines the emulator drives:
// the HX711 clock and data lines, the tare button and the status LED.
package gpio

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrUnsupported is returned when the platform has no GPIO access.
var ErrUnsupported = errors.New("gpio: not available on this platform")

// Input is a digital input line.
type Input interface {
	// Get returns true when the line is high.
	Get() bool
}

// Output is a digital output line.
type Output interface {
	High()
	Low()
}

// Pull selects the input bias.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// LED drives an indicator through an Output.
type LED struct {
	out Output
}

func NewLED(out Output) *LED {
	return &LED{out: out}
}

// Set turns the indicator on or off.
func (l *LED) Set(on bool) {
	if on {
		l.out.High()
	} else {
		l.out.Low()
	}
}

// LogLED is an indicator for hosts without a spare output line. It logs
// state changes instead of lighting anything.
type LogLED struct {
	mu sync.Mutex
	on bool
}

func (l *LogLED) Set(on bool) {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	l.mu.Unlock()
	if changed {
		slog.Info("[LED] indicator", "on", on)
	}
}

// On reports the last state set.
func (l *LogLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
