// Package button tracks the level of the physical tare button and delivers
// its press edges to a single consumer.
package button

import "sync/atomic"

// Line is the debounced state of one push button. Set is called from an
// interrupt handler or key hook and must never block.
type Line struct {
	level atomic.Bool
	edges chan struct{}
}

// NewLine creates a released button.
func NewLine() *Line {
	return &Line{edges: make(chan struct{}, 1)}
}

// Set records the current level. A released-to-pressed transition posts
// one edge; if an edge is already pending the new one is coalesced.
func (l *Line) Set(pressed bool) {
	prev := l.level.Swap(pressed)
	if pressed && !prev {
		select {
		case l.edges <- struct{}{}:
		default:
		}
	}
}

// Pressed reports whether the button is currently held.
func (l *Line) Pressed() bool {
	return l.level.Load()
}

// Edges delivers one value per press.
func (l *Line) Edges() <-chan struct{} {
	return l.edges
}
