package hotkey

import (
	"slices"
	"testing"
)

type recordingSink struct {
	levels []bool
}

func (r *recordingSink) Set(pressed bool) {
	r.levels = append(r.levels, pressed)
}

func TestHoldMode(t *testing.T) {
	sink := &recordingSink{}
	l := NewListener([]string{"ctrl", "shift", "t"}, "hold", sink)

	l.keyDown()
	l.keyUp()
	l.keyDown()

	want := []bool{true, false, true}
	if !slices.Equal(sink.levels, want) {
		t.Errorf("levels = %v, want %v", sink.levels, want)
	}
}

func TestToggleMode(t *testing.T) {
	sink := &recordingSink{}
	l := NewListener([]string{"t"}, "toggle", sink)

	l.keyDown()
	l.keyUp()
	l.keyDown()
	l.keyUp()

	want := []bool{true, false}
	if !slices.Equal(sink.levels, want) {
		t.Errorf("levels = %v, want %v", sink.levels, want)
	}
}

func TestUnknownModeActsAsHold(t *testing.T) {
	sink := &recordingSink{}
	l := NewListener([]string{"t"}, "", sink)
	l.keyDown()
	l.keyUp()
	want := []bool{true, false}
	if !slices.Equal(sink.levels, want) {
		t.Errorf("levels = %v, want %v", sink.levels, want)
	}
}

func TestStopIdempotent(t *testing.T) {
	l := NewListener(nil, "hold", &recordingSink{})
	l.Stop()
	l.Stop()
	select {
	case <-l.done:
	default:
		t.Error("done channel not closed after Stop")
	}
}
