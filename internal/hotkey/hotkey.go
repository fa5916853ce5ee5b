// Package hotkey drives the tare button from a global keyboard shortcut
// using gohook, so the calibration workflow can run on a desktop host
// without a GPIO button wired up.
//
// In "hold" mode the button is held for as long as the key combo is down.
// In "toggle" mode each press flips the button level, which helps on
// systems that drop KeyUp events.
package hotkey

import (
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// LevelSink receives the emulated button level. Set must not block.
type LevelSink interface {
	Set(pressed bool)
}

// Listener maps a global key combo onto a LevelSink.
type Listener struct {
	keys []string
	mode string // "hold" or "toggle"
	sink LevelSink

	mu      sync.Mutex
	latched bool

	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given key combo and mode.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "t"]).
// mode must be "hold" or "toggle".
func NewListener(keys []string, mode string, sink LevelSink) *Listener {
	return &Listener{
		keys: keys,
		mode: mode,
		sink: sink,
		done: make(chan struct{}),
	}
}

// keyDown handles the combo being pressed.
func (l *Listener) keyDown() {
	if l.mode != "toggle" {
		l.sink.Set(true)
		return
	}
	l.mu.Lock()
	l.latched = !l.latched
	level := l.latched
	l.mu.Unlock()
	l.sink.Set(level)
}

// keyUp handles the combo being released. Toggle mode ignores it.
func (l *Listener) keyUp() {
	if l.mode == "toggle" {
		return
	}
	l.sink.Set(false)
}

// Start begins listening for the global hotkey.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	hook.Register(hook.KeyDown, l.keys, func(e hook.Event) {
		l.keyDown()
	})
	hook.Register(hook.KeyUp, l.keys, func(e hook.Event) {
		l.keyUp()
	})

	slog.Info("[BUTTON] hotkey listener started", "keys", l.keys, "mode", l.mode)
	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)

	// Never leave the emulated button stuck down.
	l.sink.Set(false)
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
