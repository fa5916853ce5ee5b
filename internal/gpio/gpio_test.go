package gpio

import "testing"

type fakeOutput struct {
	high bool
	sets int
}

func (o *fakeOutput) High() { o.high = true; o.sets++ }
func (o *fakeOutput) Low()  { o.high = false; o.sets++ }

func TestLEDSet(t *testing.T) {
	out := &fakeOutput{}
	led := NewLED(out)

	led.Set(true)
	if !out.high {
		t.Error("Set(true) should drive the line high")
	}
	led.Set(false)
	if out.high {
		t.Error("Set(false) should drive the line low")
	}
	if out.sets != 2 {
		t.Errorf("sets = %d, want 2", out.sets)
	}
}

func TestLogLEDTracksState(t *testing.T) {
	var led LogLED
	if led.On() {
		t.Fatal("LogLED should start off")
	}
	led.Set(true)
	led.Set(true)
	if !led.On() {
		t.Error("On() = false after Set(true)")
	}
	led.Set(false)
	if led.On() {
		t.Error("On() = true after Set(false)")
	}
}
