package loadcell

import (
	"time"

	"github.com/chaz8081/progressor-emu/internal/gpio"
)

// Gain selects the HX711 input channel and amplification for the next
// conversion, encoded as the number of clock pulses per read.
type Gain int

const (
	GainA128 Gain = 25
	GainB32  Gain = 26
	GainA64  Gain = 27
)

const (
	defaultReadyTimeout = 15 * time.Millisecond
	readyPollInterval   = 100 * time.Microsecond
)

// HX711 bit-bangs the two-wire HX711 interface. DOUT going low signals a
// conversion is ready; each clock pulse then shifts one bit out, MSB first.
type HX711 struct {
	clock gpio.Output
	data  gpio.Input
	gain  Gain

	// ReadyTimeout bounds how long ReadRaw waits for a conversion. At the
	// amplifier's 80 Hz rate a conversion is ready within ~12.5ms.
	ReadyTimeout time.Duration
}

// NewHX711 creates a driver on the given lines with gain 128 on channel A.
func NewHX711(clock gpio.Output, data gpio.Input) *HX711 {
	clock.Low()
	return &HX711{
		clock:        clock,
		data:         data,
		gain:         GainA128,
		ReadyTimeout: defaultReadyTimeout,
	}
}

// SetGain changes the gain used from the next conversion on.
func (h *HX711) SetGain(g Gain) {
	h.gain = g
}

func (h *HX711) ready() bool {
	return !h.data.Get()
}

// ReadRaw waits for a conversion and returns it as a signed 24-bit value.
func (h *HX711) ReadRaw() (int32, error) {
	deadline := time.Now().Add(h.ReadyTimeout)
	for !h.ready() {
		if time.Now().After(deadline) {
			return 0, ErrNotReady
		}
		time.Sleep(readyPollInterval)
	}

	var v uint32
	for i := 0; i < 24; i++ {
		h.clock.High()
		bit := h.data.Get()
		h.clock.Low()
		v <<= 1
		if bit {
			v |= 1
		}
	}
	// Extra pulses latch the gain for the next conversion.
	for i := 24; i < int(h.gain); i++ {
		h.clock.High()
		h.clock.Low()
	}
	return signExtend24(v), nil
}

func signExtend24(v uint32) int32 {
	if v&0x800000 != 0 {
		v |= 0xff000000
	}
	return int32(v)
}
