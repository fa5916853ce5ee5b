// Package progressor implements the device side of the Progressor force
// sensor protocol: a single connection slot, the control-point command
// dispatcher and the periodic weight streamer.
//
// All protocol state is owned by the goroutine running Device.Run. BLE
// callbacks hand events over through HandleEvent, and the calibration
// workflow pauses sampling with SuspendStreaming/ResumeStreaming; nothing
// else touches the connection handle, streaming state or tare request.
package progressor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaz8081/progressor-emu/internal/ble"
)

// Sensor is the calibrated load cell as seen by the streamer.
type Sensor interface {
	Tare() error
	ReadCalibrated() (float32, error)
}

// Clock returns a free-running microsecond counter. It wraps at 2^32;
// elapsed times are computed with modular subtraction.
type Clock interface {
	Micros() uint32
}

type monotonicClock struct {
	epoch time.Time
}

// NewClock returns a Clock based on the runtime's monotonic time.
func NewClock() Clock {
	return monotonicClock{epoch: time.Now()}
}

func (c monotonicClock) Micros() uint32 {
	return uint32(time.Since(c.epoch).Microseconds())
}

// Identity holds the values reported by the query commands.
type Identity struct {
	Version           string
	ErrorInfo         string
	BatteryMillivolts uint32
	DeviceID          uint64
}

// DefaultIdentity returns the identity reported by stock emulator firmware.
func DefaultIdentity() Identity {
	return Identity{
		Version:           "1.2.3.4",
		ErrorInfo:         "No crash",
		BatteryMillivolts: 3000,
		DeviceID:          43,
	}
}

// Options configures a Device.
type Options struct {
	Identity   Identity
	TickPeriod time.Duration // streamer period (default 10ms)
	Clock      Clock
	QueueSize  int // max pending BLE events
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Identity:   DefaultIdentity(),
		TickPeriod: 10 * time.Millisecond,
		Clock:      NewClock(),
		QueueSize:  32,
	}
}

// Device is an emulated Progressor.
type Device struct {
	transport ble.Transport
	sensor    Sensor
	opts      Options

	events    chan ble.Event
	done      chan struct{}
	doneOnce  sync.Once
	suspended atomic.Bool

	// Owned by Run.
	conn          ble.Handle
	connected     bool
	stream        streamState
	tareRequested bool
	sampling      bool // a sample request is with the sampler
}

// New creates a Device. Zero-valued Options fields take their defaults.
func New(transport ble.Transport, sensor Sensor, opts Options) *Device {
	def := DefaultOptions()
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = def.TickPeriod
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	return &Device{
		transport: transport,
		sensor:    sensor,
		opts:      opts,
		events:    make(chan ble.Event, opts.QueueSize),
		done:      make(chan struct{}),
	}
}

// HandleEvent queues a BLE event for the device loop. It is meant to be
// passed to ble.Transport.Enable.
//
// Writes never block: if the queue is full the command is dropped.
// Connection changes wait for queue space since losing one would desync
// the connection slot. Nothing blocks once Run has returned.
func (d *Device) HandleEvent(ev ble.Event) {
	if ev.Type == ble.EventWrite {
		select {
		case d.events <- ev:
		default:
			slog.Warn("[BLE] event queue full, dropping write", "data", ev.Data)
		}
		return
	}
	select {
	case d.events <- ev:
	case <-d.done:
	}
}

// SuspendStreaming pauses sample emission without changing the streaming
// state requested by the central. Safe to call from any goroutine.
func (d *Device) SuspendStreaming() {
	if !d.suspended.Swap(true) {
		slog.Info("[STREAM] suspended")
	}
}

// ResumeStreaming undoes SuspendStreaming.
func (d *Device) ResumeStreaming() {
	if d.suspended.Swap(false) {
		slog.Info("[STREAM] resumed")
	}
}

// Run processes BLE events and streamer ticks until ctx is cancelled.
// Sensor I/O happens on a separate sampler goroutine so a slow tare or a
// stalled amplifier never delays connection handling or command replies.
func (d *Device) Run(ctx context.Context) error {
	defer d.doneOnce.Do(func() { close(d.done) })

	samplerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	requests := make(chan sampleRequest, 1)
	results := make(chan sampleResult, 1)
	go d.runSampler(samplerCtx, requests, results)

	ticker := time.NewTicker(d.opts.TickPeriod)
	defer ticker.Stop()

	slog.Info("[BLE] device loop started", "tick", d.opts.TickPeriod)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.events:
			d.handle(ev)
		case <-ticker.C:
			if req, ok := d.tick(); ok {
				requests <- req
			}
		case res := <-results:
			d.deliver(res)
		}
	}
}

func (d *Device) handle(ev ble.Event) {
	switch ev.Type {
	case ble.EventConnect:
		d.onConnect(ev.Conn)
	case ble.EventDisconnect:
		d.onDisconnect(ev.Conn)
	case ble.EventWrite:
		d.dispatch(ev.Data)
	default:
		slog.Debug("[BLE] ignoring event", "type", ev.Type)
	}
}

// notify sends data to the tracked central, if any. Delivery is best
// effort: failures are logged and dropped.
func (d *Device) notify(data []byte) {
	if !d.connected {
		return
	}
	if err := d.transport.Notify(d.conn, data); err != nil {
		slog.Warn("[BLE] notify failed", "conn", d.conn, "error", err)
	}
}
