package progressor

import (
	"context"
	"log/slog"

	"github.com/chaz8081/progressor-emu/internal/ble/protocol"
)

// streamState is the weight session requested by the central.
type streamState struct {
	enabled bool
	begin   uint32 // clock value at START_WEIGHT; meaningful only while enabled
	gen     uint32 // bumped on every start and stop so late samples can be told apart
}

func (s *streamState) start(now uint32) {
	s.enabled = true
	s.begin = now
	s.gen++
}

func (s *streamState) stop() {
	s.enabled = false
	s.begin = 0
	s.gen++
}

// sampleRequest asks the sampler for one reading, optionally taring first.
type sampleRequest struct {
	gen  uint32
	tare bool
}

type sampleResult struct {
	gen    uint32
	weight float32
	err    error
}

// tick decides whether this period needs a sample. It runs on the owner
// goroutine and never touches the sensor; a pending tare is handed over
// with the request so the sample reflects the new zero.
func (d *Device) tick() (sampleRequest, bool) {
	if !d.stream.enabled || d.suspended.Load() || d.sampling {
		return sampleRequest{}, false
	}
	req := sampleRequest{gen: d.stream.gen, tare: d.tareRequested}
	d.tareRequested = false
	d.sampling = true
	return req, true
}

// sample performs the sensor I/O for req. It may block for several
// conversion periods, so Run calls it off the owner goroutine.
func (d *Device) sample(req sampleRequest) sampleResult {
	if req.tare {
		if err := d.sensor.Tare(); err != nil {
			slog.Warn("[STREAM] tare failed", "error", err)
		}
	}
	weight, err := d.sensor.ReadCalibrated()
	return sampleResult{gen: req.gen, weight: weight, err: err}
}

// deliver notifies a finished sample. Samples from a session that has
// since stopped or restarted are dropped. Sensor faults skip the tick.
func (d *Device) deliver(res sampleResult) {
	d.sampling = false
	if res.err != nil {
		slog.Debug("[STREAM] no sample this tick", "error", res.err)
		return
	}
	if !d.stream.enabled || res.gen != d.stream.gen || d.suspended.Load() {
		return
	}
	elapsed := d.opts.Clock.Micros() - d.stream.begin

	d.notify(protocol.EncodeSample(res.weight, elapsed))
}

// runSampler serves sample requests until ctx is cancelled. At most one
// request is in flight, so both channels only ever hold a single value.
func (d *Device) runSampler(ctx context.Context, requests <-chan sampleRequest, results chan<- sampleResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			res := d.sample(req)
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}
