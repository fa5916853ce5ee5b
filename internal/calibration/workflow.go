package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout is returned when the operator does not complete a step
	// within Options.Timeout.
	ErrTimeout = errors.New("calibration: operator timeout")
	// ErrInvalidScale is returned when the measured scale is zero or does
	// not fit in an int32.
	ErrInvalidScale = errors.New("calibration: invalid scale factor")
	// ErrPersist wraps a failure to save an otherwise valid calibration.
	ErrPersist = errors.New("calibration: scale applied but not saved")
)

// State is the workflow's position in the calibration sequence.
type State int32

const (
	StateIdle State = iota
	StateZeroing
	StateAwaitLoad
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateZeroing:
		return "ZEROING"
	case StateAwaitLoad:
		return "AWAIT_LOAD"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Button is the tare input. Pressed is the current level; Edges delivers
// one value per press.
type Button interface {
	Pressed() bool
	Edges() <-chan struct{}
}

// Indicator is the status LED.
type Indicator interface {
	Set(on bool)
}

// Sensor is the load cell as seen by the workflow.
type Sensor interface {
	ReadAverage(n int) (int32, error)
	SetScale(factor int32)
	SetOffset(offset int32)
}

// Persister saves a scale factor durably.
type Persister interface {
	SaveScale(scale int32) error
}

// Gate suspends weight streaming while the workflow owns the sensor.
type Gate interface {
	SuspendStreaming()
	ResumeStreaming()
}

// Options tunes the workflow timing.
type Options struct {
	// HoldDuration is how long the button must stay pressed to start.
	HoldDuration time.Duration
	// PollInterval is the button sampling period while idle.
	PollInterval time.Duration
	// SettleDelay is the pause in DONE before watching the button again.
	SettleDelay time.Duration
	// Timeout bounds each operator wait. Zero waits forever.
	Timeout time.Duration
	// ReferenceWeight is the known load, in output units, placed on the
	// cell for the second stage.
	ReferenceWeight float64
	// Samples is the number of raw reads averaged per capture.
	Samples int
	// FailBlinks is how many times the indicator blinks when the new
	// scale cannot be saved.
	FailBlinks    int
	BlinkInterval time.Duration
}

// DefaultOptions returns the reference timings: 1s hold, 1s settle, 5 kg
// reference weight.
func DefaultOptions() Options {
	return Options{
		HoldDuration:    time.Second,
		PollInterval:    10 * time.Millisecond,
		SettleDelay:     time.Second,
		Timeout:         time.Minute,
		ReferenceWeight: 5,
		Samples:         10,
		FailBlinks:      3,
		BlinkInterval:   200 * time.Millisecond,
	}
}

// Workflow runs the tare/calibration state machine.
type Workflow struct {
	button    Button
	led       Indicator
	sensor    Sensor
	persister Persister
	gate      Gate
	opts      Options

	state atomic.Int32
}

// New creates a Workflow. Zero-valued Options fields take their defaults,
// except Timeout, where zero means no timeout.
func New(button Button, led Indicator, sensor Sensor, persister Persister, gate Gate, opts Options) *Workflow {
	def := DefaultOptions()
	if opts.HoldDuration <= 0 {
		opts.HoldDuration = def.HoldDuration
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.ReferenceWeight <= 0 {
		opts.ReferenceWeight = def.ReferenceWeight
	}
	if opts.Samples <= 0 {
		opts.Samples = def.Samples
	}
	if opts.BlinkInterval <= 0 {
		opts.BlinkInterval = def.BlinkInterval
	}
	return &Workflow{
		button:    button,
		led:       led,
		sensor:    sensor,
		persister: persister,
		gate:      gate,
		opts:      opts,
	}
}

// State returns the current state. Safe to call from any goroutine.
func (w *Workflow) State() State {
	return State(w.state.Load())
}

func (w *Workflow) setState(s State) {
	prev := State(w.state.Swap(int32(s)))
	if prev != s {
		slog.Debug("[CAL] state", "from", prev, "to", s)
	}
}

// Run watches the button and runs a calibration cycle after every long
// press. It blocks until ctx is cancelled.
func (w *Workflow) Run(ctx context.Context) error {
	slog.Info("[CAL] workflow started", "hold", w.opts.HoldDuration, "reference_weight", w.opts.ReferenceWeight)
	for {
		w.setState(StateIdle)
		if err := w.waitHold(ctx); err != nil {
			return err
		}

		scale, err := w.cycle(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err == nil:
			slog.Info("[CAL] calibration complete", "scale", scale)
		case errors.Is(err, ErrPersist):
			slog.Error("[CAL] calibration not saved", "scale", scale, "error", err)
		default:
			slog.Warn("[CAL] calibration aborted", "error", err)
			continue
		}

		w.setState(StateDone)
		if err := sleep(ctx, w.opts.SettleDelay); err != nil {
			return err
		}
	}
}

// waitHold polls the button until it has been held continuously for
// HoldDuration. Shorter presses are discarded.
func (w *Workflow) waitHold(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	var since time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !w.button.Pressed() {
			if !since.IsZero() {
				slog.Debug("[CAL] short press discarded", "held", time.Since(since))
				since = time.Time{}
			}
			continue
		}
		if since.IsZero() {
			since = time.Now()
			continue
		}
		if time.Since(since) >= w.opts.HoldDuration {
			return nil
		}
	}
}

// cycle runs ZEROING and AWAIT_LOAD. It returns the new scale once it has
// been applied to the sensor; a non-nil error other than ErrPersist means
// nothing was changed.
func (w *Workflow) cycle(parent context.Context) (int32, error) {
	w.gate.SuspendStreaming()
	w.led.Set(true)
	w.setState(StateZeroing)
	defer func() {
		w.led.Set(false)
		w.gate.ResumeStreaming()
	}()

	ctx := parent
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, w.opts.Timeout)
		defer cancel()
	}
	slog.Info("[CAL] zeroing: release the button with the cell unloaded")

	if err := w.waitRelease(ctx); err != nil {
		return 0, waitErr(parent, err)
	}
	baseline, err := w.sensor.ReadAverage(w.opts.Samples)
	if err != nil {
		return 0, fmt.Errorf("calibration: baseline: %w", err)
	}

	// Presses seen before the baseline was taken must not arm the load step.
	drain(w.button.Edges())

	w.setState(StateAwaitLoad)
	slog.Info("[CAL] baseline captured, place the reference weight and press the button",
		"baseline", baseline, "reference_weight", w.opts.ReferenceWeight)

	select {
	case <-ctx.Done():
		return 0, waitErr(parent, ctx.Err())
	case <-w.button.Edges():
	}

	loaded, err := w.sensor.ReadAverage(w.opts.Samples)
	if err != nil {
		return 0, fmt.Errorf("calibration: loaded reading: %w", err)
	}
	scale, err := ComputeScale(baseline, loaded, w.opts.ReferenceWeight)
	if err != nil {
		return 0, err
	}

	w.sensor.SetScale(scale)
	w.sensor.SetOffset(baseline)

	if err := w.persister.SaveScale(scale); err != nil {
		w.blink(parent, w.opts.FailBlinks)
		return scale, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return scale, nil
}

// waitRelease polls until the button is released.
func (w *Workflow) waitRelease(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	for w.button.Pressed() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// blink flashes the indicator n times. The indicator is on when called.
func (w *Workflow) blink(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		w.led.Set(false)
		if sleep(ctx, w.opts.BlinkInterval) != nil {
			return
		}
		w.led.Set(true)
		if sleep(ctx, w.opts.BlinkInterval) != nil {
			return
		}
	}
}

// ComputeScale returns round((loaded-baseline)/reference).
func ComputeScale(baseline, loaded int32, reference float64) (int32, error) {
	if reference <= 0 || math.IsNaN(reference) || math.IsInf(reference, 0) {
		return 0, fmt.Errorf("%w: reference weight %v", ErrInvalidScale, reference)
	}
	s := math.Round(float64(int64(loaded)-int64(baseline)) / reference)
	if s == 0 || s > math.MaxInt32 || s < math.MinInt32 {
		return 0, fmt.Errorf("%w: %v (baseline %d, loaded %d)", ErrInvalidScale, s, baseline, loaded)
	}
	return int32(s), nil
}

// waitErr maps a timed-out operator wait to ErrTimeout, keeping parent
// cancellation as is.
func waitErr(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
