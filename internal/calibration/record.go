// Package calibration owns the load cell's scale factor: the compiled-in
// per-model defaults, the persisted override, and the button-driven
// two-stage workflow that measures a new one.
package calibration

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/chaz8081/progressor-emu/internal/store"
)

// Key is the store record holding the calibrated scale factor.
const Key = "tare"

// DefaultModel is used when the configured model has no table entry.
const DefaultModel = "WH-C07"

// defaultScales maps a host crane-scale model to the counts-per-kilogram
// of the load cell it ships with.
var defaultScales = map[string]int32{
	"WH-C07":  32640,
	"WH-C100": 30682,
}

// DefaultScale returns the compiled-in scale for model. Unknown models get
// the DefaultModel scale and ok=false.
func DefaultScale(model string) (scale int32, ok bool) {
	if s, found := defaultScales[model]; found {
		return s, true
	}
	return defaultScales[DefaultModel], false
}

// Models returns the supported model names, sorted.
func Models() []string {
	models := make([]string, 0, len(defaultScales))
	for m := range defaultScales {
		models = append(models, m)
	}
	slices.Sort(models)
	return models
}

// Source says where a Record's scale came from.
type Source int

const (
	SourceDefault Source = iota
	SourceStored
)

func (s Source) String() string {
	if s == SourceStored {
		return "stored"
	}
	return "default"
}

// Record is the active calibration.
type Record struct {
	Scale  int32
	Source Source
}

// Store is the subset of store.Store the Keeper needs.
type Store interface {
	Get(key string) (int32, error)
	Set(key string, v int32) error
}

// Keeper reads and writes the persisted calibration for one device model.
type Keeper struct {
	store Store
	model string
}

// NewKeeper creates a Keeper backed by s.
func NewKeeper(s Store, model string) *Keeper {
	return &Keeper{store: s, model: model}
}

// Load returns the persisted scale, or the model default when nothing
// usable is stored. It never fails: storage errors are logged and fall
// back to the default.
func (k *Keeper) Load() Record {
	v, err := k.store.Get(Key)
	switch {
	case err == nil && v != 0:
		slog.Info("[CAL] loaded stored calibration", "scale", v)
		return Record{Scale: v, Source: SourceStored}
	case err == nil:
		slog.Warn("[CAL] stored scale is zero, ignoring")
	case errors.Is(err, store.ErrNotFound):
		slog.Debug("[CAL] no stored calibration")
	default:
		slog.Warn("[CAL] reading stored calibration failed", "error", err)
	}

	scale, ok := DefaultScale(k.model)
	if !ok {
		slog.Warn("[CAL] unknown device model, using default", "model", k.model, "fallback", DefaultModel, "supported", Models())
	}
	slog.Info("[CAL] using default calibration", "model", k.model, "scale", scale)
	return Record{Scale: scale, Source: SourceDefault}
}

// SaveScale persists a new scale factor.
func (k *Keeper) SaveScale(scale int32) error {
	if scale == 0 {
		return ErrInvalidScale
	}
	if err := k.store.Set(Key, scale); err != nil {
		return fmt.Errorf("calibration: save scale: %w", err)
	}
	slog.Info("[CAL] calibration saved", "scale", scale)
	return nil
}
