// Command progressor-emu turns a load cell and an HX711 amplifier into a
// Progressor-compatible BLE force sensor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/chaz8081/progressor-emu/internal/ble"
	"github.com/chaz8081/progressor-emu/internal/button"
	"github.com/chaz8081/progressor-emu/internal/calibration"
	"github.com/chaz8081/progressor-emu/internal/config"
	"github.com/chaz8081/progressor-emu/internal/gpio"
	"github.com/chaz8081/progressor-emu/internal/loadcell"
	"github.com/chaz8081/progressor-emu/internal/progressor"
	"github.com/chaz8081/progressor-emu/internal/store"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/progressor-emu/config.yaml)")
	initConfig := flag.Bool("init-config", false, "write the default config file and exit")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("init-config: %v", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		} else {
			fmt.Printf("Wrote default config to %s\n", path)
		}
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	closeLog := setupLogger(cfg)
	printBanner(cfg)

	ctx, stop := notifyContext()
	err = run(ctx, cfg)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}

	slog.Info("Goodbye!")
	closeLog()
	// Exit directly to avoid gohook's C cleanup crash.
	// The OS reclaims the event hook on process exit.
	os.Exit(0)
}

// run wires the emulator together and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	nvs, err := store.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer nvs.Close()

	keeper := calibration.NewKeeper(nvs, cfg.Device.Model)
	rec := keeper.Load()

	raw, err := openSensor(cfg, rec.Scale)
	if err != nil {
		return fmt.Errorf("opening sensor: %w", err)
	}
	scale := loadcell.NewScale(raw, rec.Scale)
	if err := scale.Tare(); err != nil {
		slog.Warn("[SENSOR] startup tare failed, zero point unset", "error", err)
	}
	slog.Info("[SENSOR] ready", "backend", cfg.Sensor.Backend, "scale", rec.Scale, "source", rec.Source, "offset", scale.Offset())

	transport := ble.NewPeripheral()
	device := progressor.New(transport, scale, progressor.Options{
		Identity: progressor.Identity{
			Version:           cfg.Device.Version,
			ErrorInfo:         cfg.Device.ErrorInfo,
			BatteryMillivolts: cfg.Device.BatteryMV,
			DeviceID:          cfg.Device.DeviceID,
		},
		TickPeriod: cfg.Stream.Period,
	})
	if err := transport.Enable(device.HandleEvent); err != nil {
		return err
	}
	if err := transport.Serve(cfg.Device.Name); err != nil {
		return err
	}

	line := button.NewLine()
	stopButton, err := startButton(cfg, line)
	if err != nil {
		return fmt.Errorf("starting button: %w", err)
	}
	defer stopButton()

	if cfg.Button.Backend != "none" {
		wf := calibration.New(line, openIndicator(cfg), scale, keeper, device, calibration.Options{
			HoldDuration:    cfg.Calibration.Hold,
			SettleDelay:     cfg.Calibration.Settle,
			Timeout:         cfg.Calibration.Timeout,
			ReferenceWeight: cfg.Calibration.ReferenceWeight,
			Samples:         cfg.Calibration.Samples,
			FailBlinks:      3,
		})
		go func() {
			if err := wf.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("[CAL] workflow stopped", "error", err)
			}
		}()
	}

	slog.Info("Ready! Advertising as " + cfg.Device.Name + ". Ctrl+C to quit.")
	return device.Run(ctx)
}

// openSensor returns the raw count source for the configured backend.
func openSensor(cfg *config.Config, factor int32) (loadcell.Reader, error) {
	switch cfg.Sensor.Backend {
	case "hx711":
		clock, err := gpio.OpenOutput(cfg.Pins.Clock)
		if err != nil {
			return nil, err
		}
		data, err := gpio.OpenInput(cfg.Pins.Data, gpio.PullDown)
		if err != nil {
			return nil, err
		}
		h := loadcell.NewHX711(clock, data)
		h.SetGain(gainFor(cfg.Sensor.Gain))
		h.ReadyTimeout = cfg.Sensor.ReadyTimeout
		return h, nil
	case "serial":
		return openSerial(cfg.Sensor.Serial)
	case "sim":
		sim := loadcell.NewSimulated(0, float64(factor))
		sim.SetNoise(factor / 1000)
		return sim, nil
	default:
		return nil, fmt.Errorf("unknown sensor backend %q", cfg.Sensor.Backend)
	}
}

func gainFor(g int) loadcell.Gain {
	switch g {
	case 64:
		return loadcell.GainA64
	case 32:
		return loadcell.GainB32
	default:
		return loadcell.GainA128
	}
}

// startButton connects the configured tare button to line. The returned
// func releases it.
func startButton(cfg *config.Config, line *button.Line) (func(), error) {
	switch cfg.Button.Backend {
	case "gpio":
		in, err := gpio.OpenInput(cfg.Pins.Tare, gpio.PullUp)
		if err != nil {
			return nil, err
		}
		// Active low: pressed pulls the line to ground.
		line.Set(!in.Get())
		if err := gpio.OnChange(cfg.Pins.Tare, func(high bool) { line.Set(!high) }); err != nil {
			return nil, err
		}
		return func() {}, nil
	case "hotkey":
		return startHotkey(cfg.Button, line)
	default:
		return func() {}, nil
	}
}

// openIndicator returns the status LED, or a logging stand-in when the
// platform has no GPIO.
func openIndicator(cfg *config.Config) calibration.Indicator {
	out, err := gpio.OpenOutput(cfg.Pins.LED)
	if err != nil {
		slog.Debug("[LED] no GPIO, logging indicator changes instead", "error", err)
		return &gpio.LogLED{}
	}
	return gpio.NewLED(out)
}

// setupLogger installs the default slog handler. The returned func closes
// the log file, if any.
func setupLogger(cfg *config.Config) func() {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)}

	closer := func() {}
	var handler slog.Handler
	if cfg.LogFile != "" && cfg.LogFile != "-" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stderr: %v\n", err)
			handler = slog.NewTextHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
			closer = func() { f.Close() }
		}
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closer
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== progressor-emu ===")
	fmt.Printf("  Name:    %s (%s)\n", cfg.Device.Name, cfg.Device.Model)
	fmt.Printf("  Sensor:  %s\n", cfg.Sensor.Backend)
	fmt.Printf("  Store:   %s %s\n", cfg.Store.Backend, cfg.Store.Path)
	if cfg.Button.Backend == "hotkey" {
		fmt.Printf("  Button:  hotkey %s (%s mode)\n", strings.Join(cfg.Button.Keys, "+"), cfg.Button.Mode)
	} else {
		fmt.Printf("  Button:  %s\n", cfg.Button.Backend)
	}
	fmt.Printf("  Stream:  every %s\n", cfg.Stream.Period)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("======================")
}
