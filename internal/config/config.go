package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NamePrefix is required by Progressor apps when scanning for devices.
const NamePrefix = "Progressor"

// Config holds all application configuration.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Pins        PinsConfig        `yaml:"pins"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Store       StoreConfig       `yaml:"store"`
	Button      ButtonConfig      `yaml:"button"`
	Stream      StreamConfig      `yaml:"stream"`
	Calibration CalibrationConfig `yaml:"calibration"`
	LogLevel    string            `yaml:"log_level"`
	LogFile     string            `yaml:"log_file"`
}

// DeviceConfig holds the advertised identity.
type DeviceConfig struct {
	Name      string `yaml:"name"`
	Model     string `yaml:"model"` // selects the default scale, e.g. "WH-C07"
	Version   string `yaml:"version"`
	ErrorInfo string `yaml:"error_info"`
	BatteryMV uint32 `yaml:"battery_mv"`
	DeviceID  uint64 `yaml:"device_id"`
}

// PinsConfig holds GPIO line numbers. Only used by tinygo builds.
type PinsConfig struct {
	Clock int `yaml:"clock"`
	Data  int `yaml:"data"`
	LED   int `yaml:"led"`
	Tare  int `yaml:"tare"`
}

// SensorConfig selects where raw load-cell counts come from.
type SensorConfig struct {
	Backend      string        `yaml:"backend"` // "hx711", "serial" or "sim"
	Gain         int           `yaml:"gain"`    // 128, 64 or 32
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	Serial       SerialConfig  `yaml:"serial"`
}

// SerialConfig holds settings for the USB-serial HX711 bridge.
type SerialConfig struct {
	Address  string        `yaml:"address"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"`
}

// StoreConfig holds settings for the emulated non-volatile storage.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "file", "mmap" or "memory"
	Path    string `yaml:"path"`
}

// ButtonConfig selects how the tare button is read.
type ButtonConfig struct {
	Backend string   `yaml:"backend"` // "gpio", "hotkey" or "none"
	Keys    []string `yaml:"keys"`
	Mode    string   `yaml:"mode"` // "hold" or "toggle", hotkey backend only
}

// StreamConfig holds weight streaming settings.
type StreamConfig struct {
	Period time.Duration `yaml:"period"`
}

// CalibrationConfig holds the tare/calibration workflow settings.
type CalibrationConfig struct {
	ReferenceWeight float64       `yaml:"reference_weight"`
	Hold            time.Duration `yaml:"hold"`
	Settle          time.Duration `yaml:"settle"`
	Timeout         time.Duration `yaml:"timeout"` // 0 waits forever
	Samples         int           `yaml:"samples"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "progressor-emu")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values for the build
// target: host builds simulate the sensor and use a keyboard button,
// tinygo builds drive the HX711 and tare pin and keep calibration in flash.
func Default() *Config {
	cfg := &Config{
		Device: DeviceConfig{
			Name:      "Progressor_BB",
			Model:     "WH-C07",
			Version:   "1.2.3.4",
			ErrorInfo: "No crash",
			BatteryMV: 3000,
			DeviceID:  43,
		},
		Pins: PinsConfig{
			Clock: 5,
			Data:  6,
			LED:   4,
			Tare:  9,
		},
		Sensor: SensorConfig{
			Backend:      "sim",
			Gain:         128,
			ReadyTimeout: 15 * time.Millisecond,
			Serial: SerialConfig{
				Address:  "/dev/ttyUSB0",
				BaudRate: 115200,
				Timeout:  500 * time.Millisecond,
			},
		},
		Button: ButtonConfig{
			Backend: "hotkey",
			Keys:    []string{"ctrl", "shift", "t"},
			Mode:    "hold",
		},
		Stream: StreamConfig{
			Period: 10 * time.Millisecond,
		},
		Calibration: CalibrationConfig{
			ReferenceWeight: 5,
			Hold:            time.Second,
			Settle:          time.Second,
			Timeout:         time.Minute,
			Samples:         10,
		},
		LogLevel: "info",
	}
	platformDefaults(cfg)
	return cfg
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in store.path and log_file is expanded to the
// user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Store.Path = expandTilde(cfg.Store.Path)
	cfg.LogFile = expandTilde(cfg.LogFile)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Device.Name, NamePrefix) {
		return fmt.Errorf("device.name must start with %q, got %q", NamePrefix, c.Device.Name)
	}
	if c.Device.Model == "" {
		return errors.New("device.model must not be empty")
	}
	if len(c.Device.Version) > 255 || len(c.Device.ErrorInfo) > 255 {
		return errors.New("device.version and device.error_info must be at most 255 bytes")
	}

	switch c.Sensor.Backend {
	case "hx711", "sim":
	case "serial":
		if c.Sensor.Serial.Address == "" {
			return errors.New("sensor.serial.address must not be empty")
		}
		if c.Sensor.Serial.BaudRate <= 0 {
			return errors.New("sensor.serial.baud_rate must be > 0")
		}
	default:
		return fmt.Errorf("sensor.backend must be \"hx711\", \"serial\" or \"sim\", got %q", c.Sensor.Backend)
	}

	switch c.Sensor.Gain {
	case 128, 64, 32:
	default:
		return fmt.Errorf("sensor.gain must be 128, 64 or 32, got %d", c.Sensor.Gain)
	}

	switch c.Store.Backend {
	case "memory", "flash":
	case "file", "mmap":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must not be empty for backend %q", c.Store.Backend)
		}
	default:
		return fmt.Errorf("store.backend must be \"file\", \"mmap\", \"flash\" or \"memory\", got %q", c.Store.Backend)
	}

	switch c.Button.Backend {
	case "gpio", "none":
	case "hotkey":
		if len(c.Button.Keys) == 0 {
			return errors.New("button.keys must not be empty")
		}
		switch c.Button.Mode {
		case "hold", "toggle":
		default:
			return fmt.Errorf("button.mode must be \"hold\" or \"toggle\", got %q", c.Button.Mode)
		}
	default:
		return fmt.Errorf("button.backend must be \"gpio\", \"hotkey\" or \"none\", got %q", c.Button.Backend)
	}

	if c.Stream.Period <= 0 {
		return errors.New("stream.period must be > 0")
	}

	if c.Calibration.ReferenceWeight <= 0 {
		return errors.New("calibration.reference_weight must be > 0")
	}
	if c.Calibration.Hold <= 0 {
		return errors.New("calibration.hold must be > 0")
	}
	if c.Calibration.Settle < 0 || c.Calibration.Timeout < 0 {
		return errors.New("calibration.settle and calibration.timeout must not be negative")
	}
	if c.Calibration.Samples <= 0 {
		return errors.New("calibration.samples must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a log_level value to a slog level. Unknown values
// map to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# progressor-emu configuration
# Sensor backends: hx711 (tinygo builds), serial, sim
# Store backends: file, mmap, memory
# Button backends: gpio (tinygo builds), hotkey, none
`

// WriteDefault writes the default config to DefaultConfigPath. If the file
// already exists it is left untouched and ("", nil) is returned.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
