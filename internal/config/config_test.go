package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Device.Name != "Progressor_BB" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "Progressor_BB")
	}
	if cfg.Device.Model != "WH-C07" {
		t.Errorf("Device.Model = %q, want %q", cfg.Device.Model, "WH-C07")
	}
	if cfg.Device.Version != "1.2.3.4" {
		t.Errorf("Device.Version = %q, want %q", cfg.Device.Version, "1.2.3.4")
	}
	if cfg.Device.BatteryMV != 3000 || cfg.Device.DeviceID != 43 {
		t.Errorf("Device battery/id = %d/%d, want 3000/43", cfg.Device.BatteryMV, cfg.Device.DeviceID)
	}
	if cfg.Pins != (PinsConfig{Clock: 5, Data: 6, LED: 4, Tare: 9}) {
		t.Errorf("Pins = %+v", cfg.Pins)
	}
	if cfg.Stream.Period != 10*time.Millisecond {
		t.Errorf("Stream.Period = %v, want 10ms", cfg.Stream.Period)
	}
	if cfg.Calibration.ReferenceWeight != 5 || cfg.Calibration.Hold != time.Second {
		t.Errorf("Calibration = %+v", cfg.Calibration)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
device:
  name: Progressor_Garage
  model: WH-C100
  device_id: 1234
pins:
  tare: 12
sensor:
  backend: serial
  serial:
    address: /dev/ttyACM0
    baud_rate: 57600
    timeout: 250ms
store:
  backend: mmap
  path: /tmp/nvs.bin
button:
  backend: none
stream:
  period: 20ms
calibration:
  reference_weight: 10
  timeout: 0s
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "Progressor_Garage" || cfg.Device.Model != "WH-C100" {
		t.Errorf("Device = %+v", cfg.Device)
	}
	if cfg.Device.DeviceID != 1234 {
		t.Errorf("Device.DeviceID = %d, want 1234", cfg.Device.DeviceID)
	}
	// Unset fields keep their defaults.
	if cfg.Device.Version != "1.2.3.4" {
		t.Errorf("Device.Version = %q, want default", cfg.Device.Version)
	}
	if cfg.Pins.Tare != 12 || cfg.Pins.Clock != 5 {
		t.Errorf("Pins = %+v, want tare 12 and default clock", cfg.Pins)
	}
	if cfg.Sensor.Backend != "serial" {
		t.Errorf("Sensor.Backend = %q, want %q", cfg.Sensor.Backend, "serial")
	}
	want := SerialConfig{Address: "/dev/ttyACM0", BaudRate: 57600, Timeout: 250 * time.Millisecond}
	if cfg.Sensor.Serial != want {
		t.Errorf("Sensor.Serial = %+v, want %+v", cfg.Sensor.Serial, want)
	}
	if cfg.Store.Backend != "mmap" || cfg.Store.Path != "/tmp/nvs.bin" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Stream.Period != 20*time.Millisecond {
		t.Errorf("Stream.Period = %v, want 20ms", cfg.Stream.Period)
	}
	if cfg.Calibration.ReferenceWeight != 10 || cfg.Calibration.Timeout != 0 {
		t.Errorf("Calibration = %+v", cfg.Calibration)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
store:
  path: ~/nvs/test.bin
log_file: ~/logs/emu.log
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if expected := filepath.Join(home, "nvs/test.bin"); cfg.Store.Path != expected {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, expected)
	}
	if expected := filepath.Join(home, "logs/emu.log"); cfg.LogFile != expected {
		t.Errorf("LogFile = %q, want %q", cfg.LogFile, expected)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("stream:\n  period: [oops\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "name without product prefix",
			modify:  func(c *Config) { c.Device.Name = "MyScale" },
			wantErr: true,
		},
		{
			name:    "empty model",
			modify:  func(c *Config) { c.Device.Model = "" },
			wantErr: true,
		},
		{
			name:    "unknown model is allowed",
			modify:  func(c *Config) { c.Device.Model = "WH-C999" },
			wantErr: false,
		},
		{
			name:    "version too long",
			modify:  func(c *Config) { c.Device.Version = strings.Repeat("9", 256) },
			wantErr: true,
		},
		{
			name:    "invalid sensor backend",
			modify:  func(c *Config) { c.Sensor.Backend = "adc" },
			wantErr: true,
		},
		{
			name:    "serial without address",
			modify:  func(c *Config) { c.Sensor.Backend = "serial"; c.Sensor.Serial.Address = "" },
			wantErr: true,
		},
		{
			name:    "invalid gain",
			modify:  func(c *Config) { c.Sensor.Gain = 100 },
			wantErr: true,
		},
		{
			name:    "invalid store backend",
			modify:  func(c *Config) { c.Store.Backend = "eeprom" },
			wantErr: true,
		},
		{
			name:    "file store without path",
			modify:  func(c *Config) { c.Store.Path = "" },
			wantErr: true,
		},
		{
			name:    "memory store without path",
			modify:  func(c *Config) { c.Store.Backend = "memory"; c.Store.Path = "" },
			wantErr: false,
		},
		{
			name:    "flash store without path",
			modify:  func(c *Config) { c.Store.Backend = "flash"; c.Store.Path = "" },
			wantErr: false,
		},
		{
			name:    "invalid button backend",
			modify:  func(c *Config) { c.Button.Backend = "touch" },
			wantErr: true,
		},
		{
			name:    "empty hotkey keys",
			modify:  func(c *Config) { c.Button.Keys = nil },
			wantErr: true,
		},
		{
			name:    "invalid hotkey mode",
			modify:  func(c *Config) { c.Button.Mode = "invalid" },
			wantErr: true,
		},
		{
			name:    "zero stream period",
			modify:  func(c *Config) { c.Stream.Period = 0 },
			wantErr: true,
		},
		{
			name:    "zero reference weight",
			modify:  func(c *Config) { c.Calibration.ReferenceWeight = 0 },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Calibration.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "no timeout",
			modify:  func(c *Config) { c.Calibration.Timeout = 0 },
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "progressor-emu", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# progressor-emu") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Device.Name != "Progressor_BB" {
		t.Errorf("written config Device.Name = %q, want %q", cfg.Device.Name, "Progressor_BB")
	}
	if cfg.Stream.Period != 10*time.Millisecond {
		t.Errorf("written config Stream.Period = %v, want 10ms", cfg.Stream.Period)
	}

	// The written file must load back into a valid config.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "progressor-emu")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("device:\n  name: Progressor_Custom\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
