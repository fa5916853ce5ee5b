//go:build !tinygo

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/progressor-emu/internal/button"
	"github.com/chaz8081/progressor-emu/internal/config"
	"github.com/chaz8081/progressor-emu/internal/hotkey"
	"github.com/chaz8081/progressor-emu/internal/loadcell"
)

func openSerial(cfg config.SerialConfig) (loadcell.Reader, error) {
	return loadcell.NewSerialBridge(cfg.Address, cfg.BaudRate, cfg.Timeout), nil
}

func startHotkey(cfg config.ButtonConfig, line *button.Line) (func(), error) {
	listener := hotkey.NewListener(cfg.Keys, cfg.Mode, line)
	go listener.Start()
	return listener.Stop, nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
