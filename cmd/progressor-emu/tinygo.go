//go:build tinygo

package main

import (
	"context"
	"errors"

	"github.com/chaz8081/progressor-emu/internal/button"
	"github.com/chaz8081/progressor-emu/internal/config"
	"github.com/chaz8081/progressor-emu/internal/loadcell"
)

func openSerial(config.SerialConfig) (loadcell.Reader, error) {
	return nil, errors.New("serial sensor backend needs a host build; use hx711")
}

func startHotkey(config.ButtonConfig, *button.Line) (func(), error) {
	return nil, errors.New("hotkey button backend needs a host build; use gpio")
}

// A board has no config file; the built-in defaults are the configuration.
func loadConfig(string) (*config.Config, error) {
	return config.Default(), nil
}

// There are no signals on bare metal, so the device runs until reset.
func notifyContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
