//go:build !tinygo

package config

import (
	"os"
	"path/filepath"
)

func platformDefaults(c *Config) {
	home, _ := os.UserHomeDir()
	c.Store = StoreConfig{
		Backend: "file",
		Path:    filepath.Join(home, ".local", "share", "progressor-emu", "nvs.bin"),
	}
}
