//go:build tinygo

package config

// On a board there is no config file, so these defaults are the running
// configuration.
func platformDefaults(c *Config) {
	c.Sensor.Backend = "hx711"
	c.Store = StoreConfig{Backend: "flash"}
	c.Button.Backend = "gpio"
}
