package vkframe

import (
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// WindowConfig describes the window to create and which attachments its swap
// chain needs.
type WindowConfig struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Title     string `toml:"title"`
	Resizable bool   `toml:"resizable"`
	Depth     bool   `toml:"depth"`
	Stencil   bool   `toml:"stencil"`
}

// NeedsDepthBuffer reports whether a depth/stencil attachment is required.
func (w WindowConfig) NeedsDepthBuffer() bool {
	return w.Depth || w.Stencil
}

// Config holds application settings. It can be loaded from a TOML file:
//
//	name = "demo"
//	debug = true
//
//	[window]
//	width = 800
//	height = 600
//	depth = true
//
//	[features]
//	sampler_anisotropy = false
type Config struct {
	Name    string `toml:"name"`
	Debug   bool   `toml:"debug"`
	Verbose bool   `toml:"verbose"`
	// LogFile, when set, redirects the package logger to the named file.
	LogFile  string           `toml:"log_file"`
	Window   WindowConfig     `toml:"window"`
	Features RequiredFeatures `toml:"features"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		Name: "vkframe",
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "vkframe",
			Depth:  true,
		},
		Features: DefaultDeviceConfig().Features,
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig. A leading ~ in path
// or in log_file is expanded to the home directory.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.LogFile, err = homedir.Expand(cfg.LogFile); err != nil {
		return cfg, errors.Wrapf(err, "log file %s", cfg.LogFile)
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that would otherwise fail deep inside Vulkan.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}
