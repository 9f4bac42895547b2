// Package config loads the optional daemon defaults file. Command-line flags
// override the file; the file overrides built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/swaygravity/internal/geometry"
	"github.com/1broseidon/swaygravity/internal/unit"
)

// Config holds the daemon's startup defaults.
type Config struct {
	Vertical      string `yaml:"vertical"`
	Horizontal    string `yaml:"horizontal"`
	Padding       int    `yaml:"padding"`
	Width         string `yaml:"width"`
	Height        string `yaml:"height"`
	Natural       bool   `yaml:"natural"`
	SettleDelayMS int    `yaml:"settle_delay_ms"`
	Socket        string `yaml:"socket"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Vertical:      string(geometry.VerticalBottom),
		Horizontal:    string(geometry.HorizontalRight),
		SettleDelayMS: 200,
	}
}

// Path returns the config file location.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(configDir, "swaygravity", "config.yaml"), nil
}

// Load reads the config file, falling back to defaults when it is absent.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads and validates a specific config file. A missing file is not
// an error; the defaults apply.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if _, err := geometry.ParseVertical(c.Vertical); err != nil {
		return err
	}
	if _, err := geometry.ParseHorizontal(c.Horizontal); err != nil {
		return err
	}
	if c.Padding < 0 {
		return fmt.Errorf("padding must not be negative")
	}
	if c.SettleDelayMS < 0 {
		return fmt.Errorf("settle_delay_ms must not be negative")
	}

	for name, value := range map[string]string{"width": c.Width, "height": c.Height} {
		if value == "" {
			continue
		}
		spec, err := unit.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if spec.IsRelative() {
			return fmt.Errorf("%s: daemon defaults must be absolute, got %q", name, value)
		}
	}
	return nil
}
