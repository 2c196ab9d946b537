// Package config loads optional user settings for ped.
//
// Settings come from a TOML file under the user config dir; flags and
// env vars override at the call sites in cmd/ped. A missing file means
// defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	colorful "github.com/lucasb-eyer/go-colorful"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the ped user configuration.
type Config struct {
	// Palette overrides the built-in highlight palette. Hex colors,
	// allocated in order.
	Palette []string `toml:"palette"`

	// Autosave writes the session after every committed edit.
	Autosave bool `toml:"autosave"`

	// DefaultView is the view shown at startup, "transcript" or
	// "sequence".
	DefaultView string `toml:"default_view"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{Autosave: true, DefaultView: "transcript"}
}

// Path returns the config file location: PED_CONFIG if set, else
// ped/config.toml under the user config dir.
func Path() (string, error) {
	if env := os.Getenv("PED_CONFIG"); env != "" {
		return env, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "ped", "config.toml"), nil
}

// Load reads the config file at path. A missing file yields Default;
// a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DefaultView {
	case "", "transcript", "sequence":
	default:
		return fmt.Errorf("unknown default_view %q", c.DefaultView)
	}
	for _, col := range c.Palette {
		if _, err := colorful.Hex(col); err != nil {
			return fmt.Errorf("palette color %q: %w", col, err)
		}
	}
	return nil
}
