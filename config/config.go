// Package config loads and persists user settings as TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"todotui/model"
)

// Config holds the persisted settings: which priority symbol set tasks
// use and the active color theme.
type Config struct {
	PriorityMode model.PriorityMode `toml:"priority_mode"`
	Theme        string             `toml:"theme"`
}

// Default returns the configuration used on first run.
func Default() Config {
	return Config{
		PriorityMode: model.PriorityLetters,
		Theme:        "default",
	}
}

// DefaultPath returns the config file location under the platform's
// user config directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "todotui", "config.toml"), nil
}

// LoadOrCreate reads the config at path. When the file does not exist
// yet the defaults are written there and returned.
func LoadOrCreate(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return Config{}, err
			}
			return cfg, nil
		}
		return Config{}, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// normalize repairs values an edited config file may hold.
func (c *Config) normalize() {
	if c.PriorityMode != model.PriorityLetters && c.PriorityMode != model.PriorityNumbers {
		c.PriorityMode = model.PriorityLetters
	}
	if c.Theme == "" {
		c.Theme = "default"
	}
}
