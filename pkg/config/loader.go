package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrExists = errors.New("config file already exists")

const (
	defaultPaneTitle      = "XML Mapping"
	defaultLocale         = 1033
	defaultDragDropWindow = 3 * time.Second
	defaultHistory        = 50
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file is missing
// or unreadable. The returned error is nil only when the file was loaded.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}

// SaveConfig writes the config to the specified path
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EnsureDefault writes Default to path unless a file is already there.
// It returns ErrExists when nothing was written because the file exists.
func EnsureDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, ErrExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	cfg := Default()
	if err := SaveConfig(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.PaneTitle == "" {
		cfg.PaneTitle = defaultPaneTitle
	}
	if cfg.Locale == 0 {
		cfg.Locale = defaultLocale
	}
	if cfg.DragDropWindow <= 0 {
		cfg.DragDropWindow = defaultDragDropWindow
	}
	if cfg.History <= 0 {
		cfg.History = defaultHistory
	}
	cfg.Placeholders = cfg.Placeholders.WithDefaults()
}
