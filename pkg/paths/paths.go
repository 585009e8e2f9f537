// Package paths provides centralized path resolution for mappane's config and state files.
//
// Layout (XDG-style):
//
//	Config:  ~/.config/mappane/config.yaml        (override: MAPPANE_CONFIG_DIR)
//	State:   ~/.local/state/mappane/              (override: MAPPANE_STATE_DIR)
//	Machine: /etc/mappane/                        (override: MAPPANE_MACHINE_DIR)
//	Runtime: /tmp/mappane-*
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	configDirOnce   sync.Once
	configDirCached string

	stateDirOnce   sync.Once
	stateDirCached string
)

// ConfigDir resolves the config directory.
// Priority: MAPPANE_CONFIG_DIR env > ~/.config/mappane/
func ConfigDir() string {
	configDirOnce.Do(func() {
		configDirCached = resolve("MAPPANE_CONFIG_DIR", ".config", "mappane")
	})
	return configDirCached
}

// StateDir resolves the state directory.
// Priority: MAPPANE_STATE_DIR env > ~/.local/state/mappane/
func StateDir() string {
	stateDirOnce.Do(func() {
		stateDirCached = resolve("MAPPANE_STATE_DIR", ".local", "state", "mappane")
	})
	return stateDirCached
}

func resolve(env string, homeRel ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, homeRel...)...)
}

// MachineDir is the read-only, machine-wide settings directory. It is not
// cached: it is only read at startup and by the alias library.
func MachineDir() string {
	if v := os.Getenv("MAPPANE_MACHINE_DIR"); v != "" {
		return v
	}
	return "/etc/mappane"
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StatePath returns the full path to a state file (e.g. "schema-library.yaml").
func StatePath(filename string) string {
	return filepath.Join(StateDir(), filename)
}

// EnsureConfigDir creates the config directory if it doesn't exist and returns its path.
func EnsureConfigDir() (string, error) {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", dir, err)
	}
	return dir, nil
}

// EnsureStateDir creates the state directory if it doesn't exist and returns its path.
func EnsureStateDir() (string, error) {
	dir := StateDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create state dir %s: %w", dir, err)
	}
	return dir, nil
}

// ResetForTest clears cached values so tests can re-run resolution logic.
// Only use in tests.
func ResetForTest() {
	configDirOnce = sync.Once{}
	configDirCached = ""
	stateDirOnce = sync.Once{}
	stateDirCached = ""
}
