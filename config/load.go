package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project-local configuration file
const FileName = "iris.yaml"

// Load reads the tool configuration, looking for iris.yaml in the given
// directory and falling back to the per-user config. The environment is
// read only through getenv, so callers control what the lookup sees. A
// missing file yields the defaults; a malformed file is an error.
func Load(dir string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		path = userConfigPath(getenv)
		if path == "" {
			return cfg, nil
		}
		if _, err := os.Stat(path); err != nil {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks for values no command could act on
func Validate(cfg *Config) error {
	switch cfg.Backend {
	case "", "ninja", "make":
	default:
		return fmt.Errorf("unknown backend %q (want ninja or make)", cfg.Backend)
	}
	if cfg.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", cfg.Jobs)
	}
	return nil
}

func userConfigPath(getenv func(string) string) string {
	if getenv == nil {
		return ""
	}
	home := getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "iris", "config.yaml")
}
