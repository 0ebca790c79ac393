package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LoadTOML reads a TOML configuration file layered over Default(). A
// missing file is not an error; the defaults are returned.
func LoadTOML(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Load reads a configuration file, dispatching on extension (.toml or
// .lua), and applies environment overrides on top. An empty path loads
// defaults plus environment overrides.
func Load(path string) (Config, error) {
	var cfg Config
	var err error

	switch {
	case path == "":
		cfg = Default()
	case strings.EqualFold(filepath.Ext(path), ".lua"):
		cfg, err = LoadLua(path)
	default:
		cfg, err = LoadTOML(path)
	}
	if err != nil {
		return cfg, err
	}

	ApplyEnv(&cfg)
	return cfg, cfg.Validate()
}
