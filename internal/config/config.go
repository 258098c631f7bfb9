// Package config handles configuration loading for the tileutils command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the tileutils configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Pyramid PyramidConfig `yaml:"pyramid"`
	Log     LogConfig     `yaml:"log"`
}

// IndexConfig contains manager settings.
type IndexConfig struct {
	PoolSize         int `yaml:"pool_size"`
	QueryCacheSize   int `yaml:"query_cache_size"`
	ProbeConcurrency int `yaml:"probe_concurrency"`
}

// PyramidConfig describes tile pyramid sources.
type PyramidConfig struct {
	TileSize int `yaml:"tile_size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level slog.Level `yaml:"level"`
}

// Load reads configuration from a YAML file over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			PoolSize:         4,
			QueryCacheSize:   0,
			ProbeConcurrency: 8,
		},
		Pyramid: PyramidConfig{
			TileSize: 256,
		},
		Log: LogConfig{
			Level: slog.LevelWarn,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Index.PoolSize == 0 {
		cfg.Index.PoolSize = defaults.Index.PoolSize
	}
	if cfg.Index.ProbeConcurrency == 0 {
		cfg.Index.ProbeConcurrency = defaults.Index.ProbeConcurrency
	}
	if cfg.Pyramid.TileSize == 0 {
		cfg.Pyramid.TileSize = defaults.Pyramid.TileSize
	}
}
