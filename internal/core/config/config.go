package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version       int           `toml:"version"`
	LanguagesPath string        `toml:"languages_path"`
	Resolver      Resolver      `toml:"resolver"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Resolver struct {
	// InjectionDepth bounds nested sub-language resolution.
	InjectionDepth int `toml:"injection_depth"`
	// RootCeiling, when set, bounds the upward root-marker walk.
	RootCeiling string `toml:"root_ceiling"`
	// Rate and Burst throttle background re-resolutions per buffer churn.
	Rate  float64 `toml:"rate"`
	Burst int     `toml:"burst"`
	// QueueCapacity sizes the background resolution queue.
	QueueCapacity int `toml:"queue_capacity"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Exclude  Exclude       `toml:"exclude"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Resolver.InjectionDepth == 0 {
		cfg.Resolver.InjectionDepth = 8
	}
	if cfg.Resolver.Rate <= 0 {
		cfg.Resolver.Rate = 20
	}
	if cfg.Resolver.Burst <= 0 {
		cfg.Resolver.Burst = 40
	}
	if cfg.Resolver.QueueCapacity <= 0 {
		cfg.Resolver.QueueCapacity = 128
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/state/resolutions.db"
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
	if len(cfg.Watch.Exclude.Dirs) == 0 {
		cfg.Watch.Exclude.Dirs = []string{".git", "node_modules", "target", "__pycache__"}
	}
}

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	if cfg.Resolver.InjectionDepth < 3 {
		return fmt.Errorf("resolver.injection_depth must be >= 3, got %d", cfg.Resolver.InjectionDepth)
	}
	if cfg.Resolver.RootCeiling != "" {
		if info, err := os.Stat(cfg.Resolver.RootCeiling); err != nil || !info.IsDir() {
			return fmt.Errorf("resolver.root_ceiling %q is not a directory", cfg.Resolver.RootCeiling)
		}
	}
	if cfg.LanguagesPath != "" {
		if _, err := os.Stat(cfg.LanguagesPath); err != nil {
			return fmt.Errorf("languages_path %q: %w", cfg.LanguagesPath, err)
		}
	}
	return nil
}
