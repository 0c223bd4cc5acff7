// Package config loads and validates lattice.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"lattice/internal/engine/parser"
)

type Config struct {
	Version       int                 `toml:"version"`
	Paths         Paths               `toml:"paths"`
	Exclude       Exclude             `toml:"exclude"`
	Watch         Watch               `toml:"watch"`
	Cache         Cache               `toml:"cache"`
	Languages     map[string]Language `toml:"languages"`
	Resolver      Resolver            `toml:"resolver"`
	Observability Observability       `toml:"observability"`
}

type Paths struct {
	// Roots are the directories scanned for source files, relative to the
	// config file unless absolute.
	Roots []string `toml:"roots"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Language struct {
	Enabled *bool `toml:"enabled"`
}

type Resolver struct {
	// MaxSuggestions caps "did you mean" candidates per unresolved name.
	MaxSuggestions int `toml:"max_suggestions"`
	Workers        int `toml:"workers"`
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

// Default returns the configuration used when no lattice.toml exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.Paths.Roots) == 0 {
		cfg.Paths.Roots = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		// Base names, matched at any depth.
		cfg.Exclude.Dirs = []string{
			"node_modules", ".git", "target", "dist",
			"__pycache__", ".venv", "venv", ".lattice",
		}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = filepath.Join(".lattice", "cache.db")
	}
	if cfg.Resolver.MaxSuggestions == 0 {
		cfg.Resolver.MaxSuggestions = 3
	}
	if cfg.Resolver.Workers <= 0 {
		cfg.Resolver.Workers = 0 // 0 means GOMAXPROCS at scan time
	}
}

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d", cfg.Version)
	}
	for _, root := range cfg.Paths.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("paths.roots must not contain empty entries")
		}
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Resolver.MaxSuggestions < 0 {
		return fmt.Errorf("resolver.max_suggestions must not be negative")
	}
	if cfg.Resolver.Workers < 0 {
		return fmt.Errorf("resolver.workers must not be negative")
	}
	for name := range cfg.Languages {
		if languageByName(name) == parser.LangUnknown {
			return fmt.Errorf("languages.%s: unknown language", name)
		}
	}
	return nil
}

// LanguageEnabled reports whether a language participates in scans. Absent
// entries default to enabled.
func (c *Config) LanguageEnabled(lang parser.Language) bool {
	for name, l := range c.Languages {
		if languageByName(name) == lang && l.Enabled != nil {
			return *l.Enabled
		}
	}
	return true
}

func languageByName(name string) parser.Language {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "javascript", "js":
		return parser.LangJavaScript
	case "typescript", "ts":
		return parser.LangTypeScript
	case "tsx":
		return parser.LangTSX
	case "python", "py":
		return parser.LangPython
	case "rust", "rs":
		return parser.LangRust
	default:
		return parser.LangUnknown
	}
}
