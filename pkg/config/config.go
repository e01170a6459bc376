package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for eliminator.
type Config struct {
	// Elimination settings
	DCE DCEConfig `koanf:"dce"`

	// Which files are parsed
	Parse ParseConfig `koanf:"parse"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache"`

	// Parallelism for batch runs
	Workers WorkersConfig `koanf:"workers"`

	// Logging settings
	Log LogConfig `koanf:"log"`
}

// DCEConfig controls the sweep.
type DCEConfig struct {
	MaxPasses       int      `koanf:"max_passes"` // 0 = until fixed point
	KeepNames       []string `koanf:"keep_names"`
	PruneBeforeRest bool     `koanf:"prune_before_rest"`
}

// ParseConfig selects source files by extension.
type ParseConfig struct {
	Extensions  []string `koanf:"extensions"`
	MaxFileSize int64    `koanf:"max_file_size"` // bytes, 0 = unlimited
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns"` // gitignore syntax
	Dirs      []string `koanf:"dirs"`
	Gitignore bool     `koanf:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	TTL     int    `koanf:"ttl"` // TTL in hours
}

// WorkersConfig bounds batch parallelism.
type WorkersConfig struct {
	Max int `koanf:"max"` // 0 = derive from CPU count
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DCE: DCEConfig{
			MaxPasses: 0,
		},
		Parse: ParseConfig{
			Extensions: []string{".js", ".mjs", ".cjs"},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
			},
			Dirs: []string{
				"node_modules",
				".git",
				".eliminator",
				"dist",
				"build",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".eliminator/cache",
			TTL:     24,
		},
		Workers: WorkersConfig{
			Max: 0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"eliminator.toml",
		"eliminator.yaml",
		"eliminator.yml",
		"eliminator.json",
		".eliminator.toml",
		".eliminator.yaml",
		".eliminator.yml",
		".eliminator.json",
	}

	searchDirs := []string{".", ".eliminator"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := Load(path)
				if err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// Validate rejects settings no component can honor.
func (c *Config) Validate() error {
	if c.DCE.MaxPasses < 0 {
		return fmt.Errorf("dce.max_passes must not be negative, got %d", c.DCE.MaxPasses)
	}
	if c.Workers.Max < 0 {
		return fmt.Errorf("workers.max must not be negative, got %d", c.Workers.Max)
	}
	if c.Parse.MaxFileSize < 0 {
		return fmt.Errorf("parse.max_file_size must not be negative, got %d", c.Parse.MaxFileSize)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %d", c.Cache.TTL)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.SlogLevel()}))
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// ShouldProcess reports whether path has a configured source extension and
// is not excluded.
func (c *Config) ShouldProcess(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	matched := false
	for _, e := range c.Parse.Extensions {
		if ext == strings.ToLower(e) {
			matched = true
			break
		}
	}
	return matched && !c.ShouldExclude(path)
}

// ShouldExclude checks if a path should be excluded from processing.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
