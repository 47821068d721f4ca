// Package config loads histsearch settings.
//
// Settings come from built-in defaults, then the TOML file at
// $XDG_CONFIG_HOME/histsearch/config.toml (or ~/.config/histsearch/config.toml,
// or $HISTSEARCH_CONFIG), then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/entl/histsearch/internal/env"
	"github.com/entl/histsearch/internal/filter"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables that override the config file.
const (
	ConfigPathVar = "HISTSEARCH_CONFIG"
	DateFormatVar = "HISTDB_SKIM_DATE_FORMAT"
	NoSortVar     = "HISTDB_SKIM_NOSORT"
	LogFileVar    = "HISTSEARCH_LOG"
	LogLevelVar   = "HISTSEARCH_LOG_LEVEL"
)

// Config is the complete histsearch configuration.
type Config struct {
	// Database is the zsh-histdb SQLite file.
	Database string `toml:"database"`
	// DateFormat is the strftime layout for commands not run today.
	DateFormat string `toml:"date_format"`
	// NoSort keeps matches in history order instead of ranking them by score.
	NoSort bool `toml:"no_sort"`
	// BatchSize is the number of records moved per loader/filter batch.
	BatchSize int `toml:"batch_size"`
	// InitialScope overrides the starting scope ("session", "directory",
	// "host", "everywhere"). Empty means session when one is known.
	InitialScope string `toml:"initial_scope"`

	Log LogConfig `toml:"log"`
}

// LogConfig configures the debug log. The selector owns the terminal, so
// logs only ever go to a file.
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database:   env.DatabasePath(),
		DateFormat: "%d/%m/%Y",
		BatchSize:  100,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Path returns the config file location.
func Path() (string, error) {
	if path := os.Getenv(ConfigPathVar); path != "" {
		return path, nil
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "histsearch", "config.toml"), nil
}

// Load reads the config file at the default Path.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads defaults, the TOML file at path (a missing file is
// fine) and environment overrides, then validates the result.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variables on top of the file.
func (c *Config) ApplyEnvOverrides() {
	if path := os.Getenv(env.DatabaseVar); path != "" {
		c.Database = path
	}
	if format := os.Getenv(DateFormatVar); format != "" {
		c.DateFormat = format
	}
	if raw := os.Getenv(NoSortVar); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			c.NoSort = v
		}
	}
	if file := os.Getenv(LogFileVar); file != "" {
		c.Log.File = file
	}
	if level := os.Getenv(LogLevelVar); level != "" {
		c.Log.Level = level
	}
}

// Validate checks the configuration for values the program can't use.
func (c *Config) Validate() error {
	var errs []error

	if c.Database == "" {
		errs = append(errs, fmt.Errorf("%w: database path is empty", ErrInvalid))
	}
	if c.DateFormat == "" {
		errs = append(errs, fmt.Errorf("%w: date_format is empty", ErrInvalid))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalid, c.BatchSize))
	}
	if c.InitialScope != "" {
		if _, err := filter.ParseScope(c.InitialScope); err != nil {
			errs = append(errs, fmt.Errorf("%w: initial_scope: %v", ErrInvalid, err))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level))
	}

	return errors.Join(errs...)
}

// Scope returns the configured initial scope and whether one is set.
func (c *Config) Scope() (filter.Scope, bool) {
	if c.InitialScope == "" {
		return 0, false
	}
	scope, err := filter.ParseScope(c.InitialScope)
	if err != nil {
		return 0, false
	}
	return scope, true
}
