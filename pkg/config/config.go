// Package config loads flowmaker settings from a TOML file.
//
// Settings are resolved in three layers: [Default], then the file, then
// command-line flags (applied by the CLI). A missing file is not an
// error. Unknown keys are, so typos surface instead of being ignored.
//
// Example file:
//
//	[layout]
//	mode = "auto"
//	cell_width = 120
//	cell_height = 80
//
//	[cache]
//	dir = "/var/cache/flowmaker"
//	ttl = "168h"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[server]
//	addr = ":8080"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

// AppName names the config and cache directories.
const AppName = "flowmaker"

// Config is the full settings tree.
type Config struct {
	Layout Layout `toml:"layout"`
	Cache  Cache  `toml:"cache"`
	Server Server `toml:"server"`
}

// Layout holds the layout defaults.
type Layout struct {
	Mode       string  `toml:"mode"`
	CellWidth  float64 `toml:"cell_width"`
	CellHeight float64 `toml:"cell_height"`
}

// Cache selects and tunes the layout cache. Redis wins over the file
// cache when its address is set.
type Cache struct {
	Disabled bool     `toml:"disabled"`
	Dir      string   `toml:"dir"`
	TTL      Duration `toml:"ttl"`
	Redis    Redis    `toml:"redis"`
}

// Redis holds the redis connection settings.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Server holds the HTTP facade settings.
type Server struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration read from a string such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Layout: Layout{
			Mode:       pipeline.ModeAuto,
			CellWidth:  pipeline.DefaultCellWidth,
			CellHeight: pipeline.DefaultCellHeight,
		},
		Server: Server{Addr: "127.0.0.1:8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/flowmaker/config.toml, falling back
// to ~/.config/flowmaker/config.toml.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// Load reads path over the defaults and validates the result. An empty
// path means [DefaultPath]. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errs.New(errs.ErrCodeInvalidFormat, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := pipeline.ValidateMode(c.Layout.Mode); err != nil {
		return err
	}
	if c.Layout.CellWidth <= 0 || c.Layout.CellHeight <= 0 {
		return fmt.Errorf("cell size must be positive, got %gx%g", c.Layout.CellWidth, c.Layout.CellHeight)
	}
	if c.Cache.TTL.Duration < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %s", c.Cache.TTL)
	}
	if c.Cache.Redis.DB < 0 {
		return fmt.Errorf("redis db must not be negative, got %d", c.Cache.Redis.DB)
	}
	return nil
}
