// Package cli implements the flowmaker command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmaker/pkg/buildinfo"
	"github.com/matzehuels/flowmaker/pkg/cache"
	"github.com/matzehuels/flowmaker/pkg/config"
	"github.com/matzehuels/flowmaker/pkg/observability"
	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = config.AppName

	// redisKeyPrefix scopes cache keys in a shared redis database.
	redisKeyPrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger and the built-in
// configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Flowmaker lays out and inspects node-link flow graphs",
		Long: `Flowmaker builds flow graphs of typed ports, nodes and links from
TOML, YAML or JSON documents, arranges them as stacked tidy trees on a grid,
and renders, checks, previews or serves them.`,
		Version:           buildinfo.Short(),
		SilenceUsage:      true,
		PersistentPreRunE: c.preRun,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/flowmaker/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.snapCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// preRun loads the configuration and attaches the logger to the command
// context. Debug level also routes pipeline, cache and server hooks to the
// log.
func (c *CLI) preRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.Logger.GetLevel() <= log.DebugLevel {
		observability.NewLogHooks(c.Logger).Install()
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, keyer, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, keyer, c.Logger)
	r.TTL = c.cfg.Cache.TTL.Duration
	return r, nil
}

// newCache picks redis when configured and reachable, then the file cache,
// then no cache at all.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, cache.Keyer, error) {
	if noCache || c.cfg.Cache.Disabled {
		return cache.NewNullCache(), nil, nil
	}

	if rc := c.cfg.Cache.Redis; rc.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		if err == nil {
			return redisCache, cache.NewScopedKeyer(nil, redisKeyPrefix), nil
		}
		c.Logger.Warn("redis unavailable, using file cache", "addr", rc.Addr, "err", err)
	}

	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil, nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, nil, err
	}
	return fc, nil, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/flowmaker/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// applyConfig fills layout options whose flags were not set from the
// configuration, so flags override the file and the file overrides the
// built-in defaults.
func (c *CLI) applyConfig(cmd *cobra.Command, opts *pipeline.Options) {
	flags := cmd.Flags()
	if f := flags.Lookup("mode"); f != nil && !f.Changed {
		opts.Mode = c.cfg.Layout.Mode
	}
	if f := flags.Lookup("cell-width"); f != nil && !f.Changed {
		opts.CellWidth = c.cfg.Layout.CellWidth
	}
	if f := flags.Lookup("cell-height"); f != nil && !f.Changed {
		opts.CellHeight = c.cfg.Layout.CellHeight
	}
	opts.Logger = c.Logger
}

// addLayoutFlags registers the grid flags shared by layout commands.
func addLayoutFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().Float64Var(&opts.CellWidth, "cell-width", pipeline.DefaultCellWidth, "grid cell width")
	cmd.Flags().Float64Var(&opts.CellHeight, "cell-height", pipeline.DefaultCellHeight, "grid cell height")
}

// defaultOutput derives an output path from the input: dir/name.<suffix>.
func defaultOutput(input, suffix string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "." + suffix
}

// formatFromOutput infers the output format from a path extension, or
// returns fallback.
func formatFromOutput(path, fallback string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "yml" {
		ext = pipeline.FormatYAML
	}
	if pipeline.ValidFormats[ext] {
		return ext
	}
	return fallback
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
