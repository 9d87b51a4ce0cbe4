package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmaker/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached layouts and renders",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached layout and render",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCacheClear(cmd.Context())
		},
	}
}

func (c *CLI) runCacheClear(ctx context.Context) error {
	ch, _, err := c.newCache(ctx, false)
	if err != nil {
		return err
	}
	defer ch.Close()

	switch ch := ch.(type) {
	case *cache.RedisCache:
		count, err := ch.Clear(ctx, redisKeyPrefix+"*")
		if err != nil {
			return fmt.Errorf("clear redis cache: %w", err)
		}
		printSuccess("Cleared %d cached entries", count)
		printDetail("Redis: %s", c.cfg.Cache.Redis.Addr)
	case *cache.FileCache:
		count, err := ch.Clear()
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		if count == 0 {
			printInfo("Cache is empty")
			return nil
		}
		printSuccess("Cleared %d cached entries", count)
		printDetail("Directory: %s", ch.Dir())
	default:
		printInfo("Caching is disabled")
	}
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(stdout, dir)
			return nil
		},
	}
}
