package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmaker/pkg/flow"
	"github.com/matzehuels/flowmaker/pkg/pipeline"
	"github.com/matzehuels/flowmaker/pkg/server"
)

// serveCommand creates the serve command for the HTTP facade.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "serve [flow]",
		Short: "Serve a flow over HTTP",
		Long: `Serve a flow over HTTP.

The flow is loaded from the optional document, or starts empty. Clients can
query and edit nodes and links, run layouts, push control commands and
follow changes on the /events stream.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			if !cmd.Flags().Changed("addr") {
				addr = c.cfg.Server.Addr
			}
			if len(args) == 1 {
				opts.Source = args[0]
			}
			return c.runServe(cmd.Context(), opts, addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addLayoutFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts pipeline.Options, addr string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var f *flow.Flow
	if opts.Source != "" {
		loaded, rejected, err := runner.Load(ctx, opts.Source)
		if err != nil {
			return err
		}
		for _, r := range rejected {
			printWarning("rejected link %s", r)
		}
		f = loaded
	}

	srv := server.New(f, server.Options{
		CellWidth:  opts.CellWidth,
		CellHeight: opts.CellHeight,
		Runner:     runner,
		Logger:     c.Logger,
	})

	printSuccess("Serving on http://%s", addr)
	err = srv.ListenAndServe(ctx, addr)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return ctx.Err()
	}
	return err
}
