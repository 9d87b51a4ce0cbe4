package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

// renderCommand creates the render command for node-link output.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		noCache    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [flow]",
		Short: "Render a flow as a node-link diagram",
		Long: `Render a flow as a node-link diagram.

Nodes are drawn as records with their sink ports on the left and source
ports on the right, pinned at their flow positions. By default the flow is
auto laid out first; pass --mode none to keep the positions in the file.

Several formats may be given at once (-f svg,dot); each is written next to
the output base path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			opts.Source = args[0]
			formats := parseFormats(formatsStr)
			for _, f := range formats {
				if err := pipeline.ValidateFormat(f); err != nil {
					return err
				}
			}
			return c.runRender(cmd.Context(), opts, formats, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (several)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json, toml, yaml (comma-separated)")
	cmd.Flags().StringVar(&opts.Mode, "mode", pipeline.ModeAuto, "layout before rendering: auto, snap, none")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "show status, progress and metadata in node labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass cached layouts and renders")
	addLayoutFlags(cmd, &opts)

	return cmd
}

// parseFormats splits the --format flag. Empty means svg.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputPaths maps each format to its output file. A single format uses
// output as given; several formats share the output base.
func outputPaths(input, output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	for _, f := range formats {
		switch {
		case output == "":
			paths[f] = defaultOutput(input, f)
		case formatFromOutput(output, "") != "":
			paths[f] = defaultOutput(output, f)
		default:
			paths[f] = output + "." + f
		}
	}
	return paths
}

func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, formats []string, output string, noCache bool) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	f, rejected, err := runner.Load(ctx, opts.Source)
	if err != nil {
		return err
	}
	cached, err := runner.LayoutWithCacheInfo(ctx, f, opts)
	if err != nil {
		return err
	}

	paths := outputPaths(opts.Source, output, formats)
	for format, path := range paths {
		if path == opts.Source {
			return fmt.Errorf("%s output would overwrite the input %s; pass -o", format, path)
		}
	}
	for _, format := range formats {
		opts.Format = format
		spinner := newSpinner(ctx, fmt.Sprintf("Rendering %s...", format))
		spinner.Start()
		data, hit, err := runner.RenderWithCacheInfo(ctx, f, opts)
		if err != nil {
			spinner.StopWithError("Render failed")
			return fmt.Errorf("%s: %w", format, err)
		}
		spinner.Stop()
		logger.Debug("rendered", "format", format, "bytes", len(data), "cached", hit)

		if err := writeOutput(paths[format], data); err != nil {
			return err
		}
		printFile(paths[format])
	}

	printStats(f.NodeCount(), f.LinkCount(), len(rejected), cached)
	return nil
}
