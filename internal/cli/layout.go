package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

// layoutCommand creates the layout command, which arranges a flow as
// stacked tidy trees.
func (c *CLI) layoutCommand() *cobra.Command {
	return c.positionCommand(pipeline.ModeAuto, &cobra.Command{
		Use:   "layout [flow]",
		Short: "Arrange a flow as stacked tidy trees on a grid",
		Long: `Arrange a flow as stacked tidy trees on a grid.

Every node without an incoming link starts a tree that grows along its
downstream links. Trees are laid out with the Walker/Buchheim algorithm and
stacked in rows; nodes no tree reaches go in one extra row at the bottom.
Node positions are cell centres.

The output is the same document with updated positions. Results are cached
by flow content and grid size.`,
	})
}

// snapCommand creates the snap command, which moves every node to the
// centre of its grid cell.
func (c *CLI) snapCommand() *cobra.Command {
	return c.positionCommand(pipeline.ModeSnap, &cobra.Command{
		Use:   "snap [flow]",
		Short: "Snap every node to the centre of its grid cell",
	})
}

func (c *CLI) positionCommand(mode string, cmd *cobra.Command) *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{Mode: mode}

	cmd.Args = cobra.ExactArgs(1)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c.applyConfig(cmd, &opts)
		opts.Source = args[0]
		return c.runPosition(cmd.Context(), opts, output, noCache)
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: <input>.layout.<ext>)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "output format: json, toml, yaml (default: from output or input extension)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute and overwrite cached positions")
	addLayoutFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runPosition(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	if opts.Format == "" {
		inputFormat := formatFromOutput(opts.Source, pipeline.FormatJSON)
		opts.Format = inputFormat
		if output != "" {
			opts.Format = formatFromOutput(output, inputFormat)
		}
	}
	switch opts.Format {
	case pipeline.FormatJSON, pipeline.FormatTOML, pipeline.FormatYAML:
	default:
		return fmt.Errorf("invalid format: %q (must be one of: json, toml, yaml)", opts.Format)
	}
	if output == "" {
		output = defaultOutput(opts.Source, "layout."+opts.Format)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sw := startStopwatch(c.Logger)
	spinner := newSpinner(ctx, fmt.Sprintf("Computing %s layout...", opts.Mode))
	spinner.Start()

	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	sw.lap("Positioned nodes", "nodes", res.Stats.NodeCount, "mode", opts.Mode)

	if err := writeOutput(output, res.Output); err != nil {
		return err
	}
	if output == "-" {
		return nil
	}

	printSuccess("Layout complete")
	printFile(output)
	printStats(res.Stats.NodeCount, res.Stats.LinkCount, len(res.Rejected), res.CacheInfo.LayoutHit)
	for _, r := range res.Rejected {
		printDetail("rejected %s", r)
	}
	printNewline()
	printNextStep("Render", appName+" render --mode none "+output)
	return nil
}
