package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmaker/pkg/flow"
	flowio "github.com/matzehuels/flowmaker/pkg/io"
)

// checkReport summarizes a flow's problems.
type checkReport struct {
	rejected   []flowio.Rejection
	notRunning []*flow.Node
	cycles     []error
}

func (r checkReport) problems() int {
	return len(r.rejected) + len(r.notRunning) + len(r.cycles)
}

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [flow]",
		Short: "Validate a flow document",
		Long: `Validate a flow document.

Reports links the validator rejects (unknown nodes or ports, wrong
direction, incompatible data types), nodes that are not runnable because a
required port is unconnected, and cycles that prevent auto layout.

With --strict any problem makes the command fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, f, err := c.runCheck(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCheck(f, report)
			if strict && report.problems() > 0 {
				return fmt.Errorf("%d problems in %s", report.problems(), args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any problem is found")
	return cmd
}

func (c *CLI) runCheck(ctx context.Context, path string) (checkReport, *flow.Flow, error) {
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return checkReport{}, nil, err
	}
	defer runner.Close()

	f, rejected, err := runner.Load(ctx, path)
	if err != nil {
		return checkReport{}, nil, err
	}
	if err := f.Validate(); err != nil {
		return checkReport{}, nil, err
	}

	report := checkReport{rejected: rejected}
	for _, n := range f.Nodes() {
		if !n.Runnable() {
			report.notRunning = append(report.notRunning, n)
		}
	}
	for _, r := range f.Roots() {
		if _, err := f.LayoutTree(r.ID()); err != nil {
			report.cycles = append(report.cycles, err)
		}
	}
	return report, f, nil
}

func printCheck(f *flow.Flow, r checkReport) {
	fmt.Fprintln(stdout, StyleTitle.Render("Flow check"))
	printKeyValue("nodes", fmt.Sprint(f.NodeCount()))
	printKeyValue("links", fmt.Sprint(f.LinkCount()))

	roots := make([]string, 0)
	for _, n := range f.Roots() {
		roots = append(roots, n.ID())
	}
	printKeyValue("roots", strings.Join(roots, ", "))
	printNewline()

	for _, rj := range r.rejected {
		printWarning("rejected link %s", rj)
	}
	for _, n := range r.notRunning {
		var missing []string
		for _, p := range n.Ports() {
			if !p.Optional() && !p.IsConnected() {
				missing = append(missing, p.ID())
			}
		}
		printWarning("node %s is not runnable: unconnected %s", n.ID(), strings.Join(missing, ", "))
	}
	for _, err := range r.cycles {
		printError("%v", err)
	}

	if r.problems() == 0 {
		printSuccess("No problems found")
		return
	}
	printInfo("%d problems found", r.problems())
}
