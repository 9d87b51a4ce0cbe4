package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowmaker/pkg/control"
	"github.com/matzehuels/flowmaker/pkg/flow"
	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

const (
	cellLabelWidth = 12
	maxLogLines    = 5
	progressWidth  = 20
)

var (
	viewSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	viewRunnableStyle = lipgloss.NewStyle().Foreground(colorGreen)
	viewIdleStyle     = lipgloss.NewStyle().Foreground(colorGray)
	viewFailedStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// viewModel - grid preview of a flow
// =============================================================================

// commandMsg carries one control command read from the command stream.
type commandMsg struct {
	cmd control.Command
}

// streamDoneMsg reports the end of the command stream.
type streamDoneMsg struct {
	err error
}

// viewModel draws the flow on its layout grid and lists the selected
// node's ports. Control commands are applied inside Update so the flow is
// only touched from the program loop.
type viewModel struct {
	flow     *flow.Flow
	receiver *control.Receiver
	opts     pipeline.Options

	cursor int
	log    []string
}

func newViewModel(f *flow.Flow, opts pipeline.Options) viewModel {
	return viewModel{
		flow:     f,
		receiver: control.NewReceiver(f, opts.Logger),
		opts:     opts,
	}
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.flow.NodeCount()-1 {
				m.cursor++
			}
		case "a":
			m = m.relayout(pipeline.ModeAuto)
		case "s":
			m = m.relayout(pipeline.ModeSnap)
		}
	case commandMsg:
		if err := m.receiver.Apply(msg.cmd); err != nil {
			m = m.appendLog(StyleError.Render(err.Error()))
		} else {
			m = m.appendLog(msg.cmd.Name)
		}
	case streamDoneMsg:
		if msg.err != nil {
			m = m.appendLog(StyleError.Render("command stream: " + msg.err.Error()))
		} else {
			m = m.appendLog("command stream closed")
		}
	}
	return m, nil
}

func (m viewModel) relayout(mode string) viewModel {
	if err := pipeline.GenerateLayout(m.flow, pipeline.Options{
		Mode:       mode,
		CellWidth:  m.opts.CellWidth,
		CellHeight: m.opts.CellHeight,
	}); err != nil {
		return m.appendLog(StyleError.Render(err.Error()))
	}
	return m.appendLog(mode + " layout")
}

func (m viewModel) appendLog(line string) viewModel {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
	return m
}

func (m viewModel) selected() *flow.Node {
	nodes := m.flow.Nodes()
	if m.cursor < 0 || m.cursor >= len(nodes) {
		return nil
	}
	return nodes[m.cursor]
}

func (m viewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Flow"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ select  a auto layout  s snap  q quit"))
	b.WriteString("\n\n")

	if m.flow.NodeCount() == 0 {
		b.WriteString(StyleDim.Render("  (empty flow)"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.gridView())
	b.WriteString("\n\n")
	b.WriteString(m.detailView())

	if len(m.log) > 0 {
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString(StyleDim.Render("  "+iconInfo+" ") + line + "\n")
		}
	}
	return b.String()
}

// cellOf returns the grid cell containing a position. Negative
// coordinates fall into cell 0.
func cellOf(x, y, cellWidth, cellHeight float64) (col, row int) {
	col = int(math.Floor(x / cellWidth))
	row = int(math.Floor(y / cellHeight))
	return max(col, 0), max(row, 0)
}

func (m viewModel) gridView() string {
	nodes := m.flow.Nodes()
	sel := m.selected()

	type placed struct {
		label string
		node  *flow.Node
	}
	cells := make(map[[2]int]placed)
	cols, rows := 0, 0
	for _, n := range nodes {
		x, y := n.Position()
		col, row := cellOf(x, y, m.opts.CellWidth, m.opts.CellHeight)
		label := n.Name()
		if label == "" {
			label = n.ID()
		}
		key := [2]int{row, col}
		if prev, ok := cells[key]; ok {
			// overlapping nodes share a cell; keep the selected one visible
			label = prev.label + "+"
			if prev.node == sel {
				n = prev.node
			}
		}
		cells[key] = placed{label: truncate(label, cellLabelWidth), node: n}
		cols, rows = max(cols, col+1), max(rows, row+1)
	}

	grid := make([][]string, rows)
	for r := range grid {
		grid[r] = make([]string, cols)
		for c := range grid[r] {
			grid[r][c] = cells[[2]int{r, c}].label
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		BorderRow(true).
		Rows(grid...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Width(cellLabelWidth).Align(lipgloss.Center)
			p, ok := cells[[2]int{row, col}]
			if !ok {
				return base
			}
			return base.Inherit(nodeStyle(p.node, p.node == sel))
		})
	return t.Render()
}

func nodeStyle(n *flow.Node, selected bool) lipgloss.Style {
	switch {
	case selected:
		return viewSelectedStyle
	case isFailure(n.Status()):
		return viewFailedStyle
	case n.Runnable():
		return viewRunnableStyle
	}
	return viewIdleStyle
}

func isFailure(status string) bool {
	switch strings.ToLower(status) {
	case "error", "failed", "failure":
		return true
	}
	return false
}

func (m viewModel) detailView() string {
	n := m.selected()
	if n == nil {
		return ""
	}
	var b strings.Builder
	x, y := n.Position()

	fmt.Fprintf(&b, "%s %s\n", viewSelectedStyle.Render(n.ID()), StyleDim.Render(n.Name()))
	fmt.Fprintf(&b, "  %s (%g, %g)\n", StyleDim.Render("position"), x, y)
	runnable := StyleWarning.Render("no")
	if n.Runnable() {
		runnable = StyleSuccess.Render("yes")
	}
	fmt.Fprintf(&b, "  %s %s\n", StyleDim.Render("runnable"), runnable)
	if n.Status() != "" {
		fmt.Fprintf(&b, "  %s %s\n", StyleDim.Render("status  "), nodeStyle(n, false).Render(n.Status()))
	}
	fmt.Fprintf(&b, "  %s %s\n", StyleDim.Render("progress"), progressBar(n.Progress(), progressWidth))

	for _, p := range n.Ports() {
		marker := iconArrow
		if p.Direction() == flow.Sink {
			marker = "←"
		}
		links := make([]string, 0)
		for _, k := range p.Links() {
			links = append(links, string(k))
		}
		opt := ""
		if p.Optional() {
			opt = StyleDim.Render(" (optional)")
		}
		fmt.Fprintf(&b, "  %s %s%s %s %s\n",
			marker, p.ID(), opt,
			StyleDim.Render("["+strings.Join(p.DataTypes(), ",")+"]"),
			strings.Join(links, " "))
	}
	return b.String()
}

// progressBar renders p in [0, 1] as a fixed-width bar with a percentage.
func progressBar(p float64, width int) string {
	filled := int(math.Round(p * float64(width)))
	filled = min(max(filled, 0), width)
	return StyleSuccess.Render(strings.Repeat("█", filled)) +
		StyleDim.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", p*100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// =============================================================================
// view command
// =============================================================================

// viewCommand creates the interactive grid preview.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		commands string
		noCache  bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "view [flow]",
		Short: "Preview a flow on its layout grid",
		Long: `Preview a flow on its layout grid.

With --commands, newline-delimited JSON control commands are read from the
given file (- for stdin) and applied live, for example:

  {"name": "update_node_status", "data": {"nodeId": "sum", "status": "running"}}
  {"name": "update_node_progress", "data": {"nodeId": "sum", "progress": 0.5}}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			opts.Source = args[0]
			return c.runView(cmd.Context(), opts, commands, noCache)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", pipeline.ModeAuto, "layout before viewing: auto, snap, none")
	cmd.Flags().StringVar(&commands, "commands", "", "read control commands from a file, - for stdin")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addLayoutFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runView(ctx context.Context, opts pipeline.Options, commands string, noCache bool) error {
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
	if err := runner.Layout(ctx, f, opts); err != nil {
		return err
	}

	model := newViewModel(f, opts)
	for _, r := range rejected {
		model = model.appendLog(StyleWarning.Render("rejected " + r.String()))
	}

	teaOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	var stream io.Reader
	switch commands {
	case "":
	case "-":
		stream = os.Stdin
		teaOpts = append(teaOpts, tea.WithInputTTY())
	default:
		file, err := os.Open(commands)
		if err != nil {
			return fmt.Errorf("open commands: %w", err)
		}
		defer file.Close()
		stream = file
	}

	p := tea.NewProgram(model, teaOpts...)
	if stream != nil {
		go func() {
			err := control.Scan(ctx, stream, logger, func(cmd control.Command) error {
				p.Send(commandMsg{cmd: cmd})
				return nil
			})
			p.Send(streamDoneMsg{err: err})
		}()
	}

	_, err = p.Run()
	return err
}
