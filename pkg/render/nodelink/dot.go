package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowmaker/pkg/flow"
)

// Engine selects the Graphviz layout program.
type Engine string

const (
	EngineDot   Engine = "dot"
	EngineNeato Engine = "neato"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds status, progress and metadata to node labels.
	Detailed bool
	// Pinned fixes every node at its flow position.
	Pinned bool
}

// ToDOT converts a flow to Graphviz DOT.
func ToDOT(f *flow.Flow, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=record, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")
	if opts.Pinned {
		buf.WriteString("  splines=true;\n")
	}
	buf.WriteString("\n")

	for _, n := range f.Nodes() {
		attrs := []string{fmt.Sprintf("label=%q", recordLabel(n, opts.Detailed))}
		if !n.Runnable() {
			attrs = append(attrs, "color=\"#b04040\"")
		}
		if opts.Pinned {
			x, y := n.Position()
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(x), fmtFloat(flipY(y))))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range f.Links() {
		fmt.Fprintf(&buf, "  %q:%q:e -> %q:%q:w", l.SourceNodeID(), l.SourcePortID(), l.SinkNodeID(), l.SinkPortID())
		if l.Label() != "" {
			fmt.Fprintf(&buf, " [label=%q]", l.Label())
		}
		buf.WriteString(";\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func recordLabel(n *flow.Node, detailed bool) string {
	var sinks, sources []string
	for _, p := range n.Ports() {
		field := fmt.Sprintf("<%s> %s", escapeRecord(p.ID()), escapeRecord(p.ID()))
		if p.Direction() == flow.Sink {
			sinks = append(sinks, field)
		} else {
			sources = append(sources, field)
		}
	}

	title := n.Name()
	if title == "" {
		title = n.ID()
	}
	middle := escapeRecord(title)
	if detailed {
		middle += `\n` + escapeRecord(detailLines(n))
	}

	parts := []string{}
	if len(sinks) > 0 {
		parts = append(parts, "{"+strings.Join(sinks, "|")+"}")
	}
	parts = append(parts, middle)
	if len(sources) > 0 {
		parts = append(parts, "{"+strings.Join(sources, "|")+"}")
	}
	return strings.Join(parts, "|")
}

func detailLines(n *flow.Node) string {
	lines := []string{"id: " + n.ID()}
	if n.Status() != "" {
		lines = append(lines, "status: "+n.Status())
	}
	if n.Progress() > 0 {
		lines = append(lines, fmt.Sprintf("progress: %.0f%%", n.Progress()*100))
	}
	meta := n.Meta()
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		lines = append(lines, fmt.Sprintf("%s: %v", k, meta[k]))
	}
	return strings.Join(lines, "\n")
}

var recordEscaper = strings.NewReplacer(
	`{`, `\{`, `}`, `\}`, `|`, `\|`, `<`, `\<`, `>`, `\>`, "\n", `\n`,
)

func escapeRecord(s string) string { return recordEscaper.Replace(s) }

// flipY converts screen y (down) to Graphviz y (up).
func flipY(y float64) float64 {
	if y == 0 {
		return 0
	}
	return -y
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// RenderSVG lays out a DOT graph with the given engine and renders SVG.
func RenderSVG(ctx context.Context, dot string, engine Engine) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	switch engine {
	case EngineNeato:
		gv.SetLayout(graphviz.NEATO)
	case EngineDot, "":
		gv.SetLayout(graphviz.DOT)
	default:
		return nil, fmt.Errorf("unknown layout engine %q", engine)
	}

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Render is ToDOT followed by RenderSVG, choosing neato for pinned output.
func Render(ctx context.Context, f *flow.Flow, opts Options) ([]byte, error) {
	engine := EngineDot
	if opts.Pinned {
		engine = EngineNeato
	}
	return RenderSVG(ctx, ToDOT(f, opts), engine)
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized svg tag with a plain
// viewBox so the image scales with its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
