// Package nodelink renders flows as node-link diagrams with Graphviz.
//
// # DOT Format
//
// [ToDOT] writes one record-shaped node per flow node: sink ports form the
// left column, the name sits in the middle and source ports form the right
// column. Links attach to their ports (east side for sources, west side
// for sinks), so the drawing mirrors [flow.Node.PortAnchor].
//
// With [Options.Pinned] every node carries pos="x,y!" taken from its flow
// position (pixels are read as points, y grows downwards), and rendering
// with [EngineNeato] keeps the nodes where the flow put them. Without it
// Graphviz's dot engine picks its own layered layout.
//
// # Options
//
//   - Detailed: add status, progress and metadata lines to node labels
//   - Pinned: fix node positions from the flow
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] (Graphviz compiled to
// WebAssembly) for in-process SVG rendering.
package nodelink
