// Package render turns flows into pictures.
//
// The [nodelink] subpackage emits Graphviz DOT for a flow, with nodes as
// record shapes whose fields are the ports, and renders it to SVG
// in-process. Positions computed by [flow.Flow.AutoLayout] or
// [flow.Flow.SnapToGrid] can be pinned so Graphviz only routes the edges.
//
//	dot := nodelink.ToDOT(f, nodelink.Options{Pinned: true})
//	svg, err := nodelink.RenderSVG(ctx, dot, nodelink.EngineNeato)
//
// [nodelink]: github.com/matzehuels/flowmaker/pkg/render/nodelink
package render
