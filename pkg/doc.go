// Package pkg holds the flowmaker libraries: a typed node graph for data
// flows and the layouts that place it on a grid.
//
// # Overview
//
// A flow is a set of nodes with typed sink and source ports, joined by
// links from a source port to a sink port. The packages split into the
// model, the layout algorithms, and the plumbing around them:
//
//   - [flow]: nodes, ports, links, the link validator and the graph index
//   - [tidy]: Walker/Buchheim tidy-tree layout on an abstract grid
//   - [io]: JSON, TOML and YAML flow documents
//   - [pipeline]: load → layout → render, with caching
//   - [render/nodelink]: Graphviz DOT and SVG output
//   - [control]: status and progress commands from a running engine
//   - [server]: HTTP facade with a server-sent event stream
//   - [cache], [config], [errors], [observability]: supporting infrastructure
//
// # Quick Start
//
//	doc, _ := io.ImportFile("etl.toml")
//	f, rejected, _ := io.Build(doc)
//	for _, r := range rejected {
//	    fmt.Println("rejected", r)
//	}
//
//	// One root tree per column, one node per grid cell.
//	_ = f.AutoLayout(120, 80)
//
//	svg, _ := nodelink.Render(ctx, f, nodelink.Options{Pinned: true})
//
// The CLI in cmd/flowmaker wraps the same steps:
//
//	flowmaker layout etl.toml
//	flowmaker render etl.toml -f svg,dot
//	flowmaker serve etl.toml
//
// [flow]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/flow
// [tidy]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/tidy
// [io]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/io
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/pipeline
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/render/nodelink
// [control]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/control
// [server]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/server
// [cache]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/flowmaker/pkg/observability
package pkg
