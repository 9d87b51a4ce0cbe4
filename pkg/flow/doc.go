// Package flow models an interactive node-and-link diagram: typed nodes
// expose directional ports, links connect compatible ports, and node
// positions can be computed from the graph's connectivity.
//
// # Overview
//
// A [Flow] owns every [Node] and [Link] placed in it. Nodes are created
// standalone with [NewNode] and become owned by a flow through
// [Flow.AddNode]; links only exist as the result of a successful
// [Flow.Connect]. All cross references are identifiers resolved through
// the flow: a link stores node and port ids, never pointers.
//
//	f := flow.New()
//	src, _ := flow.NewNode(flow.NodeSpec{Name: "reader", Ports: []flow.PortSpec{
//	    {Direction: flow.Source, DataTypes: []string{"number"}},
//	}})
//	dst, _ := flow.NewNode(flow.NodeSpec{Name: "sum", Ports: []flow.PortSpec{
//	    {Direction: flow.Sink, DataTypes: []string{"number"}},
//	}})
//	f.AddNode(src, 0, 0)
//	f.AddNode(dst, 200, 0)
//	link := f.Connect(src.ID(), "right-0", dst.ID(), "left-0")
//
// # Topology Rules
//
// [CheckConnection] decides whether a proposed source→sink connection is
// legal: both ports must exist, the source port must have direction
// [Source] and the sink port [Sink], and their data type sets must
// intersect (the literal [AnyType] matches everything). A rejected
// [Flow.Connect] returns nil and leaves the flow untouched.
//
// A sink port holds at most one link. Connecting to an occupied sink port
// first removes the existing link, so observers see [EventLinkRemoved]
// before [EventLinkEstablished]. Removing a node removes every link
// touching any of its ports.
//
// # Indices
//
// The flow keeps two adjacency indices keyed by "node:port": links by
// source port (a set, since sources fan out) and the single link by sink
// port. Connectivity queries and cascading removals run in O(degree).
// [Flow.Validate] checks that both indices and the per-port link lists
// agree.
//
// # Layout
//
// [Flow.AutoLayout] derives a rooted tree for every root node (a node none
// of whose sink ports is connected) by following downstream links, lays it
// out with the tidy-tree algorithm from package tidy, scales rows and
// columns into grid cells and stacks the trees vertically. Nodes reachable
// through more than one path are placed once, by the first tree that
// discovers them; a link leading back onto the current path is a cycle and
// fails the layout. [Flow.SnapToGrid] moves every node to the centre of
// its grid cell without looking at connectivity.
//
// # Events
//
// Observers registered with [Flow.Subscribe] receive an [Event] for every
// mutation, synchronously and in registration order, before the mutating
// call returns.
//
// # Concurrency
//
// Flow instances are not safe for concurrent use. Every operation runs to
// completion before returning; callers sharing a flow across goroutines
// must synchronize access.
package flow
