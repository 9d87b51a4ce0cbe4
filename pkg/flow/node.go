package flow

import (
	"fmt"
	"maps"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
)

// NodeSize is the edge length of the square a node occupies when drawn.
// Port anchors are computed against it.
const NodeSize = 40.0

// Metadata stores arbitrary key-value pairs attached to nodes or links.
type Metadata map[string]any

// NodeSpec describes a node to create with [NewNode].
type NodeSpec struct {
	// ID is optional. When empty the flow assigns one on insertion.
	ID    string
	Name  string
	Ports []PortSpec
	Meta  Metadata
}

// Node is a positioned entity owning a fixed set of ports.
//
// A node is created standalone and becomes owned by a flow through
// [Flow.AddNode]; from then on its id is fixed and its position changes
// only through the flow so observers are notified.
type Node struct {
	id   string
	name string
	meta Metadata

	x, y float64

	ports     map[string]*Port
	portOrder []string
	sideCount [2]int

	runnable bool
	owned    bool

	status   string
	progress float64
}

// NewNode creates a standalone node. It returns an error when a port id
// is invalid or used twice.
func NewNode(spec NodeSpec) (*Node, error) {
	if spec.ID != "" {
		if err := errs.ValidateNodeID(spec.ID); err != nil {
			return nil, err
		}
	}

	n := &Node{
		id:    spec.ID,
		name:  spec.Name,
		meta:  maps.Clone(spec.Meta),
		ports: make(map[string]*Port, len(spec.Ports)),
	}
	if n.meta == nil {
		n.meta = Metadata{}
	}

	for _, ps := range spec.Ports {
		if ps.Direction != Sink && ps.Direction != Source {
			return nil, errs.New(errs.ErrCodeInvalidInput, "port %q has unknown direction %d", ps.ID, ps.Direction)
		}
		idx := n.sideCount[ps.Direction]
		id := ps.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", ps.Direction.Side(), idx)
		}
		if err := errs.ValidatePortID(id); err != nil {
			return nil, err
		}
		if _, dup := n.ports[id]; dup {
			return nil, errs.New(errs.ErrCodeDuplicate, "port %q declared twice", id)
		}

		types := ps.DataTypes
		if len(types) == 0 {
			types = []string{AnyType}
		}
		n.ports[id] = &Port{
			id:        id,
			direction: ps.Direction,
			optional:  ps.Optional,
			dataTypes: append([]string(nil), types...),
			index:     idx,
		}
		n.portOrder = append(n.portOrder, id)
		n.sideCount[ps.Direction]++
	}

	n.updateRunnable()
	return n, nil
}

// ID returns the node id. It is empty until the node is added to a flow,
// unless one was supplied in the spec.
func (n *Node) ID() string { return n.id }

// Name returns the display name.
func (n *Node) Name() string { return n.name }

// Meta returns the node metadata. The map is never nil.
func (n *Node) Meta() Metadata { return n.meta }

// Position returns the node centre.
func (n *Node) Position() (x, y float64) { return n.x, n.y }

// Owned reports whether the node currently belongs to a flow.
func (n *Node) Owned() bool { return n.owned }

// Port returns the port with the given id.
func (n *Node) Port(id string) (*Port, bool) {
	p, ok := n.ports[id]
	return p, ok
}

// Ports returns the node's ports in declaration order.
func (n *Node) Ports() []*Port {
	out := make([]*Port, len(n.portOrder))
	for i, id := range n.portOrder {
		out[i] = n.ports[id]
	}
	return out
}

// Runnable reports whether every non-optional port has at least one link.
func (n *Node) Runnable() bool { return n.runnable }

// Status returns the last status pushed to the node.
func (n *Node) Status() string { return n.status }

// Progress returns the last progress value pushed to the node, in [0, 1].
func (n *Node) Progress() float64 { return n.progress }

// PortAnchor returns the point where links attach to the port: sink ports
// on the left edge, source ports on the right, spread evenly from top to
// bottom in declaration order.
func (n *Node) PortAnchor(portID string) (x, y float64, ok bool) {
	p, ok := n.ports[portID]
	if !ok {
		return 0, 0, false
	}
	half := NodeSize / 2
	x = n.x - half
	if p.direction == Source {
		x = n.x + half
	}
	count := float64(n.sideCount[p.direction])
	y = n.y - half + NodeSize*float64(p.index+1)/(count+1)
	return x, y, true
}

func (n *Node) updateRunnable() {
	for _, p := range n.ports {
		if !p.optional && !p.IsConnected() {
			n.runnable = false
			return
		}
	}
	n.runnable = true
}
