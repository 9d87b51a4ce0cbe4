package flow

import "slices"

// AnyType is the data type that is compatible with every other type.
const AnyType = "any"

// Direction is the role a port plays in a link.
type Direction int

const (
	// Sink ports accept at most one incoming link. They sit on the left side.
	Sink Direction = iota
	// Source ports originate any number of links. They sit on the right side.
	Source
)

// String returns "sink" or "source".
func (d Direction) String() string {
	if d == Source {
		return "source"
	}
	return "sink"
}

// Side returns the node side the port is drawn on: "left" or "right".
func (d Direction) Side() string {
	if d == Source {
		return "right"
	}
	return "left"
}

// ParseDirection accepts "source"/"output" and "sink"/"input".
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "source", "output", "out":
		return Source, true
	case "sink", "input", "in":
		return Sink, true
	}
	return Sink, false
}

// PortSpec describes a port to create on a new node.
type PortSpec struct {
	// ID is scoped to the node. Empty means "{side}-{index}", where index
	// counts ports of the same direction in declaration order.
	ID        string
	Direction Direction
	// Optional ports do not affect [Node.Runnable].
	Optional bool
	// DataTypes accepted by the port. Empty means [AnyType].
	DataTypes []string
}

// Port is a typed connection point owned by exactly one node.
type Port struct {
	id        string
	direction Direction
	optional  bool
	dataTypes []string
	links     []LinkKey

	// position among ports on the same side, used for anchors
	index int
}

// ID returns the port id, unique within its node.
func (p *Port) ID() string { return p.id }

// Direction returns whether the port is a source or a sink.
func (p *Port) Direction() Direction { return p.direction }

// Optional reports whether the port may stay unconnected on a runnable node.
func (p *Port) Optional() bool { return p.optional }

// DataTypes returns a copy of the accepted data types.
func (p *Port) DataTypes() []string { return slices.Clone(p.dataTypes) }

// Links returns a copy of the keys of the links attached to the port, in
// the order they were established.
func (p *Port) Links() []LinkKey { return slices.Clone(p.links) }

// IsConnected reports whether at least one link is attached.
func (p *Port) IsConnected() bool { return len(p.links) > 0 }

func (p *Port) addLink(k LinkKey) { p.links = append(p.links, k) }

func (p *Port) removeLink(k LinkKey) {
	p.links = slices.DeleteFunc(p.links, func(x LinkKey) bool { return x == k })
}

// compatibleTypes reports whether two data type sets intersect, treating
// AnyType on either side as a match.
func compatibleTypes(a, b []string) bool {
	if slices.Contains(a, AnyType) || slices.Contains(b, AnyType) {
		return true
	}
	for _, t := range a {
		if slices.Contains(b, t) {
			return true
		}
	}
	return false
}
