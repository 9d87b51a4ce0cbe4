package flow

import "testing"

func in(types ...string) PortSpec  { return PortSpec{Direction: Sink, DataTypes: types} }
func out(types ...string) PortSpec { return PortSpec{Direction: Source, DataTypes: types} }

func optIn(types ...string) PortSpec {
	return PortSpec{Direction: Sink, Optional: true, DataTypes: types}
}

// addNode creates a node with the given id and ports and adds it at (x, y).
func addNode(t *testing.T, f *Flow, id string, x, y float64, ports ...PortSpec) *Node {
	t.Helper()
	n, err := NewNode(NodeSpec{ID: id, Name: id, Ports: ports})
	if err != nil {
		t.Fatalf("NewNode(%s): %v", id, err)
	}
	if _, err := f.AddNode(n, x, y); err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
	return n
}

func connect(t *testing.T, f *Flow, src, srcPort, dst, dstPort string) *Link {
	t.Helper()
	l := f.Connect(src, srcPort, dst, dstPort)
	if l == nil {
		t.Fatalf("Connect(%s:%s -> %s:%s) rejected: %v", src, srcPort, dst, dstPort,
			CheckConnection(f, src, srcPort, dst, dstPort))
	}
	return l
}

func mustValidate(t *testing.T, f *Flow) {
	t.Helper()
	if err := f.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

// recorder collects events in arrival order.
type recorder struct {
	events []Event
}

func (r *recorder) observe(e Event) { r.events = append(r.events, e) }

func (r *recorder) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
