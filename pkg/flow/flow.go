package flow

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
)

// Flow is the owning container of nodes and links and the index over
// their connectivity.
//
// The zero value is not usable - use New.
type Flow struct {
	nodes     map[string]*Node
	nodeOrder []string

	links     map[LinkKey]*Link
	linkOrder []LinkKey
	bySource  map[string]map[LinkKey]*Link // "node:port" -> links leaving the port
	bySink    map[string]*Link             // "node:port" -> the link entering the port

	ids       IDSource
	observers []*subscription
	logger    *log.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the logger used for debug output. By default the flow
// discards its logs.
func WithLogger(l *log.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithIDSource replaces the default [Sequence] id source.
func WithIDSource(s IDSource) Option {
	return func(f *Flow) {
		if s != nil {
			f.ids = s
		}
	}
}

// New creates an empty flow.
func New(opts ...Option) *Flow {
	f := &Flow{
		nodes:    make(map[string]*Node),
		links:    make(map[LinkKey]*Link),
		bySource: make(map[string]map[LinkKey]*Link),
		bySink:   make(map[string]*Link),
		ids:      &Sequence{},
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AddNode places a standalone node into the flow at (x, y) and returns it.
//
// The node keeps its spec id if it has one, otherwise the flow assigns the
// next free id from its [IDSource]. Adding a node that already belongs to
// a flow fails with ErrCodeAlreadyOwned, reusing an id fails with
// ErrCodeDuplicate; in both cases the flow is unchanged.
func (f *Flow) AddNode(n *Node, x, y float64) (*Node, error) {
	if n == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "node is nil")
	}
	if n.owned {
		return nil, errs.New(errs.ErrCodeAlreadyOwned, "node %q already belongs to a flow", n.id)
	}

	id := n.id
	if id != "" {
		if _, exists := f.nodes[id]; exists {
			return nil, errs.New(errs.ErrCodeDuplicate, "node id %q already in use", id)
		}
	} else {
		for id == "" || f.nodes[id] != nil {
			id = f.ids.Next()
		}
		if err := errs.ValidateNodeID(id); err != nil {
			return nil, err
		}
	}

	n.id = id
	n.owned = true
	n.x, n.y = x, y
	f.nodes[id] = n
	f.nodeOrder = append(f.nodeOrder, id)

	f.logger.Debug("node added", "id", id, "name", n.name, "x", x, "y", y)
	f.emit(Event{Type: EventNodeAdded, NodeID: id, Node: n})
	return n, nil
}

// RemoveNode removes the node and every link touching any of its ports.
// Each link removal is announced before the node removal.
func (f *Flow) RemoveNode(id string) error {
	n, ok := f.nodes[id]
	if !ok {
		return errs.New(errs.ErrCodeNodeNotFound, "node %q not found", id)
	}

	for _, pid := range n.portOrder {
		for _, k := range n.ports[pid].Links() {
			if l, ok := f.links[k]; ok {
				f.removeLink(l)
			}
		}
	}

	delete(f.nodes, id)
	f.nodeOrder = slices.DeleteFunc(f.nodeOrder, func(s string) bool { return s == id })
	n.owned = false

	f.logger.Debug("node removed", "id", id)
	f.emit(Event{Type: EventNodeRemoved, NodeID: id, Node: n})
	return nil
}

// Connect links a source port to a sink port and returns the new link.
//
// It returns nil, without touching the flow, when [CheckConnection]
// rejects the pair. If the sink port is occupied the existing link is
// removed first, and its removal is fully announced before the new link
// is. Connecting the same endpoints twice returns the existing link.
func (f *Flow) Connect(sourceNodeID, sourcePortID, sinkNodeID, sinkPortID string, opts ...LinkOption) *Link {
	key := MakeLinkKey(sourceNodeID, sourcePortID, sinkNodeID, sinkPortID)
	if err := CheckConnection(f, sourceNodeID, sourcePortID, sinkNodeID, sinkPortID); err != nil {
		f.logger.Debug("connection rejected", "link", key, "reason", err)
		return nil
	}
	if existing, ok := f.links[key]; ok && existing.joins(sourceNodeID, sourcePortID, sinkNodeID, sinkPortID) {
		return existing
	} else if ok {
		f.logger.Error("link key collision", "link", key)
		return nil
	}

	sinkRef := portRef(sinkNodeID, sinkPortID)
	if old := f.bySink[sinkRef]; old != nil {
		f.logger.Debug("replacing link on sink port", "old", old.Key(), "new", key)
		f.removeLink(old)
	}

	l := &Link{
		sourceNodeID: sourceNodeID,
		sourcePortID: sourcePortID,
		sinkNodeID:   sinkNodeID,
		sinkPortID:   sinkPortID,
		meta:         Metadata{},
	}
	for _, opt := range opts {
		opt(l)
	}

	srcRef := portRef(sourceNodeID, sourcePortID)
	f.links[key] = l
	f.linkOrder = append(f.linkOrder, key)
	if f.bySource[srcRef] == nil {
		f.bySource[srcRef] = make(map[LinkKey]*Link)
	}
	f.bySource[srcRef][key] = l
	f.bySink[sinkRef] = l

	src, dst := f.nodes[sourceNodeID], f.nodes[sinkNodeID]
	src.ports[sourcePortID].addLink(key)
	dst.ports[sinkPortID].addLink(key)
	src.updateRunnable()
	dst.updateRunnable()

	f.logger.Debug("link established", "link", key)
	f.emit(Event{Type: EventLinkEstablished, Link: l})
	return l
}

// RemoveLink removes the link with the given key.
func (f *Flow) RemoveLink(key LinkKey) error {
	l, ok := f.links[key]
	if !ok {
		return errs.New(errs.ErrCodeLinkNotFound, "link %q not found", key)
	}
	f.removeLink(l)
	return nil
}

func (f *Flow) removeLink(l *Link) {
	key := l.Key()
	srcRef := portRef(l.sourceNodeID, l.sourcePortID)
	sinkRef := portRef(l.sinkNodeID, l.sinkPortID)

	delete(f.links, key)
	f.linkOrder = slices.DeleteFunc(f.linkOrder, func(k LinkKey) bool { return k == key })
	if bucket := f.bySource[srcRef]; bucket != nil {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(f.bySource, srcRef)
		}
	}
	if f.bySink[sinkRef] == l {
		delete(f.bySink, sinkRef)
	}

	for _, end := range [2][2]string{{l.sourceNodeID, l.sourcePortID}, {l.sinkNodeID, l.sinkPortID}} {
		if n := f.nodes[end[0]]; n != nil {
			if p := n.ports[end[1]]; p != nil {
				p.removeLink(key)
			}
			n.updateRunnable()
		}
	}

	f.logger.Debug("link removed", "link", key)
	f.emit(Event{Type: EventLinkRemoved, Link: l})
}

// MoveNode sets a node's position.
func (f *Flow) MoveNode(id string, x, y float64) error {
	if _, ok := f.nodes[id]; !ok {
		return errs.New(errs.ErrCodeNodeNotFound, "node %q not found", id)
	}
	f.setPosition(id, x, y)
	return nil
}

// setPosition moves a node and announces it when the position changed.
func (f *Flow) setPosition(id string, x, y float64) {
	n := f.nodes[id]
	if n.x == x && n.y == y {
		return
	}
	n.x, n.y = x, y
	f.emit(Event{Type: EventNodeMoved, NodeID: id, Node: n})
}

// SetStatus records a status string on the node.
func (f *Flow) SetStatus(id, status string) error {
	n, ok := f.nodes[id]
	if !ok {
		return errs.New(errs.ErrCodeNodeNotFound, "node %q not found", id)
	}
	n.status = status
	f.emit(Event{Type: EventNodeStatus, NodeID: id, Node: n})
	return nil
}

// SetProgress records a progress value on the node, clamped to [0, 1].
func (f *Flow) SetProgress(id string, progress float64) error {
	n, ok := f.nodes[id]
	if !ok {
		return errs.New(errs.ErrCodeNodeNotFound, "node %q not found", id)
	}
	n.progress = min(max(progress, 0), 1)
	f.emit(Event{Type: EventNodeStatus, NodeID: id, Node: n})
	return nil
}

// Node returns the node with the given id.
func (f *Flow) Node(id string) (*Node, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// Link returns the link with the given key.
func (f *Flow) Link(key LinkKey) (*Link, bool) {
	l, ok := f.links[key]
	return l, ok
}

// Nodes returns all nodes in insertion order.
func (f *Flow) Nodes() []*Node {
	out := make([]*Node, len(f.nodeOrder))
	for i, id := range f.nodeOrder {
		out[i] = f.nodes[id]
	}
	return out
}

// Links returns all links in the order they were established.
func (f *Flow) Links() []*Link {
	out := make([]*Link, len(f.linkOrder))
	for i, k := range f.linkOrder {
		out[i] = f.links[k]
	}
	return out
}

// NodeCount returns the number of nodes.
func (f *Flow) NodeCount() int { return len(f.nodes) }

// LinkCount returns the number of links.
func (f *Flow) LinkCount() int { return len(f.links) }

// SourceLinks returns the links leaving a source port, in the order they
// were established. It returns nil for unknown or unconnected ports.
func (f *Flow) SourceLinks(nodeID, portID string) []*Link {
	n, ok := f.nodes[nodeID]
	if !ok {
		return nil
	}
	p, ok := n.ports[portID]
	if !ok || p.direction != Source {
		return nil
	}
	bucket := f.bySource[portRef(nodeID, portID)]
	var out []*Link
	for _, k := range p.links {
		if l, ok := bucket[k]; ok {
			out = append(out, l)
		}
	}
	return out
}

// SinkLink returns the link occupying a sink port, or nil.
func (f *Flow) SinkLink(nodeID, portID string) *Link {
	return f.bySink[portRef(nodeID, portID)]
}

// UpstreamNodes returns the nodes feeding the node's sink ports, in port
// order, without duplicates.
func (f *Flow) UpstreamNodes(id string) []*Node {
	n, ok := f.nodes[id]
	if !ok {
		return nil
	}
	var out []*Node
	seen := map[string]bool{}
	for _, pid := range n.portOrder {
		if n.ports[pid].direction != Sink {
			continue
		}
		if l := f.bySink[portRef(id, pid)]; l != nil && !seen[l.sourceNodeID] {
			seen[l.sourceNodeID] = true
			out = append(out, f.nodes[l.sourceNodeID])
		}
	}
	return out
}

// DownstreamNodes returns the nodes fed by the node's source ports, in
// port order then link order, without duplicates.
func (f *Flow) DownstreamNodes(id string) []*Node {
	var out []*Node
	for _, nid := range f.downstreamIDs(id) {
		out = append(out, f.nodes[nid])
	}
	return out
}

func (f *Flow) downstreamIDs(id string) []string {
	n, ok := f.nodes[id]
	if !ok {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, pid := range n.portOrder {
		p := n.ports[pid]
		if p.direction != Source {
			continue
		}
		for _, k := range p.links {
			if l := f.links[k]; l != nil && !seen[l.sinkNodeID] {
				seen[l.sinkNodeID] = true
				out = append(out, l.sinkNodeID)
			}
		}
	}
	return out
}

// Validate checks that the link registry, both adjacency indices and the
// per-port link lists describe the same set of links. A non-nil result
// means the flow is corrupt.
func (f *Flow) Validate() error {
	sourceCount := 0
	for ref, bucket := range f.bySource {
		for k, l := range bucket {
			if f.links[k] != l || portRef(l.sourceNodeID, l.sourcePortID) != ref {
				return errs.New(errs.ErrCodeCorrupt, "source index entry %s -> %s is stale", ref, k)
			}
			sourceCount++
		}
	}
	for ref, l := range f.bySink {
		if f.links[l.Key()] != l || portRef(l.sinkNodeID, l.sinkPortID) != ref {
			return errs.New(errs.ErrCodeCorrupt, "sink index entry %s is stale", ref)
		}
	}
	if sourceCount != len(f.links) || len(f.bySink) != len(f.links) || len(f.linkOrder) != len(f.links) {
		return errs.New(errs.ErrCodeCorrupt, "index sizes disagree: %d links, %d by source, %d by sink",
			len(f.links), sourceCount, len(f.bySink))
	}

	for k, l := range f.links {
		src, okS := f.nodes[l.sourceNodeID]
		dst, okD := f.nodes[l.sinkNodeID]
		if !okS || !okD {
			return errs.New(errs.ErrCodeCorrupt, "link %s references a missing node", k)
		}
		if !slices.Contains(src.ports[l.sourcePortID].links, k) || !slices.Contains(dst.ports[l.sinkPortID].links, k) {
			return errs.New(errs.ErrCodeCorrupt, "link %s missing from its ports", k)
		}
	}
	for _, n := range f.nodes {
		for _, p := range n.ports {
			if p.direction == Sink && len(p.links) > 1 {
				return errs.New(errs.ErrCodeCorrupt, "sink port %s holds %d links", portRef(n.id, p.id), len(p.links))
			}
			for _, k := range p.links {
				if _, ok := f.links[k]; !ok {
					return errs.New(errs.ErrCodeCorrupt, "port %s lists unknown link %s", portRef(n.id, p.id), k)
				}
			}
		}
	}
	return nil
}
