package flow

import "maps"

// LinkKey identifies a link by its endpoints:
// "{sourceNode}:{sourcePort}>{sinkNode}:{sinkPort}". Node and port ids may
// not contain ":" or ">", so a key splits back into its endpoints one way
// only.
type LinkKey string

// MakeLinkKey builds the key of the link between the given endpoints.
func MakeLinkKey(sourceNodeID, sourcePortID, sinkNodeID, sinkPortID string) LinkKey {
	return LinkKey(portRef(sourceNodeID, sourcePortID) + ">" + portRef(sinkNodeID, sinkPortID))
}

// portRef is the adjacency index key of a port.
func portRef(nodeID, portID string) string { return nodeID + ":" + portID }

// Link is a directed edge from a source port to a sink port. Links are
// created only by [Flow.Connect] and never change endpoints.
type Link struct {
	sourceNodeID string
	sourcePortID string
	sinkNodeID   string
	sinkPortID   string

	label string
	meta  Metadata
}

// LinkOption configures a link created by [Flow.Connect].
type LinkOption func(*Link)

// WithLabel sets a display label on the link.
func WithLabel(label string) LinkOption {
	return func(l *Link) { l.label = label }
}

// WithLinkMeta attaches metadata to the link. The map is copied.
func WithLinkMeta(meta Metadata) LinkOption {
	return func(l *Link) { maps.Copy(l.meta, meta) }
}

// Key returns the link's identity.
func (l *Link) Key() LinkKey {
	return MakeLinkKey(l.sourceNodeID, l.sourcePortID, l.sinkNodeID, l.sinkPortID)
}

// SourceNodeID returns the id of the upstream node.
func (l *Link) SourceNodeID() string { return l.sourceNodeID }

// SourcePortID returns the id of the source port on the upstream node.
func (l *Link) SourcePortID() string { return l.sourcePortID }

// SinkNodeID returns the id of the downstream node.
func (l *Link) SinkNodeID() string { return l.sinkNodeID }

// SinkPortID returns the id of the sink port on the downstream node.
func (l *Link) SinkPortID() string { return l.sinkPortID }

// Label returns the display label, if any.
func (l *Link) Label() string { return l.label }

// Meta returns the link metadata. The map is never nil.
func (l *Link) Meta() Metadata { return l.meta }

// Touches reports whether either endpoint is on the given node.
func (l *Link) Touches(nodeID string) bool {
	return l.sourceNodeID == nodeID || l.sinkNodeID == nodeID
}

// joins reports whether the link runs between exactly these endpoints.
func (l *Link) joins(sourceNodeID, sourcePortID, sinkNodeID, sinkPortID string) bool {
	return l.sourceNodeID == sourceNodeID && l.sourcePortID == sourcePortID &&
		l.sinkNodeID == sinkNodeID && l.sinkPortID == sinkPortID
}
