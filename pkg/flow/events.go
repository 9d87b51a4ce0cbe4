package flow

// EventType identifies what changed in a flow.
type EventType int

const (
	// EventNodeAdded fires after a node joins the flow.
	EventNodeAdded EventType = iota
	// EventNodeMoved fires after a node's position changes.
	EventNodeMoved
	// EventNodeRemoved fires after a node and all its links are gone.
	EventNodeRemoved
	// EventNodeStatus fires after a node's status or progress changes.
	EventNodeStatus
	// EventLinkEstablished fires after a link is registered in both indices.
	EventLinkEstablished
	// EventLinkRemoved fires after a link is removed from both indices.
	EventLinkRemoved
)

var eventNames = [...]string{
	EventNodeAdded:       "nodeAdded",
	EventNodeMoved:       "nodeMoved",
	EventNodeRemoved:     "nodeRemoved",
	EventNodeStatus:      "nodeStatus",
	EventLinkEstablished: "linkEstablished",
	EventLinkRemoved:     "linkRemoved",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event describes one mutation. Node events carry NodeID and Node; link
// events carry Link, whose endpoints and key are available through its
// accessors.
type Event struct {
	Type   EventType
	NodeID string
	Node   *Node
	Link   *Link
}

// Observer receives flow events.
type Observer func(Event)

type subscription struct {
	fn     Observer
	active bool
}

// Subscribe registers an observer and returns a function that removes it.
// Observers run synchronously, in registration order, inside the call that
// caused the event. They must not mutate the flow.
func (f *Flow) Subscribe(fn Observer) (unsubscribe func()) {
	s := &subscription{fn: fn, active: true}
	f.observers = append(f.observers, s)
	return func() {
		s.active = false
		for i, o := range f.observers {
			if o == s {
				f.observers = append(f.observers[:i:i], f.observers[i+1:]...)
				return
			}
		}
	}
}

func (f *Flow) emit(e Event) {
	for _, s := range f.observers {
		if s.active {
			s.fn(e)
		}
	}
}
