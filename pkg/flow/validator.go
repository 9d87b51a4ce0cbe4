package flow

import (
	"errors"
	"fmt"
)

// Sentinel reasons returned by [CheckConnection]. A rejected connection is
// a validation result, not a failure of the flow.
var (
	// ErrUnknownNode means one of the endpoint nodes is not in the flow.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownPort means one of the endpoint ports is not on its node.
	ErrUnknownPort = errors.New("unknown port")

	// ErrWrongDirection means the source endpoint is not a source port or
	// the sink endpoint is not a sink port.
	ErrWrongDirection = errors.New("port used in the wrong direction")

	// ErrTypeMismatch means the two ports share no data type and neither
	// accepts AnyType.
	ErrTypeMismatch = errors.New("incompatible data types")
)

// IsConnectable reports whether a link from the source port to the sink
// port would be legal in the flow's current state.
func IsConnectable(f *Flow, sourceNodeID, sourcePortID, sinkNodeID, sinkPortID string) bool {
	return CheckConnection(f, sourceNodeID, sourcePortID, sinkNodeID, sinkPortID) == nil
}

// CheckConnection runs the topology checks in order and returns the first
// failure wrapped with the offending endpoint, or nil:
//
//  1. both nodes exist and carry the named ports
//  2. the source port is a [Source] and the sink port a [Sink]
//  3. the ports' data type sets intersect, [AnyType] matching everything
//
// Sink occupancy is not checked here; [Flow.Connect] replaces the
// occupying link instead of refusing.
func CheckConnection(f *Flow, sourceNodeID, sourcePortID, sinkNodeID, sinkPortID string) error {
	src, err := lookupPort(f, sourceNodeID, sourcePortID)
	if err != nil {
		return err
	}
	dst, err := lookupPort(f, sinkNodeID, sinkPortID)
	if err != nil {
		return err
	}

	if src.direction != Source {
		return fmt.Errorf("%w: %s is a %s port", ErrWrongDirection, portRef(sourceNodeID, sourcePortID), src.direction)
	}
	if dst.direction != Sink {
		return fmt.Errorf("%w: %s is a %s port", ErrWrongDirection, portRef(sinkNodeID, sinkPortID), dst.direction)
	}

	if !compatibleTypes(src.dataTypes, dst.dataTypes) {
		return fmt.Errorf("%w: %v -> %v", ErrTypeMismatch, src.dataTypes, dst.dataTypes)
	}
	return nil
}

func lookupPort(f *Flow, nodeID, portID string) (*Port, error) {
	n, ok := f.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, nodeID)
	}
	p, ok := n.ports[portID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPort, portRef(nodeID, portID))
	}
	return p, nil
}
