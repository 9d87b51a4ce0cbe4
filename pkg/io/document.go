package io

import (
	"fmt"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
	"github.com/matzehuels/flowmaker/pkg/flow"
)

// Document is the serialized form of a flow.
type Document struct {
	Nodes []Node `json:"nodes" toml:"nodes" yaml:"nodes"`
	Links []Link `json:"links,omitempty" toml:"links,omitempty" yaml:"links,omitempty"`
}

// Node is one node entry.
type Node struct {
	ID    string        `json:"id,omitempty" toml:"id,omitempty" yaml:"id,omitempty"`
	Name  string        `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty"`
	X     float64       `json:"x" toml:"x" yaml:"x"`
	Y     float64       `json:"y" toml:"y" yaml:"y"`
	Ports []Port        `json:"ports,omitempty" toml:"ports,omitempty" yaml:"ports,omitempty"`
	Meta  flow.Metadata `json:"meta,omitempty" toml:"meta,omitempty" yaml:"meta,omitempty"`
}

// Port is one port entry.
type Port struct {
	ID        string   `json:"id,omitempty" toml:"id,omitempty" yaml:"id,omitempty"`
	Direction string   `json:"direction" toml:"direction" yaml:"direction"`
	Optional  bool     `json:"optional,omitempty" toml:"optional,omitempty" yaml:"optional,omitempty"`
	Types     []string `json:"types,omitempty" toml:"types,omitempty" yaml:"types,omitempty"`
}

// Link is one link entry.
type Link struct {
	From     string        `json:"from" toml:"from" yaml:"from"`
	FromPort string        `json:"from_port" toml:"from_port" yaml:"from_port"`
	To       string        `json:"to" toml:"to" yaml:"to"`
	ToPort   string        `json:"to_port" toml:"to_port" yaml:"to_port"`
	Label    string        `json:"label,omitempty" toml:"label,omitempty" yaml:"label,omitempty"`
	Meta     flow.Metadata `json:"meta,omitempty" toml:"meta,omitempty" yaml:"meta,omitempty"`
}

// Key returns the key the link would have in a flow.
func (l Link) Key() flow.LinkKey {
	return flow.MakeLinkKey(l.From, l.FromPort, l.To, l.ToPort)
}

// Rejection records a document link the validator refused.
type Rejection struct {
	Link Link
	Err  error
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %v", r.Link.Key(), r.Err)
}

// NewNode creates a standalone flow node from the document node. The
// position is not applied; it is passed to [flow.Flow.AddNode].
func (dn Node) NewNode() (*flow.Node, error) {
	spec := flow.NodeSpec{ID: dn.ID, Name: dn.Name, Meta: dn.Meta}
	for _, dp := range dn.Ports {
		dir, ok := flow.ParseDirection(dp.Direction)
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "port %q: unknown direction %q", dp.ID, dp.Direction)
		}
		spec.Ports = append(spec.Ports, flow.PortSpec{
			ID:        dp.ID,
			Direction: dir,
			Optional:  dp.Optional,
			DataTypes: dp.Types,
		})
	}
	return flow.NewNode(spec)
}

// Build creates a flow from the document.
//
// Node and port errors (bad ids, duplicates, unknown directions) fail the
// build. Links the validator rejects are skipped and returned as
// rejections.
func Build(d *Document, opts ...flow.Option) (*flow.Flow, []Rejection, error) {
	f := flow.New(opts...)

	for i, dn := range d.Nodes {
		n, err := dn.NewNode()
		if err != nil {
			return nil, nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "node %d (%s)", i, dn.ID)
		}
		if _, err := f.AddNode(n, dn.X, dn.Y); err != nil {
			return nil, nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "node %d (%s)", i, dn.ID)
		}
	}

	var rejected []Rejection
	for _, dl := range d.Links {
		if err := flow.CheckConnection(f, dl.From, dl.FromPort, dl.To, dl.ToPort); err != nil {
			rejected = append(rejected, Rejection{Link: dl, Err: err})
			continue
		}
		var lopts []flow.LinkOption
		if dl.Label != "" {
			lopts = append(lopts, flow.WithLabel(dl.Label))
		}
		if len(dl.Meta) > 0 {
			lopts = append(lopts, flow.WithLinkMeta(dl.Meta))
		}
		f.Connect(dl.From, dl.FromPort, dl.To, dl.ToPort, lopts...)
	}

	return f, rejected, nil
}

// FromFlow captures the nodes, positions and links of a flow.
func FromFlow(f *flow.Flow) *Document {
	d := &Document{}
	for _, n := range f.Nodes() {
		x, y := n.Position()
		dn := Node{ID: n.ID(), Name: n.Name(), X: x, Y: y}
		if len(n.Meta()) > 0 {
			dn.Meta = n.Meta()
		}
		for _, p := range n.Ports() {
			dp := Port{ID: p.ID(), Direction: p.Direction().String(), Optional: p.Optional()}
			if types := p.DataTypes(); !(len(types) == 1 && types[0] == flow.AnyType) {
				dp.Types = types
			}
			dn.Ports = append(dn.Ports, dp)
		}
		d.Nodes = append(d.Nodes, dn)
	}
	for _, l := range f.Links() {
		dl := Link{
			From:     l.SourceNodeID(),
			FromPort: l.SourcePortID(),
			To:       l.SinkNodeID(),
			ToPort:   l.SinkPortID(),
			Label:    l.Label(),
		}
		if len(l.Meta()) > 0 {
			dl.Meta = l.Meta()
		}
		d.Links = append(d.Links, dl)
	}
	return d
}
