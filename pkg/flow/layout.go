package flow

import (
	"strings"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
	"github.com/matzehuels/flowmaker/pkg/tidy"
)

// Roots returns, in insertion order, the nodes none of whose sink ports is
// connected. Nodes without sink ports are always roots.
func (f *Flow) Roots() []*Node {
	var roots []*Node
	for _, id := range f.nodeOrder {
		n := f.nodes[id]
		if !f.hasConnectedSink(n) {
			roots = append(roots, n)
		}
	}
	return roots
}

func (f *Flow) hasConnectedSink(n *Node) bool {
	for _, p := range n.ports {
		if p.direction == Sink && p.IsConnected() {
			return true
		}
	}
	return false
}

// LayoutTree builds the tree auto layout uses for the given root: children
// follow downstream links in port order, then link order. A node reachable
// along several paths appears once, under the first parent that reaches it.
// A link leading back to a node on the current path fails with
// ErrCodeLayoutCycle.
func (f *Flow) LayoutTree(rootID string) (*tidy.Tree, error) {
	if _, ok := f.nodes[rootID]; !ok {
		return nil, errs.New(errs.ErrCodeNodeNotFound, "node %q not found", rootID)
	}
	b := newTreeBuilder(f, nil)
	return b.visit(rootID)
}

type treeBuilder struct {
	f      *Flow
	placed map[string]bool // nodes positioned by earlier trees
	seen   map[string]bool
	onPath map[string]bool
	path   []string
}

func newTreeBuilder(f *Flow, placed map[string]bool) *treeBuilder {
	return &treeBuilder{
		f:      f,
		placed: placed,
		seen:   make(map[string]bool),
		onPath: make(map[string]bool),
	}
}

func (b *treeBuilder) visit(id string) (*tidy.Tree, error) {
	b.seen[id] = true
	b.onPath[id] = true
	b.path = append(b.path, id)

	t := &tidy.Tree{ID: id}
	for _, child := range b.f.downstreamIDs(id) {
		if b.onPath[child] {
			cycle := append(b.path[:len(b.path):len(b.path)], child)
			return nil, errs.New(errs.ErrCodeLayoutCycle, "cycle through %s", strings.Join(cycle, " -> "))
		}
		if b.seen[child] || b.placed[child] {
			continue
		}
		sub, err := b.visit(child)
		if err != nil {
			return nil, err
		}
		t.Children = append(t.Children, sub)
	}

	b.onPath[id] = false
	b.path = b.path[:len(b.path)-1]
	return t, nil
}

// AutoLayout positions every node from the flow's connectivity.
//
// Each root (see [Flow.Roots]) yields a tree (see [Flow.LayoutTree]) that
// is laid out by [tidy.Layout]. A node at (row, column) of a tree lands on
// the centre of grid cell (column, row+offset), where offset is the number
// of rows taken by the trees placed before it, so trees never share rows.
// Nodes already placed by an earlier tree are not revisited. Nodes no root
// reaches fill one extra row below all trees, in insertion order.
//
// A cycle reachable from a root fails the call with ErrCodeLayoutCycle.
// Trees laid out before the failing one keep their new positions; the
// failing tree's nodes and all unreached nodes keep their old ones.
func (f *Flow) AutoLayout(cellWidth, cellHeight float64) error {
	if err := errs.ValidateGrid(cellWidth, cellHeight); err != nil {
		return err
	}

	placed := make(map[string]bool, len(f.nodes))
	rowOffset := 0
	trees := 0
	for _, root := range f.Roots() {
		tree, err := newTreeBuilder(f, placed).visit(root.id)
		if err != nil {
			f.logger.Debug("auto layout aborted", "root", root.id, "err", err)
			return err
		}
		for _, p := range tidy.Layout(tree) {
			x, y := CellCenter(p.Column, float64(p.Row+rowOffset), cellWidth, cellHeight)
			f.setPosition(p.ID, x, y)
			placed[p.ID] = true
		}
		rowOffset += tree.Height()
		trees++
	}

	col := 0
	for _, id := range f.nodeOrder {
		if placed[id] {
			continue
		}
		x, y := CellCenter(float64(col), float64(rowOffset), cellWidth, cellHeight)
		f.setPosition(id, x, y)
		col++
	}
	if col > 0 {
		rowOffset++
	}

	f.logger.Debug("auto layout complete", "trees", trees, "unreached", col, "rows", rowOffset)
	return nil
}
