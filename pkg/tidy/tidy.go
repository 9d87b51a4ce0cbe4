package tidy

// distance is the minimum column separation between neighbouring nodes.
const distance = 1.0

// Tree is a rooted tree with ordered children. Child order is significant:
// it becomes the left-to-right order in the layout.
type Tree struct {
	ID       string
	Children []*Tree
}

// Size returns the number of nodes in the tree.
func (t *Tree) Size() int {
	if t == nil {
		return 0
	}
	n := 1
	for _, c := range t.Children {
		n += c.Size()
	}
	return n
}

// Height returns the number of rows the tree occupies (1 for a single node).
func (t *Tree) Height() int {
	if t == nil {
		return 0
	}
	h := 0
	for _, c := range t.Children {
		h = max(h, c.Height())
	}
	return h + 1
}

// Position is the computed placement of one tree node.
type Position struct {
	ID     string
	Row    int     // depth from the root
	Column float64 // horizontal offset, >= 0
}

// Layout computes positions for every node of t, in pre-order.
// It returns nil for a nil tree.
func Layout(t *Tree) []Position {
	if t == nil {
		return nil
	}
	root := newNode(t, nil, 0, 1)
	firstWalk(root)
	if lo := secondWalk(root, 0, 0, root.x); lo < 0 {
		thirdWalk(root, -lo)
	}
	out := make([]Position, 0, t.Size())
	return collect(root, out)
}

// node is the working state for one tree node during layout.
type node struct {
	id       string
	children []*node
	parent   *node
	number   int // 1-based index among siblings
	row      int

	x        float64
	mod      float64
	thread   *node
	ancestor *node
	change   float64
	shift    float64
}

func newNode(t *Tree, parent *node, depth, number int) *node {
	v := &node{
		id:     t.ID,
		parent: parent,
		number: number,
		row:    depth,
	}
	v.ancestor = v
	v.children = make([]*node, len(t.Children))
	for i, c := range t.Children {
		v.children[i] = newNode(c, v, depth+1, i+1)
	}
	return v
}

// left returns the next node on the left contour.
func (v *node) left() *node {
	if v.thread != nil {
		return v.thread
	}
	if len(v.children) > 0 {
		return v.children[0]
	}
	return nil
}

// right returns the next node on the right contour.
func (v *node) right() *node {
	if v.thread != nil {
		return v.thread
	}
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return nil
}

// leftBrother returns the immediate left sibling, or nil.
func (v *node) leftBrother() *node {
	if v.parent == nil || v.number == 1 {
		return nil
	}
	return v.parent.children[v.number-2]
}

// leftmostSibling returns the first child of v's parent, or nil if v is
// itself the first child.
func (v *node) leftmostSibling() *node {
	if v.parent == nil || v.number == 1 {
		return nil
	}
	return v.parent.children[0]
}

func firstWalk(v *node) {
	if len(v.children) == 0 {
		if w := v.leftBrother(); w != nil {
			v.x = w.x + distance
		} else {
			v.x = 0
		}
		return
	}

	defaultAncestor := v.children[0]
	for _, w := range v.children {
		firstWalk(w)
		defaultAncestor = apportion(w, defaultAncestor)
	}
	executeShifts(v)

	midX := (v.children[0].x + v.children[len(v.children)-1].x) / 2
	if w := v.leftBrother(); w != nil {
		v.x = w.x + distance
		v.mod = v.x - midX
	} else {
		v.x = midX
	}
}

// apportion pushes the subtree rooted at v right until it clears every
// subtree to its left, walking both inside and outside contours in step.
func apportion(v, defaultAncestor *node) *node {
	w := v.leftBrother()
	if w == nil {
		return defaultAncestor
	}

	// i/o: inside/outside contour, r/l: right/left subtree.
	vir, vor := v, v
	vil, vol := w, v.leftmostSibling()
	sir, sor := v.mod, v.mod
	sil, sol := vil.mod, vol.mod

	for vil.right() != nil && vir.left() != nil {
		vil = vil.right()
		vir = vir.left()
		vol = vol.left()
		vor = vor.right()

		vor.ancestor = v

		if shift := (vil.x + sil) - (vir.x + sir) + distance; shift > 0 {
			moveSubtree(ancestor(vil, v, defaultAncestor), v, shift)
			sir += shift
			sor += shift
		}

		sil += vil.mod
		sir += vir.mod
		sol += vol.mod
		sor += vor.mod
	}

	if vil.right() != nil && vor.right() == nil {
		vor.thread = vil.right()
		vor.mod += sil - sor
		return defaultAncestor
	}
	if vir.left() != nil && vol.left() == nil {
		vol.thread = vir.left()
		vol.mod += sir - sol
	}
	return v
}

// moveSubtree shifts wr right and records how the shift is spread over the
// siblings between wl and wr; executeShifts applies it later.
func moveSubtree(wl, wr *node, shift float64) {
	subtrees := float64(wr.number - wl.number)
	wr.change -= shift / subtrees
	wr.shift += shift
	wl.change += shift / subtrees
	wr.x += shift
	wr.mod += shift
}

func executeShifts(v *node) {
	var shift, change float64
	for i := len(v.children) - 1; i >= 0; i-- {
		c := v.children[i]
		c.x += shift
		c.mod += shift
		change += c.change
		shift += c.shift + change
	}
}

// ancestor returns vil's recorded ancestor when it is a sibling of v,
// otherwise the default ancestor.
func ancestor(vil, v, defaultAncestor *node) *node {
	if a := vil.ancestor; a.parent != nil && a.parent == v.parent {
		return a
	}
	return defaultAncestor
}

// secondWalk turns provisional columns into final ones and returns the
// smallest column seen.
func secondWalk(v *node, m float64, depth int, lo float64) float64 {
	v.x += m
	v.row = depth
	lo = min(lo, v.x)
	for _, c := range v.children {
		lo = secondWalk(c, m+v.mod, depth+1, lo)
	}
	return lo
}

func thirdWalk(v *node, n float64) {
	v.x += n
	for _, c := range v.children {
		thirdWalk(c, n)
	}
}

func collect(v *node, out []Position) []Position {
	out = append(out, Position{ID: v.id, Row: v.row, Column: v.x})
	for _, c := range v.children {
		out = collect(c, out)
	}
	return out
}
