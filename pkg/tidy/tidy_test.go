package tidy

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
)

const eps = 1e-9

// fixture is root -> {A, B}, B -> {C, D, E, F}.
func fixture() *Tree {
	return &Tree{ID: "root", Children: []*Tree{
		{ID: "A"},
		{ID: "B", Children: []*Tree{{ID: "C"}, {ID: "D"}, {ID: "E"}, {ID: "F"}}},
	}}
}

func byID(ps []Position) map[string]Position {
	m := make(map[string]Position, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return m
}

func TestLayoutFixture(t *testing.T) {
	got := byID(Layout(fixture()))

	want := map[string]Position{
		"root": {ID: "root", Row: 0, Column: 1},
		"A":    {ID: "A", Row: 1, Column: 0.5},
		"B":    {ID: "B", Row: 1, Column: 1.5},
		"C":    {ID: "C", Row: 2, Column: 0},
		"D":    {ID: "D", Row: 2, Column: 1},
		"E":    {ID: "E", Row: 2, Column: 2},
		"F":    {ID: "F", Row: 2, Column: 3},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d positions, want %d", len(got), len(want))
	}
	for id, w := range want {
		if g := got[id]; g != w {
			t.Errorf("%s = %+v, want %+v", id, g, w)
		}
	}
}

func TestLayoutSmallTrees(t *testing.T) {
	tests := []struct {
		name string
		tree *Tree
		want map[string]Position
	}{
		{
			name: "single node",
			tree: &Tree{ID: "r"},
			want: map[string]Position{"r": {ID: "r", Row: 0, Column: 0}},
		},
		{
			name: "single child centred",
			tree: &Tree{ID: "r", Children: []*Tree{{ID: "c"}}},
			want: map[string]Position{
				"r": {ID: "r", Row: 0, Column: 0},
				"c": {ID: "c", Row: 1, Column: 0},
			},
		},
		{
			name: "three leaves",
			tree: &Tree{ID: "r", Children: []*Tree{{ID: "a"}, {ID: "b"}, {ID: "c"}}},
			want: map[string]Position{
				"r": {ID: "r", Row: 0, Column: 1},
				"a": {ID: "a", Row: 1, Column: 0},
				"b": {ID: "b", Row: 1, Column: 1},
				"c": {ID: "c", Row: 1, Column: 2},
			},
		},
		{
			name: "two binary subtrees pushed apart",
			tree: &Tree{ID: "r", Children: []*Tree{
				{ID: "a", Children: []*Tree{{ID: "a1"}, {ID: "a2"}}},
				{ID: "b", Children: []*Tree{{ID: "b1"}, {ID: "b2"}}},
			}},
			want: map[string]Position{
				"r":  {ID: "r", Row: 0, Column: 1.5},
				"a":  {ID: "a", Row: 1, Column: 0.5},
				"b":  {ID: "b", Row: 1, Column: 2.5},
				"a1": {ID: "a1", Row: 2, Column: 0},
				"a2": {ID: "a2", Row: 2, Column: 1},
				"b1": {ID: "b1", Row: 2, Column: 2},
				"b2": {ID: "b2", Row: 2, Column: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := byID(Layout(tt.tree))
			for id, w := range tt.want {
				if g := got[id]; g != w {
					t.Errorf("%s = %+v, want %+v", id, g, w)
				}
			}
		})
	}
}

func TestLayoutNil(t *testing.T) {
	if got := Layout(nil); got != nil {
		t.Errorf("Layout(nil) = %v, want nil", got)
	}
}

func TestLayoutPreOrder(t *testing.T) {
	var ids []string
	for _, p := range Layout(fixture()) {
		ids = append(ids, p.ID)
	}
	want := []string{"root", "A", "B", "C", "D", "E", "F"}
	if !slices.Equal(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	tree := randomTree(rng, 200)
	first := Layout(tree)
	second := Layout(tree)
	if !slices.Equal(first, second) {
		t.Error("two layouts of the same tree differ")
	}
}

func TestLayoutProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		tree := randomTree(rng, 1+rng.IntN(60))
		t.Run(fmt.Sprintf("tree%d", i), func(t *testing.T) {
			checkProperties(t, tree, Layout(tree))
		})
	}
}

func TestLayoutDeepChain(t *testing.T) {
	root := &Tree{ID: "0"}
	cur := root
	for i := 1; i < 5000; i++ {
		next := &Tree{ID: fmt.Sprint(i)}
		cur.Children = []*Tree{next}
		cur = next
	}
	ps := Layout(root)
	if len(ps) != 5000 {
		t.Fatalf("got %d positions, want 5000", len(ps))
	}
	for _, p := range ps {
		if p.Column != 0 {
			t.Fatalf("chain node %s at column %v, want 0", p.ID, p.Column)
		}
	}
}

func TestTreeSizeHeight(t *testing.T) {
	tree := fixture()
	if got := tree.Size(); got != 7 {
		t.Errorf("Size() = %d, want 7", got)
	}
	if got := tree.Height(); got != 3 {
		t.Errorf("Height() = %d, want 3", got)
	}
	var nilTree *Tree
	if nilTree.Size() != 0 || nilTree.Height() != 0 {
		t.Error("nil tree should have zero size and height")
	}
}

func randomTree(rng *rand.Rand, n int) *Tree {
	nodes := []*Tree{{ID: "0"}}
	for i := 1; i < n; i++ {
		parent := nodes[rng.IntN(len(nodes))]
		child := &Tree{ID: fmt.Sprint(i)}
		parent.Children = append(parent.Children, child)
		nodes = append(nodes, child)
	}
	return nodes[0]
}

func checkProperties(t *testing.T, tree *Tree, ps []Position) {
	t.Helper()
	if len(ps) != tree.Size() {
		t.Fatalf("got %d positions, want %d", len(ps), tree.Size())
	}
	pos := byID(ps)

	rows := map[int][]float64{}
	for _, p := range ps {
		if p.Column < -eps {
			t.Errorf("%s has negative column %v", p.ID, p.Column)
		}
		rows[p.Row] = append(rows[p.Row], p.Column)
	}
	for row, cols := range rows {
		slices.Sort(cols)
		for i := 1; i < len(cols); i++ {
			if cols[i]-cols[i-1] < distance-eps {
				t.Errorf("row %d: columns %v and %v overlap", row, cols[i-1], cols[i])
			}
		}
	}

	var walk func(v *Tree, depth int)
	walk = func(v *Tree, depth int) {
		p := pos[v.ID]
		if p.Row != depth {
			t.Errorf("%s row = %d, want %d", v.ID, p.Row, depth)
		}
		if n := len(v.Children); n > 0 {
			first, last := pos[v.Children[0].ID], pos[v.Children[n-1].ID]
			if mid := (first.Column + last.Column) / 2; math.Abs(mid-p.Column) > eps {
				t.Errorf("%s column = %v, want midpoint %v", v.ID, p.Column, mid)
			}
			for i := 1; i < n; i++ {
				if pos[v.Children[i].ID].Column <= pos[v.Children[i-1].ID].Column {
					t.Errorf("children of %s out of order", v.ID)
				}
			}
		}
		for _, c := range v.Children {
			walk(c, depth+1)
		}
	}
	walk(tree, 0)
}
