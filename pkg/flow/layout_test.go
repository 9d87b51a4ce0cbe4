package flow

import (
	"slices"
	"strings"
	"testing"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
)

type point struct{ x, y float64 }

func positions(f *Flow) map[string]point {
	out := make(map[string]point)
	for _, n := range f.Nodes() {
		x, y := n.Position()
		out[n.ID()] = point{x, y}
	}
	return out
}

func checkPositions(t *testing.T, f *Flow, want map[string]point) {
	t.Helper()
	got := positions(f)
	for id, w := range want {
		if got[id] != w {
			t.Errorf("%s at %v, want %v", id, got[id], w)
		}
	}
}

// fanout builds R -> {A, B}, B -> {C, D, E, F}.
func fanout(t *testing.T) *Flow {
	f := New()
	addNode(t, f, "R", 0, 0, out())
	addNode(t, f, "A", 0, 0, in())
	addNode(t, f, "B", 0, 0, in(), out())
	for _, id := range []string{"C", "D", "E", "F"} {
		addNode(t, f, id, 0, 0, in())
	}
	connect(t, f, "R", "right-0", "A", "left-0")
	connect(t, f, "R", "right-0", "B", "left-0")
	for _, id := range []string{"C", "D", "E", "F"} {
		connect(t, f, "B", "right-0", id, "left-0")
	}
	return f
}

func TestAutoLayoutSingleTree(t *testing.T) {
	f := fanout(t)
	if err := f.AutoLayout(100, 50); err != nil {
		t.Fatalf("AutoLayout: %v", err)
	}
	checkPositions(t, f, map[string]point{
		"R": {150, 25},
		"A": {100, 75},
		"B": {200, 75},
		"C": {50, 125},
		"D": {150, 125},
		"E": {250, 125},
		"F": {350, 125},
	})
}

func TestAutoLayoutStacksTrees(t *testing.T) {
	f := New()
	addNode(t, f, "P", 0, 0, out())
	addNode(t, f, "Q", 0, 0, in())
	addNode(t, f, "S", 0, 0, out())
	addNode(t, f, "T", 0, 0, in(), out())
	addNode(t, f, "U", 0, 0, in())
	connect(t, f, "P", "right-0", "Q", "left-0")
	connect(t, f, "S", "right-0", "T", "left-0")
	connect(t, f, "T", "right-0", "U", "left-0")

	if err := f.AutoLayout(10, 10); err != nil {
		t.Fatalf("AutoLayout: %v", err)
	}
	checkPositions(t, f, map[string]point{
		"P": {5, 5},
		"Q": {5, 15},
		"S": {5, 25},
		"T": {5, 35},
		"U": {5, 45},
	})
}

func TestAutoLayoutSharedDescendant(t *testing.T) {
	f := New()
	addNode(t, f, "R1", 0, 0, out())
	addNode(t, f, "R2", 0, 0, out())
	addNode(t, f, "S", 0, 0, in(), in())
	connect(t, f, "R1", "right-0", "S", "left-0")
	connect(t, f, "R2", "right-0", "S", "left-1")

	if err := f.AutoLayout(10, 10); err != nil {
		t.Fatalf("AutoLayout: %v", err)
	}
	// S belongs to the first tree; the second tree is R2 alone.
	checkPositions(t, f, map[string]point{
		"R1": {5, 5},
		"S":  {5, 15},
		"R2": {5, 25},
	})
}

func TestAutoLayoutDiamond(t *testing.T) {
	f := New()
	addNode(t, f, "R", 0, 0, out())
	addNode(t, f, "A", 0, 0, in(), out())
	addNode(t, f, "B", 0, 0, in(), out())
	addNode(t, f, "C", 0, 0, in(), in())
	connect(t, f, "R", "right-0", "A", "left-0")
	connect(t, f, "R", "right-0", "B", "left-0")
	connect(t, f, "A", "right-0", "C", "left-0")
	connect(t, f, "B", "right-0", "C", "left-1")

	tree, err := f.LayoutTree("R")
	if err != nil {
		t.Fatalf("LayoutTree: %v", err)
	}
	if tree.Size() != 4 {
		t.Errorf("tree size = %d, want 4", tree.Size())
	}

	if err := f.AutoLayout(10, 10); err != nil {
		t.Fatalf("AutoLayout: %v", err)
	}
	checkPositions(t, f, map[string]point{
		"R": {10, 5},
		"A": {5, 15},
		"B": {15, 15},
		"C": {5, 25},
	})
}

func TestAutoLayoutUnreachableRow(t *testing.T) {
	f := New()
	addNode(t, f, "P", 0, 0, out())
	addNode(t, f, "M", 0, 0, in(), out())
	addNode(t, f, "Q", 0, 0, in())
	addNode(t, f, "N", 0, 0, in(), out())
	connect(t, f, "P", "right-0", "Q", "left-0")
	// M and N feed each other, so neither is a root.
	connect(t, f, "M", "right-0", "N", "left-0")
	connect(t, f, "N", "right-0", "M", "left-0")

	if err := f.AutoLayout(10, 10); err != nil {
		t.Fatalf("AutoLayout: %v", err)
	}
	checkPositions(t, f, map[string]point{
		"P": {5, 5},
		"Q": {5, 15},
		"M": {5, 25},
		"N": {15, 25},
	})
}

func TestAutoLayoutCycleKeepsEarlierTrees(t *testing.T) {
	f := New()
	addNode(t, f, "P", 1000, 1000, out())
	addNode(t, f, "Q", 1000, 1000, in())
	addNode(t, f, "R", 1000, 1000, out())
	addNode(t, f, "X", 1000, 1000, in(), optIn(), out())
	addNode(t, f, "Y", 1000, 1000, in(), out())
	connect(t, f, "P", "right-0", "Q", "left-0")
	connect(t, f, "R", "right-0", "X", "left-0")
	connect(t, f, "X", "right-0", "Y", "left-0")
	connect(t, f, "Y", "right-0", "X", "left-1")

	err := f.AutoLayout(10, 10)
	if !errs.Is(err, errs.ErrCodeLayoutCycle) {
		t.Fatalf("err = %v, want LAYOUT_CYCLE", err)
	}
	if !strings.Contains(err.Error(), "R -> X -> Y -> X") {
		t.Errorf("error %q does not name the cycle", err)
	}
	checkPositions(t, f, map[string]point{
		"P": {5, 5},
		"Q": {5, 15},
		"R": {1000, 1000},
		"X": {1000, 1000},
		"Y": {1000, 1000},
	})
}

func TestAutoLayoutCycleFedNodesUnreachable(t *testing.T) {
	f := New()
	addNode(t, f, "P", 1000, 1000, out())
	addNode(t, f, "X", 1000, 1000, in(), out(), out())
	addNode(t, f, "Q", 1000, 1000, in())
	addNode(t, f, "Y", 1000, 1000, in(), out())
	addNode(t, f, "Z", 1000, 1000, in())
	connect(t, f, "P", "right-0", "Q", "left-0")
	connect(t, f, "X", "right-0", "Y", "left-0")
	connect(t, f, "Y", "right-0", "X", "left-0")
	connect(t, f, "X", "right-1", "Z", "left-0")

	if err := f.AutoLayout(10, 10); err != nil {
		t.Fatalf("AutoLayout: %v", err)
	}
	// Z hangs off the X/Y cycle, so no root reaches it either.
	checkPositions(t, f, map[string]point{
		"P": {5, 5},
		"Q": {5, 15},
		"X": {5, 25},
		"Y": {15, 25},
		"Z": {25, 25},
	})
}

func TestAutoLayoutEvents(t *testing.T) {
	f := fanout(t)
	_ = f.MoveNode("R", 150, 25)

	var rec recorder
	f.Subscribe(rec.observe)
	if err := f.AutoLayout(100, 50); err != nil {
		t.Fatal(err)
	}

	var moved []string
	for _, e := range rec.events {
		if e.Type != EventNodeMoved {
			t.Fatalf("unexpected event %v", e.Type)
		}
		moved = append(moved, e.NodeID)
	}
	// R was already in place.
	if want := []string{"A", "B", "C", "D", "E", "F"}; !slices.Equal(moved, want) {
		t.Errorf("moved = %v, want %v", moved, want)
	}
}

func TestAutoLayoutErrors(t *testing.T) {
	f := fanout(t)
	if err := f.AutoLayout(0, 10); !errs.Is(err, errs.ErrCodeInvalidGrid) {
		t.Errorf("err = %v, want INVALID_GRID", err)
	}
	if _, err := f.LayoutTree("nope"); !errs.Is(err, errs.ErrCodeNodeNotFound) {
		t.Errorf("err = %v, want NODE_NOT_FOUND", err)
	}
	if err := New().AutoLayout(10, 10); err != nil {
		t.Errorf("empty flow: %v", err)
	}
}

func TestRoots(t *testing.T) {
	f := New()
	addNode(t, f, "a", 0, 0, out())
	addNode(t, f, "b", 0, 0, in(), out())
	addNode(t, f, "c", 0, 0, optIn())
	addNode(t, f, "d", 0, 0)
	connect(t, f, "a", "right-0", "b", "left-0")

	var got []string
	for _, n := range f.Roots() {
		got = append(got, n.ID())
	}
	if want := []string{"a", "c", "d"}; !slices.Equal(got, want) {
		t.Errorf("Roots = %v, want %v", got, want)
	}
}
