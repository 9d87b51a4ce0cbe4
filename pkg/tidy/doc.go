// Package tidy computes tidy-tree coordinates for rooted, ordered trees.
//
// # Overview
//
// [Layout] assigns every node of a [Tree] an integer row (its depth) and a
// real-valued column such that:
//
//   - no two nodes in the same row share a column
//   - siblings keep their left-to-right order
//   - a parent sits at the midpoint of its first and last child
//   - every column is non-negative
//
// The implementation follows the linear-time algorithm of Walker as
// corrected by Buchheim, Jünger and Leipert. A post-order first walk places
// subtrees provisionally and resolves conflicts between neighbouring
// subtrees by comparing their contours. Threads let the contour scan jump
// between subtrees of unequal height, and shifts are spread over the
// intermediate siblings lazily via change/shift accumulators, which keeps
// the whole pass O(n). A pre-order second walk accumulates modifiers into
// final columns and a third walk moves everything right when any column
// ended up negative.
//
// # Usage
//
//	t := &tidy.Tree{ID: "root", Children: []*tidy.Tree{{ID: "a"}, {ID: "b"}}}
//	for _, p := range tidy.Layout(t) {
//	    fmt.Println(p.ID, p.Row, p.Column)
//	}
//
// Siblings are separated by one unit; callers scale rows and columns into
// their own coordinate space.
//
// # Concurrency
//
// Layout allocates its own working state and never mutates the input tree,
// so concurrent calls are safe, including on the same tree.
package tidy
