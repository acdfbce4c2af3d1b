package rptree

import (
	"fmt"
	"sort"
)

// Dataset is the read-only point access a tree needs during growth.
// Satisfied by *dataset.Dataset.
type Dataset interface {
	Len() int
	Dim() int
	Row(i int) []float32
}

// Tree is a complete binary tree of fixed depth. Internal nodes are stored
// in heap order (children of node i are 2i+1 and 2i+2) and hold the median
// split threshold of their level; each of the 2^depth leaves holds the
// ascending point indices routed there.
//
// Invariant: the leaves partition {0..N-1} and leaf sizes differ by at most
// one, regardless of duplicate projected values.
type Tree struct {
	depth  int
	splits []float32
	leaves [][]uint32
}

// Grow builds a tree over all points of ds using proj. Starting from the
// root holding every index, each level L sorts the node's indices by
// (projected value along column L, index), takes the lower median as the
// split threshold and sends the first half to the left child. The stable
// sort makes the split well-defined even when projected values collide.
func Grow(ds Dataset, proj *Projection, depth int) *Tree {
	t := &Tree{
		depth:  depth,
		splits: make([]float32, (1<<depth)-1),
		leaves: make([][]uint32, 1<<depth),
	}

	all := make([]uint32, ds.Len())
	for i := range all {
		all[i] = uint32(i)
	}

	t.grow(ds, proj, 0, 0, all)
	return t
}

func (t *Tree) grow(ds Dataset, proj *Projection, node, level int, idxs []uint32) {
	if level == t.depth {
		leaf := append([]uint32(nil), idxs...)
		sort.Slice(leaf, func(i, j int) bool { return leaf[i] < leaf[j] })
		t.leaves[node-len(t.splits)] = leaf
		return
	}

	n := len(idxs)
	if n == 0 {
		t.grow(ds, proj, 2*node+1, level+1, nil)
		t.grow(ds, proj, 2*node+2, level+1, nil)
		return
	}

	vals := make([]float32, n)
	for i, idx := range idxs {
		vals[i] = proj.Project(ds.Row(int(idx)), level)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if vals[order[a]] != vals[order[b]] {
			return vals[order[a]] < vals[order[b]]
		}
		return idxs[order[a]] < idxs[order[b]]
	})

	// Lower median; the left child takes the first ceil(n/2) indices so
	// sibling leaf sizes never differ by more than one.
	mid := (n + 1) / 2
	t.splits[node] = vals[order[mid-1]]

	left := make([]uint32, mid)
	right := make([]uint32, n-mid)
	for i, o := range order[:mid] {
		left[i] = idxs[o]
	}
	for i, o := range order[mid:] {
		right[i] = idxs[o]
	}

	t.grow(ds, proj, 2*node+1, level+1, left)
	t.grow(ds, proj, 2*node+2, level+1, right)
}

// TreeFromRaw reconstructs a persisted tree. splits must have 2^depth - 1
// entries and leaves 2^depth entries.
func TreeFromRaw(depth int, splits []float32, leaves [][]uint32) (*Tree, error) {
	if depth < 1 {
		return nil, fmt.Errorf("rptree: invalid depth %d", depth)
	}
	if len(splits) != (1<<depth)-1 {
		return nil, fmt.Errorf("rptree: %d split thresholds, expected %d", len(splits), (1<<depth)-1)
	}
	if len(leaves) != 1<<depth {
		return nil, fmt.Errorf("rptree: %d leaves, expected %d", len(leaves), 1<<depth)
	}
	return &Tree{depth: depth, splits: splits, leaves: leaves}, nil
}

// Route descends the tree for query q and returns the reached leaf id in
// [0, 2^depth). At each level the query goes left when its projected value
// is <= the stored threshold. Deterministic and side-effect free.
func (t *Tree) Route(q []float32, proj *Projection) int {
	node := 0
	for level := 0; level < t.depth; level++ {
		if proj.Project(q, level) <= t.splits[node] {
			node = 2*node + 1
		} else {
			node = 2*node + 2
		}
	}
	return node - len(t.splits)
}

// Depth returns the tree depth.
func (t *Tree) Depth() int { return t.depth }

// NumLeaves returns the number of leaves (2^depth).
func (t *Tree) NumLeaves() int { return len(t.leaves) }

// Leaf returns the ascending point indices of leaf id.
// The slice aliases internal memory and must not be modified.
func (t *Tree) Leaf(id int) []uint32 {
	if id < 0 || id >= len(t.leaves) {
		return nil
	}
	return t.leaves[id]
}

// Splits returns the split thresholds in heap order for persistence.
// The slice aliases internal memory and must not be modified.
func (t *Tree) Splits() []float32 { return t.splits }
