package mrptgo

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/mrptgo/dataset"
	"github.com/hupe1980/mrptgo/rptree"
)

// Index is the built, immutable forest of random-projection trees. All
// methods are read-only and safe for concurrent use.
type Index struct {
	ds    *dataset.Dataset
	opts  Options
	projs []*rptree.Projection
	trees []*rptree.Tree
}

// NumTrees returns the number of trees in the ensemble.
func (idx *Index) NumTrees() int { return len(idx.trees) }

// Depth returns the depth of every tree.
func (idx *Index) Depth() int { return idx.opts.Depth }

// Dim returns the dataset dimensionality.
func (idx *Index) Dim() int { return idx.ds.Dim() }

// Len returns the number of indexed points.
func (idx *Index) Len() int { return idx.ds.Len() }

// Sparsity returns the resolved projection sparsity.
func (idx *Index) Sparsity() float64 { return idx.opts.Sparsity }

// ANN returns the approximate k nearest neighbors of q. The query is routed
// through every tree; points sharing the reached leaf with the query in at
// least votesRequired trees form the candidate set, which is then refined
// by exact distance. An empty candidate set yields an empty result.
func (idx *Index) ANN(ctx context.Context, q []float32, k, votesRequired int) ([]SearchResult, error) {
	start := time.Now()

	leaves, err := idx.GetLeaves(q)
	if err != nil {
		idx.opts.Logger.LogSearch(ctx, k, 0, err)
		idx.opts.Metrics.RecordSearch(k, time.Since(start), err)
		return nil, err
	}
	results, err := idx.ANNFromLeaves(ctx, q, leaves, k, votesRequired)
	idx.opts.Logger.LogSearch(ctx, k, len(results), err)
	idx.opts.Metrics.RecordSearch(k, time.Since(start), err)
	return results, err
}

// GetLeaves routes q through every tree and returns one leaf id per tree,
// in tree order.
func (idx *Index) GetLeaves(q []float32) ([]int, error) {
	if len(q) != idx.ds.Dim() {
		return nil, &ErrDimensionMismatch{Expected: idx.ds.Dim(), Actual: len(q)}
	}

	leaves := make([]int, len(idx.trees))
	for t, tree := range idx.trees {
		leaves[t] = tree.Route(q, idx.projs[t])
	}
	return leaves, nil
}

// ANNFromLeaves is ANN with the routing step supplied by the caller:
// leaves must hold one leaf id per tree (the shape GetLeaves returns).
// It lets routing and refinement be exercised independently.
func (idx *Index) ANNFromLeaves(ctx context.Context, q []float32, leaves []int, k, votesRequired int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q) != idx.ds.Dim() {
		return nil, &ErrDimensionMismatch{Expected: idx.ds.Dim(), Actual: len(q)}
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if votesRequired < 1 {
		votesRequired = 1
	}

	candidates, err := idx.vote(leaves, votesRequired)
	if err != nil {
		return nil, err
	}
	if candidates.IsEmpty() {
		return nil, nil
	}

	return idx.exactKNN(q, candidates.ToArray(), k), nil
}

// ExactNNFromLeaves refines q over the union of the members of the given
// leaf ids (one per tree), without vote filtering.
func (idx *Index) ExactNNFromLeaves(ctx context.Context, q []float32, leaves []int, k int) ([]SearchResult, error) {
	return idx.ANNFromLeaves(ctx, q, leaves, k, 1)
}

// vote tallies how many trees placed each point in the query's leaf and
// returns the points with at least votesRequired votes. Every tally is at
// most NumTrees since a point appears once per tree partition, so a
// threshold above NumTrees always yields an empty set.
func (idx *Index) vote(leaves []int, votesRequired int) (*roaring.Bitmap, error) {
	if len(leaves) != len(idx.trees) {
		return nil, &ErrLeafCountMismatch{Expected: len(idx.trees), Actual: len(leaves)}
	}

	candidates := roaring.New()
	counts := make([]uint16, idx.ds.Len())
	for t, leaf := range leaves {
		tree := idx.trees[t]
		if leaf < 0 || leaf >= tree.NumLeaves() {
			return nil, &ErrInvalidLeaf{Leaf: leaf, NumLeaves: tree.NumLeaves()}
		}
		for _, p := range tree.Leaf(leaf) {
			counts[p]++
			if int(counts[p]) == votesRequired {
				candidates.Add(p)
			}
		}
	}
	return candidates, nil
}

// FilterLeavesByVotes tallies a caller-supplied collection of leaf ids and
// returns the ids reaching votesRequired occurrences. Each id is emitted at
// most once, in the order its count first crosses the threshold.
func (idx *Index) FilterLeavesByVotes(leaves []int, votesRequired int) []int {
	if votesRequired < 1 {
		votesRequired = 1
	}

	counts := make(map[int]int, len(leaves))
	var voted []int
	for _, leaf := range leaves {
		counts[leaf]++
		if counts[leaf] == votesRequired {
			voted = append(voted, leaf)
		}
	}
	return voted
}

// GetLeafInfo returns, for each requested leaf id, the coordinates of the
// points stored under that id in any tree, deduplicated and ascending by
// point index. Each coordinate vector is an independent copy truncated to
// its first dims components, so callers may modify it freely. dims must be
// in [1, Dim].
func (idx *Index) GetLeafInfo(leaves []int, dims int) (map[int][][]float32, error) {
	if dims < 1 || dims > idx.ds.Dim() {
		return nil, &ErrDimensionMismatch{Expected: idx.ds.Dim(), Actual: dims}
	}

	info := make(map[int][][]float32, len(leaves))
	for _, leaf := range leaves {
		if _, ok := info[leaf]; ok {
			continue
		}

		members := roaring.New()
		for _, tree := range idx.trees {
			if leaf < 0 || leaf >= tree.NumLeaves() {
				return nil, &ErrInvalidLeaf{Leaf: leaf, NumLeaves: tree.NumLeaves()}
			}
			members.AddMany(tree.Leaf(leaf))
		}

		coords := make([][]float32, 0, members.GetCardinality())
		it := members.Iterator()
		for it.HasNext() {
			row := idx.ds.Row(int(it.Next()))
			coords = append(coords, append([]float32(nil), row[:dims]...))
		}
		info[leaf] = coords
	}
	return info, nil
}
