package mrptgo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mrptgo/internal/math32"
	"github.com/hupe1980/mrptgo/internal/queue"
)

// SearchResult represents a search result. Distance is the squared L2
// distance between the query and the result vector; it is always carried,
// callers that only need indices ignore it.
type SearchResult struct {
	// ID is the index of the result point in the dataset.
	ID uint32

	// Distance is the squared L2 distance to the query.
	Distance float32
}

// ExactSearch performs an exact nearest-neighbor search for a batch of
// queries. Queries are evaluated independently and concurrently; the result
// slice preserves query order regardless of completion order. Useful as an
// accuracy oracle for ANN.
func (idx *Index) ExactSearch(ctx context.Context, queries [][]float32, k int) ([][]SearchResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	for _, q := range queries {
		if len(q) != idx.ds.Dim() {
			return nil, &ErrDimensionMismatch{Expected: idx.ds.Dim(), Actual: len(q)}
		}
	}

	results := make([][]SearchResult, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.parallelism())

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = idx.exactKNNAll(q, k)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// exactKNNAll scans the whole dataset for the k nearest neighbors of q.
// Distances are computed in one pass over the backing buffer before the
// top-k selection.
func (idx *Index) exactKNNAll(q []float32, k int) []SearchResult {
	dists := make([]float32, idx.ds.Len())
	math32.SquaredL2Batch(q, idx.ds.Raw(), idx.ds.Dim(), dists)

	top := queue.NewTopK(k)
	for i, dist := range dists {
		top.Offer(queue.Item{ID: uint32(i), Distance: dist})
	}
	return drain(top)
}

// exactKNN refines a candidate set: true distances for every candidate,
// partial selection of the k smallest. Ties order by ascending index.
func (idx *Index) exactKNN(q []float32, candidates []uint32, k int) []SearchResult {
	top := queue.NewTopK(k)
	for _, id := range candidates {
		top.Offer(queue.Item{ID: id, Distance: math32.SquaredL2(q, idx.ds.Row(int(id)))})
	}
	return drain(top)
}

func drain(top *queue.TopK) []SearchResult {
	items := top.Drain()
	results := make([]SearchResult, len(items))
	for i, it := range items {
		results[i] = SearchResult{ID: it.ID, Distance: it.Distance}
	}
	return results
}

func (idx *Index) parallelism() int {
	if idx.opts.BuildParallelism > 0 {
		return idx.opts.BuildParallelism
	}
	return runtime.GOMAXPROCS(0)
}
