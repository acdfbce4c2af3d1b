package mrptgo

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mrptgo/dataset"
	"github.com/hupe1980/mrptgo/rptree"
)

// Builder is the unbuilt handle of an index. It only exposes Build; the
// returned Index alone exposes the query surface, so querying an unbuilt
// index is unrepresentable.
type Builder struct {
	ds    *dataset.Dataset
	opts  Options
	built atomic.Bool
}

// New creates a builder over ds. The dataset is referenced, not copied, and
// must stay alive and unmodified for the lifetime of the built index.
func New(ds *dataset.Dataset, optFns ...func(o *Options)) (*Builder, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.NumTrees < 1 {
		return nil, ErrInvalidTreeCount
	}

	maxDepth := int(math.Ceil(math.Log2(float64(ds.Len()))))
	if opts.Depth < 1 || opts.Depth > maxDepth {
		return nil, &ErrInvalidDepth{Depth: opts.Depth, Max: maxDepth}
	}

	if opts.Sparsity == 0 {
		opts.Sparsity = 1 / math.Sqrt(float64(ds.Dim()))
	}
	if opts.Sparsity <= 0 || opts.Sparsity > 1 {
		return nil, &ErrInvalidSparsity{Sparsity: opts.Sparsity}
	}

	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}

	return &Builder{ds: ds, opts: opts}, nil
}

// Build grows all trees and returns the built index. Each tree samples its
// own projection from a source seeded with Seed+tree and is grown
// independently; trees are stored by index so the merge is order-independent.
// Build may be called at most once.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	if !b.built.CompareAndSwap(false, true) {
		return nil, ErrAlreadyBuilt
	}

	start := time.Now()

	projs := make([]*rptree.Projection, b.opts.NumTrees)
	trees := make([]*rptree.Tree, b.opts.NumTrees)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism())

	for t := 0; t < b.opts.NumTrees; t++ {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(b.opts.Seed + int64(t)))
			projs[t] = rptree.NewProjection(rng, b.ds.Dim(), b.opts.Depth, b.opts.Sparsity)
			trees[t] = rptree.Grow(b.ds, projs[t], b.opts.Depth)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		b.opts.Logger.LogBuild(ctx, b.opts.NumTrees, b.opts.Depth, time.Since(start), err)
		b.opts.Metrics.RecordBuild(b.opts.NumTrees, time.Since(start), err)
		return nil, err
	}

	b.opts.Logger.LogBuild(ctx, b.opts.NumTrees, b.opts.Depth, time.Since(start), nil)
	b.opts.Metrics.RecordBuild(b.opts.NumTrees, time.Since(start), nil)

	return &Index{ds: b.ds, opts: b.opts, projs: projs, trees: trees}, nil
}

func (b *Builder) parallelism() int {
	if b.opts.BuildParallelism > 0 {
		return b.opts.BuildParallelism
	}
	return runtime.GOMAXPROCS(0)
}
