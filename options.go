package mrptgo

import (
	"github.com/hupe1980/mrptgo/persistence"
	"github.com/hupe1980/mrptgo/resource"
)

// Options contains configuration options for the index.
type Options struct {
	// Depth is the depth of every tree. It must be in [1, ceil(log2(N))].
	Depth int

	// NumTrees is the number of trees in the ensemble. It must be >= 1.
	NumTrees int

	// Sparsity is the expected fraction of non-zero entries in each
	// projection matrix, in (0, 1]. Zero selects the reference default
	// of 1/sqrt(dimension).
	Sparsity float64

	// Seed controls projection sampling. Tree t draws from a source
	// seeded with Seed+t, so identical inputs rebuild identical trees.
	Seed int64

	// BuildParallelism bounds the number of trees grown concurrently
	// and the number of exact-search queries evaluated concurrently.
	// Zero means GOMAXPROCS.
	BuildParallelism int

	// Compression selects the block compression for persisted leaf
	// membership lists.
	Compression persistence.CompressionType

	// Resource throttles snapshot transfer IO when set.
	Resource *resource.Controller

	// Logger receives structured build/query/snapshot logs.
	// Nil disables logging.
	Logger *Logger

	// Metrics receives operation timings. Nil disables collection.
	Metrics MetricsCollector
}

// DefaultOptions contains the default configuration options for the index.
var DefaultOptions = Options{
	Depth:       8,
	NumTrees:    32,
	Sparsity:    0, // auto
	Seed:        1,
	Compression: persistence.CompressionLZ4,
}

// WithDepth sets the tree depth.
func WithDepth(depth int) func(o *Options) {
	return func(o *Options) {
		o.Depth = depth
	}
}

// WithNumTrees sets the number of trees.
func WithNumTrees(numTrees int) func(o *Options) {
	return func(o *Options) {
		o.NumTrees = numTrees
	}
}

// WithSparsity sets the projection sparsity. Zero selects 1/sqrt(dimension).
func WithSparsity(sparsity float64) func(o *Options) {
	return func(o *Options) {
		o.Sparsity = sparsity
	}
}

// WithSeed sets the projection sampling seed.
func WithSeed(seed int64) func(o *Options) {
	return func(o *Options) {
		o.Seed = seed
	}
}

// WithBuildParallelism bounds worker concurrency for build and batch search.
func WithBuildParallelism(n int) func(o *Options) {
	return func(o *Options) {
		o.BuildParallelism = n
	}
}

// WithCompression selects the snapshot block compression.
func WithCompression(ct persistence.CompressionType) func(o *Options) {
	return func(o *Options) {
		o.Compression = ct
	}
}

// WithResourceController throttles snapshot transfers through rc.
func WithResourceController(rc *resource.Controller) func(o *Options) {
	return func(o *Options) {
		o.Resource = rc
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(logger *Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetricsCollector configures operational metrics collection.
func WithMetricsCollector(mc MetricsCollector) func(o *Options) {
	return func(o *Options) {
		o.Metrics = mc
	}
}
