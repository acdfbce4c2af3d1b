// Package rptree implements the random-projection trees the index is built
// from: sparse projection generation, median-balanced tree growth and query
// routing. One tree plus its projection is an independent space partition;
// the ensemble lives in the root package.
package rptree

import (
	"fmt"
	"math/rand"

	"github.com/hupe1980/mrptgo/internal/math32"
)

// Projection is the Dim x Depth random projection matrix of a single tree.
// Column L is the direction points are projected along at tree level L.
//
// A projection must be retained verbatim: routing is only reproducible with
// the exact matrix used at build time.
type Projection struct {
	dim   int
	depth int
	cols  []float32 // column-major, level L at [L*dim : (L+1)*dim]
}

// NewProjection samples a projection from rng. Each entry is independently
// zero with probability 1-sparsity and standard-normal otherwise.
// sparsity must be in (0, 1]; sparsity == 1 yields a dense matrix.
func NewProjection(rng *rand.Rand, dim, depth int, sparsity float64) *Projection {
	cols := make([]float32, dim*depth)
	for i := range cols {
		if sparsity >= 1 || rng.Float64() < sparsity {
			cols[i] = float32(rng.NormFloat64())
		}
	}

	return &Projection{dim: dim, depth: depth, cols: cols}
}

// ProjectionFromRaw reconstructs a persisted projection.
// len(cols) must equal dim*depth.
func ProjectionFromRaw(dim, depth int, cols []float32) (*Projection, error) {
	if dim < 1 || depth < 1 {
		return nil, fmt.Errorf("rptree: invalid projection shape %dx%d", dim, depth)
	}
	if len(cols) != dim*depth {
		return nil, fmt.Errorf("rptree: projection has %d entries, expected %d", len(cols), dim*depth)
	}
	return &Projection{dim: dim, depth: depth, cols: cols}, nil
}

// Dim returns the dimensionality of the projected vectors.
func (p *Projection) Dim() int { return p.dim }

// Depth returns the number of projection columns (tree levels).
func (p *Projection) Depth() int { return p.depth }

// Project computes the scalar projection of v along column level.
func (p *Projection) Project(v []float32, level int) float32 {
	return math32.Dot(v, p.cols[level*p.dim:(level+1)*p.dim])
}

// Raw returns the backing column-major entries for persistence.
// The slice aliases internal memory and must not be modified.
func (p *Projection) Raw() []float32 { return p.cols }
