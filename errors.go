package mrptgo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidTreeCount is returned when the number of trees is not positive.
	ErrInvalidTreeCount = errors.New("number of trees must be positive")

	// ErrAlreadyBuilt is returned when Build is called twice on the same builder.
	ErrAlreadyBuilt = errors.New("index already built")
)

// ErrDimensionMismatch indicates a query/dataset dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDepth indicates a tree depth outside [1, ceil(log2(N))].
type ErrInvalidDepth struct {
	Depth int
	Max   int
}

func (e *ErrInvalidDepth) Error() string {
	return fmt.Sprintf("invalid depth %d: must be in [1, %d]", e.Depth, e.Max)
}

// ErrInvalidSparsity indicates a projection sparsity outside (0, 1].
type ErrInvalidSparsity struct {
	Sparsity float64
}

func (e *ErrInvalidSparsity) Error() string {
	return fmt.Sprintf("invalid sparsity %g: must be in (0, 1]", e.Sparsity)
}

// ErrLeafCountMismatch indicates a leaf id slice whose length does not match
// the number of trees in the index.
type ErrLeafCountMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrLeafCountMismatch) Error() string {
	return fmt.Sprintf("leaf count mismatch: expected one leaf per tree (%d), got %d", e.Expected, e.Actual)
}

// ErrDatasetMismatch indicates a snapshot that was built over a dataset of a
// different size than the one it is being loaded against.
type ErrDatasetMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDatasetMismatch) Error() string {
	return fmt.Sprintf("dataset mismatch: snapshot indexes %d points, dataset has %d", e.Expected, e.Actual)
}

// ErrInvalidLeaf indicates a leaf id outside [0, 2^depth).
type ErrInvalidLeaf struct {
	Leaf      int
	NumLeaves int
}

func (e *ErrInvalidLeaf) Error() string {
	return fmt.Sprintf("invalid leaf id %d: must be in [0, %d)", e.Leaf, e.NumLeaves)
}
