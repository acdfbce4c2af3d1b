package rptree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matrixDataset is a minimal in-memory Dataset for tests.
type matrixDataset struct {
	rows [][]float32
}

func (m *matrixDataset) Len() int            { return len(m.rows) }
func (m *matrixDataset) Dim() int            { return len(m.rows[0]) }
func (m *matrixDataset) Row(i int) []float32 { return m.rows[i] }

func randomDataset(seed int64, n, dim int) *matrixDataset {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = make([]float32, dim)
		for j := range rows[i] {
			rows[i][j] = float32(rng.NormFloat64())
		}
	}
	return &matrixDataset{rows: rows}
}

func TestGrow(t *testing.T) {
	ds := randomDataset(1, 100, 8)
	proj := NewProjection(rand.New(rand.NewSource(1)), 8, 4, 1)
	tree := Grow(ds, proj, 4)

	t.Run("shape", func(t *testing.T) {
		assert.Equal(t, 4, tree.Depth())
		assert.Equal(t, 16, tree.NumLeaves())
		assert.Len(t, tree.Splits(), 15)
	})

	t.Run("leaves partition the dataset", func(t *testing.T) {
		seen := make(map[uint32]int)
		for id := 0; id < tree.NumLeaves(); id++ {
			for _, p := range tree.Leaf(id) {
				seen[p]++
			}
		}
		require.Len(t, seen, ds.Len())
		for p, count := range seen {
			assert.Equal(t, 1, count, "point %d", p)
			assert.Less(t, int(p), ds.Len())
		}
	})

	t.Run("leaf sizes differ by at most one", func(t *testing.T) {
		minSize, maxSize := ds.Len(), 0
		for id := 0; id < tree.NumLeaves(); id++ {
			size := len(tree.Leaf(id))
			if size < minSize {
				minSize = size
			}
			if size > maxSize {
				maxSize = size
			}
		}
		// 100 points over 16 leaves: sizes 6 or 7.
		assert.LessOrEqual(t, maxSize-minSize, 1)
	})

	t.Run("leaf members ascend", func(t *testing.T) {
		for id := 0; id < tree.NumLeaves(); id++ {
			leaf := tree.Leaf(id)
			for i := 1; i < len(leaf); i++ {
				assert.Less(t, leaf[i-1], leaf[i])
			}
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		again := Grow(ds, proj, 4)
		assert.Equal(t, tree.Splits(), again.Splits())
		for id := 0; id < tree.NumLeaves(); id++ {
			assert.Equal(t, tree.Leaf(id), again.Leaf(id))
		}
	})
}

func TestGrowDuplicateValues(t *testing.T) {
	// All points identical: every projected value collides, yet the split
	// must stay balanced through the index tie-break.
	rows := make([][]float32, 32)
	for i := range rows {
		rows[i] = []float32{1, 1}
	}
	ds := &matrixDataset{rows: rows}

	proj := NewProjection(rand.New(rand.NewSource(1)), 2, 3, 1)
	tree := Grow(ds, proj, 3)

	for id := 0; id < tree.NumLeaves(); id++ {
		assert.Len(t, tree.Leaf(id), 4)
	}
}

func TestRoute(t *testing.T) {
	t.Run("dataset points reach their own leaf", func(t *testing.T) {
		ds := randomDataset(2, 200, 8)
		proj := NewProjection(rand.New(rand.NewSource(2)), 8, 3, 1)
		tree := Grow(ds, proj, 3)

		for i := 0; i < ds.Len(); i++ {
			leaf := tree.Route(ds.Row(i), proj)
			assert.Contains(t, tree.Leaf(leaf), uint32(i), "point %d", i)
		}
	})

	t.Run("boundary goes left", func(t *testing.T) {
		// One-dimensional identity projection, split at 0.5.
		proj, err := ProjectionFromRaw(1, 1, []float32{1})
		require.NoError(t, err)
		tree, err := TreeFromRaw(1, []float32{0.5}, [][]uint32{{0}, {1}})
		require.NoError(t, err)

		assert.Equal(t, 0, tree.Route([]float32{0.4}, proj))
		assert.Equal(t, 0, tree.Route([]float32{0.5}, proj))
		assert.Equal(t, 1, tree.Route([]float32{0.6}, proj))
	})
}

func TestTreeFromRaw(t *testing.T) {
	t.Run("split count mismatch", func(t *testing.T) {
		_, err := TreeFromRaw(2, make([]float32, 2), make([][]uint32, 4))
		require.Error(t, err)
	})

	t.Run("leaf count mismatch", func(t *testing.T) {
		_, err := TreeFromRaw(2, make([]float32, 3), make([][]uint32, 3))
		require.Error(t, err)
	})

	t.Run("invalid depth", func(t *testing.T) {
		_, err := TreeFromRaw(0, nil, nil)
		require.Error(t, err)
	})
}
