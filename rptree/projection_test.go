package rptree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProjection(t *testing.T) {
	t.Run("deterministic for a seed", func(t *testing.T) {
		a := NewProjection(rand.New(rand.NewSource(7)), 16, 4, 0.25)
		b := NewProjection(rand.New(rand.NewSource(7)), 16, 4, 0.25)
		assert.Equal(t, a.Raw(), b.Raw())
	})

	t.Run("different seeds differ", func(t *testing.T) {
		a := NewProjection(rand.New(rand.NewSource(1)), 16, 4, 1)
		b := NewProjection(rand.New(rand.NewSource(2)), 16, 4, 1)
		assert.NotEqual(t, a.Raw(), b.Raw())
	})

	t.Run("sparsity thins the matrix", func(t *testing.T) {
		p := NewProjection(rand.New(rand.NewSource(3)), 100, 10, 0.1)

		nonZero := 0
		for _, v := range p.Raw() {
			if v != 0 {
				nonZero++
			}
		}
		// Expectation is 100 of 1000 entries; allow generous slack.
		assert.Greater(t, nonZero, 40)
		assert.Less(t, nonZero, 250)
	})

	t.Run("shape", func(t *testing.T) {
		p := NewProjection(rand.New(rand.NewSource(1)), 8, 3, 1)
		assert.Equal(t, 8, p.Dim())
		assert.Equal(t, 3, p.Depth())
		assert.Len(t, p.Raw(), 24)
	})
}

func TestProjectionProject(t *testing.T) {
	cols := []float32{
		1, 0, // level 0 selects the first coordinate
		0, 2, // level 1 doubles the second
	}
	p, err := ProjectionFromRaw(2, 2, cols)
	require.NoError(t, err)

	v := []float32{3, 4}
	assert.Equal(t, float32(3), p.Project(v, 0))
	assert.Equal(t, float32(8), p.Project(v, 1))
}

func TestProjectionFromRaw(t *testing.T) {
	t.Run("length mismatch", func(t *testing.T) {
		_, err := ProjectionFromRaw(4, 2, make([]float32, 7))
		require.Error(t, err)
	})

	t.Run("invalid shape", func(t *testing.T) {
		_, err := ProjectionFromRaw(0, 2, nil)
		require.Error(t, err)
	})
}
