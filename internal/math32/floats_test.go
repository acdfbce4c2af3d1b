package math32

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{4, 5, 6}
		assert.InDelta(t, 32.0, Dot(a, b), 1e-6)
	})

	t.Run("orthogonal", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		assert.Equal(t, float32(0), Dot(a, b))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, float32(0), Dot(nil, nil))
	})
}

func TestSquaredL2(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{4, 6, 3}
		assert.InDelta(t, 25.0, SquaredL2(a, b), 1e-6)
	})

	t.Run("identical", func(t *testing.T) {
		a := []float32{0.5, -1.5, 2.5}
		assert.Equal(t, float32(0), SquaredL2(a, a))
	})
}

func TestSquaredL2Batch(t *testing.T) {
	query := []float32{0, 0}
	targets := []float32{
		1, 0,
		0, 2,
		3, 4,
	}

	out := make([]float32, 3)
	SquaredL2Batch(query, targets, 2, out)

	assert.InDelta(t, 1.0, out[0], 1e-6)
	assert.InDelta(t, 4.0, out[1], 1e-6)
	assert.InDelta(t, 25.0, out[2], 1e-6)
}
