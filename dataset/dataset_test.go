package dataset

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mrptgo/internal/mmap"
)

func TestFromMatrix(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		rows := [][]float32{
			{1, 2, 3},
			{4, 5, 6},
		}

		ds, err := FromMatrix(rows)
		require.NoError(t, err)

		assert.Equal(t, 2, ds.Len())
		assert.Equal(t, 3, ds.Dim())
		assert.Equal(t, []float32{1, 2, 3}, ds.Row(0))
		assert.Equal(t, []float32{4, 5, 6}, ds.Row(1))
		assert.False(t, ds.Mapped())
	})

	t.Run("copies the input", func(t *testing.T) {
		row := []float32{1, 2}
		ds, err := FromMatrix([][]float32{row})
		require.NoError(t, err)

		row[0] = 99
		assert.Equal(t, []float32{1, 2}, ds.Row(0))
	})

	t.Run("empty matrix", func(t *testing.T) {
		_, err := FromMatrix(nil)
		require.Error(t, err)
	})

	t.Run("ragged rows", func(t *testing.T) {
		_, err := FromMatrix([][]float32{{1, 2}, {3}})
		require.Error(t, err)
	})
}

func TestFromSlice(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ds, err := FromSlice([]float32{1, 2, 3, 4}, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, []float32{3, 4}, ds.Row(1))
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := FromSlice([]float32{1, 2, 3}, 2, 2)
		require.Error(t, err)
	})

	t.Run("invalid shape", func(t *testing.T) {
		_, err := FromSlice(nil, 0, 4)
		require.Error(t, err)
	})
}

func writeDatasetFile(t *testing.T, rows [][]float32) string {
	t.Helper()

	buf := make([]byte, 0, len(rows)*len(rows[0])*4)
	for _, row := range rows {
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}

	path := filepath.Join(t.TempDir(), "points.f32")
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

func TestOpen(t *testing.T) {
	rows := [][]float32{
		{1, 2},
		{3, 4},
		{5, 6},
	}
	path := writeDatasetFile(t, rows)

	t.Run("read into memory", func(t *testing.T) {
		ds, err := Open(path, 3, 2)
		require.NoError(t, err)
		defer ds.Close()

		assert.False(t, ds.Mapped())
		for i, row := range rows {
			assert.Equal(t, row, ds.Row(i))
		}
	})

	t.Run("memory mapped", func(t *testing.T) {
		if !mmap.Supported() {
			t.Skip("mmap not supported on this platform")
		}

		ds, err := Open(path, 3, 2, WithMemoryMap())
		require.NoError(t, err)

		assert.True(t, ds.Mapped())
		for i, row := range rows {
			assert.Equal(t, row, ds.Row(i))
		}

		require.NoError(t, ds.Close())
	})

	t.Run("size mismatch", func(t *testing.T) {
		_, err := Open(path, 4, 2)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "missing"), 1, 1)
		require.Error(t, err)
	})
}
