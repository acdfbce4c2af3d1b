package persistence

import (
	"bytes"
	"encoding/binary"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundtrip(t *testing.T) {
	var buf bytes.Buffer

	in := &FileHeader{
		NumTrees:    10,
		Depth:       6,
		Dimension:   128,
		Compression: uint8(CompressionLZ4),
		VectorCount: 100000,
		Sparsity:    0.25,
	}
	require.NoError(t, NewBinaryIndexWriter(&buf).WriteHeader(in))
	assert.Equal(t, 64, buf.Len())

	out, err := NewBinaryIndexReader(&buf).ReadHeader()
	require.NoError(t, err)

	assert.Equal(t, uint32(MagicNumber), out.Magic)
	assert.Equal(t, uint32(Version), out.Version)
	assert.Equal(t, in.NumTrees, out.NumTrees)
	assert.Equal(t, in.Depth, out.Depth)
	assert.Equal(t, in.Dimension, out.Dimension)
	assert.Equal(t, in.Compression, out.Compression)
	assert.Equal(t, in.VectorCount, out.VectorCount)
	assert.Equal(t, in.Sparsity, out.Sparsity)
}

func TestReadHeaderRejects(t *testing.T) {
	write := func(mutate func(h *FileHeader)) *bytes.Buffer {
		h := FileHeader{
			Magic:       MagicNumber,
			Version:     Version,
			Compression: uint8(CompressionNone),
		}
		mutate(&h)

		// Encode directly so Magic/Version stay as mutated.
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, &h))
		return &buf
	}

	t.Run("bad magic", func(t *testing.T) {
		buf := write(func(h *FileHeader) { h.Magic = 0xDEADBEEF })
		_, err := NewBinaryIndexReader(buf).ReadHeader()
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("bad version", func(t *testing.T) {
		buf := write(func(h *FileHeader) { h.Version = 0x00990000 })
		_, err := NewBinaryIndexReader(buf).ReadHeader()
		assert.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("bad compression", func(t *testing.T) {
		buf := write(func(h *FileHeader) { h.Compression = 42 })
		_, err := NewBinaryIndexReader(buf).ReadHeader()
		assert.ErrorIs(t, err, ErrInvalidCompression)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := NewBinaryIndexReader(bytes.NewReader([]byte{1, 2, 3})).ReadHeader()
		require.Error(t, err)
	})
}

func TestSliceRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBinaryIndexWriter(&buf)

	floats := []float32{1.5, -2.25, 3.75}
	ints := []uint32{7, 0, 42}

	require.NoError(t, bw.WriteFloat32Slice(floats))
	require.NoError(t, bw.WriteUint32Slice(ints))
	require.NoError(t, bw.WriteUint32(99))

	br := NewBinaryIndexReader(&buf)

	gotFloats, err := br.ReadFloat32Slice(3)
	require.NoError(t, err)
	assert.Equal(t, floats, gotFloats)

	gotInts, err := br.ReadUint32Slice(3)
	require.NoError(t, err)
	assert.Equal(t, ints, gotInts)

	v, err := br.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(99), v)
}

func TestSaveToFile(t *testing.T) {
	t.Run("writes atomically", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.bin")

		require.NoError(t, SaveToFile(path, func(w io.Writer) error {
			_, err := w.Write([]byte("payload"))
			return err
		}))

		var got []byte
		require.NoError(t, LoadFromFile(path, func(r io.Reader) error {
			var err error
			got, err = io.ReadAll(r)
			return err
		}))
		assert.Equal(t, []byte("payload"), got)

		// No temp files left behind.
		entries, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
