// Package dataset provides the immutable float32 point store the index is
// built over. A dataset is either backed by an owned in-memory buffer or by
// a read-only memory mapping of a flat binary file.
package dataset

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/hupe1980/mrptgo/internal/mmap"
)

// Options contains configuration options for opening a file-backed dataset.
type Options struct {
	// MemoryMap maps the file instead of reading it into memory.
	// Requires platform support, see mmap.Supported.
	MemoryMap bool
}

// DefaultOptions contains the default configuration options for file-backed datasets.
var DefaultOptions = Options{
	MemoryMap: false,
}

// Dataset is an immutable N x Dim row-major float32 matrix.
// It is safe for concurrent reads and must not be mutated after creation.
type Dataset struct {
	data    []float32
	n       int
	dim     int
	mapping *mmap.File // non-nil when memory-mapped
}

// FromMatrix creates a dataset by copying the given row-major matrix.
func FromMatrix(rows [][]float32) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset: matrix must be non-empty")
	}

	dim := len(rows[0])
	if dim == 0 {
		return nil, fmt.Errorf("dataset: rows must be non-empty")
	}

	data := make([]float32, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("dataset: row %d has length %d, expected %d", i, len(row), dim)
		}
		copy(data[i*dim:(i+1)*dim], row)
	}

	return &Dataset{data: data, n: len(rows), dim: dim}, nil
}

// FromSlice creates a dataset that takes ownership of a flat row-major buffer.
// len(data) must equal n*dim.
func FromSlice(data []float32, n, dim int) (*Dataset, error) {
	if n < 1 || dim < 1 {
		return nil, fmt.Errorf("dataset: invalid shape %dx%d", n, dim)
	}
	if len(data) != n*dim {
		return nil, fmt.Errorf("dataset: buffer length %d does not match shape %dx%d", len(data), n, dim)
	}
	return &Dataset{data: data, n: n, dim: dim}, nil
}

// Open creates a dataset backed by a flat binary file of n*dim float32
// values in row-major order. The shape is supplied out-of-band and is
// validated against the file size before any data is trusted.
func Open(path string, n, dim int, optFns ...func(o *Options)) (*Dataset, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if n < 1 || dim < 1 {
		return nil, fmt.Errorf("dataset: invalid shape %dx%d", n, dim)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	want := int64(n) * int64(dim) * 4
	if fi.Size() != want {
		return nil, fmt.Errorf("dataset: file size %d does not match shape %dx%d (want %d bytes)", fi.Size(), n, dim, want)
	}

	if opts.MemoryMap {
		m, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		data := unsafe.Slice((*float32)(unsafe.Pointer(&m.Data[0])), n*dim)
		return &Dataset{data: data, n: n, dim: dim, mapping: m}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data := make([]float32, n*dim)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4), raw)
	return &Dataset{data: data, n: n, dim: dim}, nil
}

// WithMemoryMap enables memory mapping for Open.
func WithMemoryMap() func(o *Options) {
	return func(o *Options) {
		o.MemoryMap = true
	}
}

// Len returns the number of points.
func (d *Dataset) Len() int { return d.n }

// Dim returns the dimensionality of each point.
func (d *Dataset) Dim() int { return d.dim }

// Row returns point i.
// WARNING: The returned slice aliases internal memory (especially for mmap
// datasets). Callers must treat it as read-only.
func (d *Dataset) Row(i int) []float32 {
	return d.data[i*d.dim : (i+1)*d.dim]
}

// Raw returns the backing row-major buffer, for batch kernels that scan
// all points at once.
// WARNING: The returned slice aliases internal memory. Callers must treat
// it as read-only.
func (d *Dataset) Raw() []float32 { return d.data }

// Mapped reports whether the dataset is backed by a memory mapping.
func (d *Dataset) Mapped() bool { return d.mapping != nil }

// Close releases the memory mapping, if any. It must be called exactly once
// for mmap-backed datasets after all queries have finished.
func (d *Dataset) Close() error {
	if d.mapping == nil {
		return nil
	}
	m := d.mapping
	d.mapping = nil
	d.data = nil
	return m.Close()
}
