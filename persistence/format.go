package persistence

import "errors"

const (
	// MagicNumber identifies mrptgo snapshot files (ASCII: "MRPT")
	MagicNumber = 0x4D525054
	// Version is the current file format version (v1.0.0)
	Version = 0x00010000
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrInvalidCompression = errors.New("invalid compression type")
)

// FileHeader is the 64-byte header at the start of every snapshot file.
// Layout keeps the uint64/float64 fields 8-byte aligned.
type FileHeader struct {
	Magic       uint32 // 0x4D525054 ("MRPT")
	Version     uint32 // File format version
	NumTrees    uint32 // Trees in the ensemble
	Depth       uint32 // Depth of every tree
	Dimension   uint32 // Vector dimensionality
	Compression uint8  // 0=None, 1=LZ4, 2=ZSTD
	Padding1    [3]byte
	VectorCount uint64  // Points in the indexed dataset
	Sparsity    float64 // Resolved projection sparsity
	Reserved    [24]byte
}
