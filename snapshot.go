package mrptgo

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/hupe1980/mrptgo/blobstore"
	"github.com/hupe1980/mrptgo/dataset"
	"github.com/hupe1980/mrptgo/persistence"
	"github.com/hupe1980/mrptgo/resource"
	"github.com/hupe1980/mrptgo/rptree"
)

// Save writes the index to a snapshot file. The write goes through a temp
// file and an atomic rename, so a crash never leaves a partial snapshot at
// path.
//
// The snapshot holds the projections and tree structure only, not the
// vectors; Load needs the same dataset the index was built over.
func (idx *Index) Save(path string) error {
	start := time.Now()
	err := persistence.SaveToFile(path, idx.writeSnapshot)
	idx.opts.Logger.LogSnapshot(context.Background(), path, err)
	idx.opts.Metrics.RecordSnapshot(time.Since(start), err)
	return err
}

// Load reads a snapshot and binds it to ds, which must be the dataset the
// index was built over. Any corruption (bad magic, version, truncation,
// checksum) fails the load as a whole.
func Load(path string, ds *dataset.Dataset, optFns ...func(o *Options)) (*Index, error) {
	var idx *Index
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		var err error
		idx, err = readSnapshot(r, ds, optFns...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// SaveToStore streams a snapshot into a blob store. The transfer counts
// against the resource controller's background and IO budgets when one is
// configured.
func (idx *Index) SaveToStore(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()
	err := idx.saveToStore(ctx, store, name)
	idx.opts.Logger.LogSnapshot(ctx, name, err)
	idx.opts.Metrics.RecordSnapshot(time.Since(start), err)
	return err
}

func (idx *Index) saveToStore(ctx context.Context, store blobstore.BlobStore, name string) error {
	rc := idx.opts.Resource
	if err := rc.AcquireBackground(ctx); err != nil {
		return err
	}
	defer rc.ReleaseBackground()

	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}

	var dst io.Writer = w
	if rc != nil {
		dst = resource.NewRateLimitedWriter(w, rc, ctx)
	}

	if err := idx.writeSnapshot(dst); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// LoadFromStore reads a snapshot from a blob store and binds it to ds.
func LoadFromStore(ctx context.Context, store blobstore.BlobStore, name string, ds *dataset.Dataset, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}

	start := time.Now()
	idx, err := loadFromStore(ctx, store, name, ds, opts.Resource, optFns)
	opts.Logger.LogSnapshot(ctx, name, err)
	opts.Metrics.RecordSnapshot(time.Since(start), err)
	return idx, err
}

func loadFromStore(ctx context.Context, store blobstore.BlobStore, name string, ds *dataset.Dataset, rc *resource.Controller, optFns []func(o *Options)) (*Index, error) {
	if err := rc.AcquireBackground(ctx); err != nil {
		return nil, err
	}
	defer rc.ReleaseBackground()

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	rdr, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	var src io.Reader = rdr
	if rc != nil {
		src = resource.NewRateLimitedReader(rdr, rc, ctx)
	}

	return readSnapshot(bufio.NewReaderSize(src, 256*1024), ds, optFns...)
}

// writeSnapshot emits header, per-tree sections and the trailing checksum.
// Per tree: projection entries, split thresholds, then the leaf membership
// lists as one compressed block.
func (idx *Index) writeSnapshot(w io.Writer) error {
	cw := persistence.NewChecksumWriter(w)
	bw := persistence.NewBinaryIndexWriter(cw)

	header := &persistence.FileHeader{
		NumTrees:    uint32(len(idx.trees)),
		Depth:       uint32(idx.opts.Depth),
		Dimension:   uint32(idx.ds.Dim()),
		Compression: uint8(idx.opts.Compression),
		VectorCount: uint64(idx.ds.Len()),
		Sparsity:    idx.opts.Sparsity,
	}
	if err := bw.WriteHeader(header); err != nil {
		return err
	}

	for t, tree := range idx.trees {
		if err := bw.WriteFloat32Slice(idx.projs[t].Raw()); err != nil {
			return err
		}
		if err := bw.WriteFloat32Slice(tree.Splits()); err != nil {
			return err
		}

		block, err := persistence.CompressBlock(encodeLeaves(tree), idx.opts.Compression)
		if err != nil {
			return err
		}
		if err := bw.WriteBytes(block); err != nil {
			return err
		}
	}

	// Trailer checksum covers everything before it and is written outside
	// the checksummed stream.
	return binary.Write(w, binary.LittleEndian, cw.Sum())
}

func readSnapshot(r io.Reader, ds *dataset.Dataset, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}

	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}

	cr := persistence.NewChecksumReader(r)
	br := persistence.NewBinaryIndexReader(cr)

	header, err := br.ReadHeader()
	if err != nil {
		return nil, err
	}

	if int(header.Dimension) != ds.Dim() {
		return nil, &ErrDimensionMismatch{Expected: ds.Dim(), Actual: int(header.Dimension)}
	}
	if header.VectorCount != uint64(ds.Len()) {
		return nil, &ErrDatasetMismatch{Expected: int(header.VectorCount), Actual: ds.Len()}
	}

	// Size-bearing header fields are validated before anything is sized off
	// them; the trailing checksum only runs after the body has been read, so
	// a corrupt count must not turn into a huge allocation.
	if header.NumTrees < 1 {
		return nil, ErrInvalidTreeCount
	}
	maxDepth := int(math.Ceil(math.Log2(float64(ds.Len()))))
	depth := int(header.Depth)
	if depth < 1 || depth > maxDepth {
		return nil, &ErrInvalidDepth{Depth: depth, Max: maxDepth}
	}

	dim := ds.Dim()
	ct := persistence.CompressionType(header.Compression)

	// Every leaf block decodes to exactly one uint32 count per leaf plus one
	// uint32 member per point.
	maxLeafBlock := 4 * (ds.Len() + (1 << depth))

	var projs []*rptree.Projection
	var trees []*rptree.Tree

	for t := uint32(0); t < header.NumTrees; t++ {
		cols, err := br.ReadFloat32Slice(dim * depth)
		if err != nil {
			return nil, err
		}
		proj, err := rptree.ProjectionFromRaw(dim, depth, cols)
		if err != nil {
			return nil, err
		}

		splits, err := br.ReadFloat32Slice((1 << depth) - 1)
		if err != nil {
			return nil, err
		}

		block, err := persistence.ReadBlock(cr, ct, maxLeafBlock)
		if err != nil {
			return nil, err
		}
		leaves, err := decodeLeaves(block, 1<<depth)
		if err != nil {
			return nil, err
		}

		tree, err := rptree.TreeFromRaw(depth, splits, leaves)
		if err != nil {
			return nil, err
		}

		projs = append(projs, proj)
		trees = append(trees, tree)
	}

	// The trailer is read from the raw stream so it is excluded from the
	// running checksum.
	var sum uint32
	if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return nil, err
	}
	if err := cr.Verify(sum); err != nil {
		return nil, err
	}

	opts.NumTrees = int(header.NumTrees)
	opts.Depth = depth
	opts.Sparsity = header.Sparsity
	opts.Compression = ct

	return &Index{ds: ds, opts: opts, projs: projs, trees: trees}, nil
}

// encodeLeaves flattens the membership lists of all leaves:
// per leaf a uint32 count followed by the member indices.
func encodeLeaves(tree *rptree.Tree) []byte {
	size := 0
	for id := 0; id < tree.NumLeaves(); id++ {
		size += 4 + 4*len(tree.Leaf(id))
	}

	buf := make([]byte, 0, size)
	for id := 0; id < tree.NumLeaves(); id++ {
		leaf := tree.Leaf(id)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(leaf)))
		for _, p := range leaf {
			buf = binary.LittleEndian.AppendUint32(buf, p)
		}
	}
	return buf
}

func decodeLeaves(data []byte, numLeaves int) ([][]uint32, error) {
	leaves := make([][]uint32, numLeaves)
	off := 0
	for id := range leaves {
		if off+4 > len(data) {
			return nil, fmt.Errorf("truncated leaf block: leaf %d", id)
		}
		count := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4

		if off+4*count > len(data) {
			return nil, fmt.Errorf("truncated leaf block: leaf %d", id)
		}
		leaf := make([]uint32, count)
		for i := range leaf {
			leaf[i] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
		leaves[id] = leaf
	}
	if off != len(data) {
		return nil, fmt.Errorf("leaf block has %d trailing bytes", len(data)-off)
	}
	return leaves, nil
}
