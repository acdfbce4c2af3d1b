// Package mrptgo implements approximate nearest-neighbor search with
// ensembles of sparse random-projection trees.
//
// An index is built once over an immutable dataset: every tree projects the
// points onto random directions and recursively splits them at the median,
// so each tree is a balanced partition of the dataset. A query is routed
// through all trees; points that share the query's leaf in enough trees
// become candidates and are re-ranked by exact squared L2 distance.
//
// Basic usage:
//
//	ds, _ := dataset.FromMatrix(vectors)
//	builder, _ := mrptgo.New(ds, mrptgo.WithDepth(6), mrptgo.WithNumTrees(50))
//	idx, _ := builder.Build(ctx)
//	results, _ := idx.ANN(ctx, query, 10, 2)
//
// Builds are deterministic for a fixed seed, so an index can be persisted
// with Save and rebound to the same dataset with Load.
package mrptgo
