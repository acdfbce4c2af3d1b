// Package blobstore abstracts snapshot storage behind a small interface so
// an index can be persisted to the local filesystem, to memory (testing), or
// to S3-compatible object stores without the caller changing.
//
// Object-store backends live in subpackages so their SDK dependency is only
// pulled in when used.
package blobstore
