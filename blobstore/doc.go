// Package blobstore abstracts the durable store checkpoints are written
// to: a flat key namespace of immutable blobs with streaming writes,
// random-access reads and prefix listing.
//
// Keys use forward slashes regardless of backend ("3_0/records.bin").
// Writes become visible atomically on Close; the checkpoint layer layers
// its own completion marker on top so a crashed writer never leaves a
// directory that looks complete.
//
// Backends: LocalStore (filesystem, mmap reads), MemoryStore (tests), and
// the minio and s3 subpackages for object storage. The s3 subpackage also
// provides a DynamoDB-backed commit store that turns marker writes into
// atomic conditional puts.
package blobstore
