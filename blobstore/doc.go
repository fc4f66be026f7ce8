// Package blobstore defines where database backups are kept.
//
// A Store holds named, immutable blobs. Put replaces a blob atomically from
// the reader's point of view: a concurrent Open sees either the old or the new
// content, never a partial upload.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: an in-process map, for tests
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with multipart uploads
package blobstore
