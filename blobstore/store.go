package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is a flat namespace of immutable blobs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores the content of r under name, replacing any previous blob.
	Put(ctx context.Context, name string, r io.Reader) error

	// Open opens a blob for reading. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}
