// Package storage persists uploaded avatar blobs.
//
// Two backends exist: local disk for single-node deployments and S3 for
// anything that needs durability beyond one host. Both hand back a public
// URL path that gets persisted on the account record.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob key does not exist.
var ErrNotFound = errors.New("storage: blob not found")

// BlobStore saves and deletes avatar blobs.
type BlobStore interface {
	// Save writes the blob and returns the public URL it is served under.
	// ext is the file extension including the dot (".png"); it may be empty.
	Save(ctx context.Context, r io.Reader, ext string) (url string, err error)

	// Delete removes the blob previously returned as url. Deleting a blob
	// that no longer exists is not an error.
	Delete(ctx context.Context, url string) error
}
