// Package storage abstracts the blob store that holds rendered report
// artifacts. The engine only needs put/exists/delete/size/open semantics;
// the backing store is a deployment choice.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a path has no stored blob.
var ErrNotFound = errors.New("artifact not found")

// BlobStore is the artifact storage contract.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	Size(ctx context.Context, path string) (int64, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
