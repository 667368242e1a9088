// Package storage defines the Backend interface for workspace snapshot
// archives. A snapshot is one opaque blob (the exported tree as JSON);
// backends handle raw object I/O only.
package storage

import (
	"context"
	"io"
)

// Backend stores snapshot archives by key.
type Backend interface {
	// PutObject uploads a blob to the given key.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// GetObject retrieves a blob by key.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject removes a blob by key.
	DeleteObject(ctx context.Context, key string) error

	// ListKeys returns all stored snapshot keys, newest first.
	ListKeys(ctx context.Context) ([]string, error)

	// Type returns the backend type identifier ("local", "s3").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
