// Package storage persists generated media such as narration audio.
package storage

import "context"

// BlobStore writes an object and returns the location clients can fetch it
// from.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

var (
	_ BlobStore = (*FileStore)(nil)
	_ BlobStore = (*S3Store)(nil)
)
