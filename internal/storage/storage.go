// Package storage provides blob storage backends for uploaded media.
package storage

import "context"

// BlobStore abstracts the object store holding post images.
// Keys are opaque; PublicURL maps a key to a URL clients can fetch.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
