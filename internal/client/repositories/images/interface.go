package images

import "context"

// Repository stores fetched image payloads keyed by their source URL.
// Entries are never expired; stale images persist until external storage
// pressure evicts the database.
type Repository interface {
	// Put stores (or overwrites) the payload for a URL.
	Put(ctx context.Context, url string, blob []byte) error

	// Get returns the cached payload, or common.ErrNotFound.
	Get(ctx context.Context, url string) ([]byte, error)
}
