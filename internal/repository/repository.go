package repository

import "context"

// SnapshotRepository persists the cache's last-known values as opaque JSON
// blobs keyed by cache key. A warm restart can then serve stale-but-present
// data before the first fetch completes.
type SnapshotRepository interface {
	// Get returns nil, nil when no snapshot exists for the key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
