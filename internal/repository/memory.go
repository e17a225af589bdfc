package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySnapshotRepository keeps snapshots in process memory. Used standalone
// when Redis is disabled and as the fallback half of the failover pair.
type MemorySnapshotRepository struct {
	snapshots sync.Map
	ttl       time.Duration
}

func NewMemorySnapshotRepository(ttl time.Duration) *MemorySnapshotRepository {
	return &MemorySnapshotRepository{
		ttl: ttl,
	}
}

func (r *MemorySnapshotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, ok := r.snapshots.Load(key)
	if !ok {
		return nil, nil
	}

	entry := val.(*memoryEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.snapshots.Delete(key)
		return nil, nil
	}
	return entry.data, nil
}

func (r *MemorySnapshotRepository) Set(ctx context.Context, key string, data []byte) error {
	r.snapshots.Store(key, &memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySnapshotRepository) Delete(ctx context.Context, key string) error {
	r.snapshots.Delete(key)
	return nil
}
