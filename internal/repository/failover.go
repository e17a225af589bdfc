package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverSnapshotRepository prefers the primary store and drops to the
// fallback when the primary errors, probing the primary again after a
// minute.
type FailoverSnapshotRepository struct {
	primary   SnapshotRepository
	fallback  SnapshotRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverSnapshotRepository(primary, fallback SnapshotRepository, logger *zerolog.Logger) *FailoverSnapshotRepository {
	return &FailoverSnapshotRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSnapshotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if !r.isDown.Load() {
		data, err := r.primary.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		r.logger.Error().Err(err).Msg("Primary snapshot repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		data, err := r.primary.Get(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return data, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.Get(ctx, key)
}

func (r *FailoverSnapshotRepository) Set(ctx context.Context, key string, data []byte) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, key, data)
		if err == nil {
			// Mirror to memory so a later failover still sees the value.
			_ = r.fallback.Set(ctx, key, data)
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary snapshot repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.Set(ctx, key, data)
}

func (r *FailoverSnapshotRepository) Delete(ctx context.Context, key string) error {
	if !r.isDown.Load() {
		err := r.primary.Delete(ctx, key)
		if err == nil {
			_ = r.fallback.Delete(ctx, key)
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary snapshot repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.Delete(ctx, key)
}
