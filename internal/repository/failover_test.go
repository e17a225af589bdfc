package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepository struct {
	err error
}

func (f *failingRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, f.err
}

func (f *failingRepository) Set(ctx context.Context, key string, data []byte) error {
	return f.err
}

func (f *failingRepository) Delete(ctx context.Context, key string) error {
	return f.err
}

func TestFailoverSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		primary := NewMemorySnapshotRepository(time.Hour)
		fallback := NewMemorySnapshotRepository(time.Hour)
		repo := NewFailoverSnapshotRepository(primary, fallback, &logger)

		require.NoError(t, repo.Set(ctx, "k", []byte("v")))

		got, err := repo.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		// Healthy sets mirror into the fallback too.
		got, err = fallback.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("FallsBackOnPrimaryError", func(t *testing.T) {
		primary := &failingRepository{err: errors.New("connection refused")}
		fallback := NewMemorySnapshotRepository(time.Hour)
		repo := NewFailoverSnapshotRepository(primary, fallback, &logger)

		require.NoError(t, repo.Set(ctx, "k", []byte("v")))

		got, err := repo.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
		assert.True(t, repo.isDown.Load())
	})

	t.Run("DeleteFallsBack", func(t *testing.T) {
		primary := &failingRepository{err: errors.New("down")}
		fallback := NewMemorySnapshotRepository(time.Hour)
		repo := NewFailoverSnapshotRepository(primary, fallback, &logger)

		require.NoError(t, fallback.Set(ctx, "k", []byte("v")))
		require.NoError(t, repo.Delete(ctx, "k"))

		got, _ := fallback.Get(ctx, "k")
		assert.Nil(t, got)
	})
}
