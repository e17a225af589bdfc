package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySnapshotRepository(t *testing.T) {
	repo := NewMemorySnapshotRepository(time.Hour)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		err := repo.Set(ctx, "dashboard/stats", []byte(`{"pending":3}`))
		require.NoError(t, err)

		got, err := repo.Get(ctx, "dashboard/stats")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"pending":3}`), got)
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.Get(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		err := repo.Delete(ctx, "dashboard/stats")
		require.NoError(t, err)
		got, _ := repo.Get(ctx, "dashboard/stats")
		assert.Nil(t, got)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		short := NewMemorySnapshotRepository(20 * time.Millisecond)
		require.NoError(t, short.Set(ctx, "k", []byte("v")))

		got, err := short.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		time.Sleep(30 * time.Millisecond)
		got, err = short.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
