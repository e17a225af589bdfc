package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"happdash/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(snapshots repository.SnapshotRepository) *Cache {
	logger := zerolog.Nop()
	return New(snapshots, &logger)
}

func TestGetColdKeyFetches(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	var calls atomic.Int64
	c.Register("k", func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "v1", nil
	}, nil)

	res, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", res.Value)
	assert.NoError(t, res.Err)
	assert.Equal(t, int64(1), calls.Load())

	// Warm key returns without another fetch.
	res, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", res.Value)
	assert.Equal(t, int64(1), calls.Load())
}

func TestGetUnregisteredKey(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	_, err := c.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestConcurrentGetsDeduplicate(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	var calls atomic.Int64
	release := make(chan struct{})
	c.Register("k", func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}, nil)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Get(context.Background(), "k")
			require.NoError(t, err)
			results[i] = res
		}(i)
	}

	// Let both readers attach before the fetch resolves.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent gets must share one fetch")
	assert.Equal(t, "v", results[0].Value)
	assert.Equal(t, "v", results[1].Value)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	var current atomic.Value
	current.Store("v1")
	c.Register("k", func(ctx context.Context) (any, error) {
		return current.Load(), nil
	}, nil)

	res, _ := c.Get(context.Background(), "k")
	assert.Equal(t, "v1", res.Value)

	current.Store("v2")
	res, _ = c.Get(context.Background(), "k")
	assert.Equal(t, "v1", res.Value, "fresh value served from cache")

	c.Invalidate("k")
	res, _ = c.Get(context.Background(), "k")
	assert.Equal(t, "v2", res.Value, "invalidation must bypass freshness")
}

func TestGetAfterInvalidateSeesPostMutationState(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	// The fetcher snapshots backend state when the fetch is issued; the
	// first fetch then stalls in flight.
	var state atomic.Value
	state.Store("pending")
	release := make(chan struct{})
	var calls atomic.Int64
	c.Register("k", func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		snapshot := state.Load()
		if n == 1 {
			<-release
		}
		return snapshot, nil
	}, nil)

	first := make(chan Result, 1)
	go func() {
		res, _ := c.Get(context.Background(), "k")
		first <- res
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, time.Millisecond)

	// A mutation lands while the fetch is still in flight.
	c.Invalidate("k")
	state.Store("completed")

	second := make(chan Result, 1)
	go func() {
		res, _ := c.Get(context.Background(), "k")
		second <- res
	}()

	// Let the second reader attach to the stalled fetch before it resolves.
	time.Sleep(50 * time.Millisecond)
	close(release)

	res := <-second
	assert.Equal(t, "completed", res.Value, "read after invalidate must not see pre-mutation data")
	res = <-first
	assert.Equal(t, "completed", res.Value)
	assert.Equal(t, int64(2), calls.Load(), "the stale in-flight result must be refetched")
}

func TestFailedRefreshKeepsStaleValue(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	var fail atomic.Bool
	c.Register("k", func(ctx context.Context) (any, error) {
		if fail.Load() {
			return nil, errors.New("backend down")
		}
		return "good", nil
	}, nil)

	res, _ := c.Get(context.Background(), "k")
	require.Equal(t, "good", res.Value)

	fail.Store(true)
	c.Invalidate("k")

	res, _ = c.Get(context.Background(), "k")
	assert.Equal(t, "good", res.Value, "stale value must survive a failed refresh")
	assert.Error(t, res.Err)
}

func TestSubscribeDeliversSeedAndUpdates(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	var calls atomic.Int64
	c.Register("k", func(ctx context.Context) (any, error) {
		return calls.Add(1), nil
	}, nil)

	// Warm the key first.
	_, err := c.Get(context.Background(), "k")
	require.NoError(t, err)

	var mu sync.Mutex
	var got []Result
	sub, err := c.Subscribe("k", time.Hour, func(res Result) {
		mu.Lock()
		got = append(got, res)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Cancel()

	mu.Lock()
	require.NotEmpty(t, got, "current value must be delivered on subscribe")
	assert.Equal(t, int64(1), got[0].Value)
	mu.Unlock()
}

func TestFastestIntervalGovernsCadence(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	var calls atomic.Int64
	c.Register("k", func(ctx context.Context) (any, error) {
		return calls.Add(1), nil
	}, nil)

	// Slow subscriber alone: barely any fetches.
	slow, err := c.Subscribe("k", time.Hour, nil)
	require.NoError(t, err)
	defer slow.Cancel()

	time.Sleep(100 * time.Millisecond)
	base := calls.Load()
	require.LessOrEqual(t, base, int64(1))

	// Fast subscriber on the same key speeds the shared loop up.
	fast, err := c.Subscribe("k", 25*time.Millisecond, nil)
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	withFast := calls.Load()
	assert.GreaterOrEqual(t, withFast, base+3, "fastest interval must drive the fetch cadence")

	// Dropping the fast subscriber slows the loop back down.
	fast.Cancel()
	settled := calls.Load()
	time.Sleep(120 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), settled+1)
}

func TestInvalidatePushesToSubscribers(t *testing.T) {
	c := testCache(nil)
	defer c.Close()

	var current atomic.Value
	current.Store("v1")
	c.Register("k", func(ctx context.Context) (any, error) {
		return current.Load(), nil
	}, nil)

	updates := make(chan Result, 8)
	sub, err := c.Subscribe("k", time.Hour, func(res Result) {
		updates <- res
	})
	require.NoError(t, err)
	defer sub.Cancel()

	// Initial fetch lands first.
	waitForValue(t, updates, "v1")

	current.Store("v2")
	c.Invalidate("k")
	waitForValue(t, updates, "v2")
}

func waitForValue(t *testing.T, updates chan Result, want any) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case res := <-updates:
			if res.Err == nil && res.Value == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for value %v", want)
		}
	}
}

func TestSnapshotSeedAndPersist(t *testing.T) {
	ctx := context.Background()
	snapshots := repository.NewMemorySnapshotRepository(time.Hour)

	decode := func(data []byte) (any, error) {
		return string(data), nil
	}

	// A previous run left a snapshot behind.
	require.NoError(t, snapshots.Set(ctx, "k", []byte(`"old"`)))

	c := testCache(snapshots)
	defer c.Close()

	fetched := make(chan struct{})
	c.Register("k", func(ctx context.Context) (any, error) {
		close(fetched)
		return "fresh", nil
	}, decode)

	// Seed is served immediately; a refresh starts in the background because
	// the seed carries no fetch timestamp.
	res, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"old"`, res.Value)
	assert.True(t, res.FetchedAt.IsZero())

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never started")
	}

	// The fresh value is persisted for the next restart.
	require.Eventually(t, func() bool {
		data, err := snapshots.Get(ctx, "k")
		return err == nil && string(data) == `"fresh"`
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInvalidateDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	snapshots := repository.NewMemorySnapshotRepository(time.Hour)

	c := testCache(snapshots)
	defer c.Close()

	c.Register("k", func(ctx context.Context) (any, error) {
		return "v", nil
	}, func(data []byte) (any, error) { return string(data), nil })

	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		data, _ := snapshots.Get(ctx, "k")
		return data != nil
	}, 2*time.Second, 10*time.Millisecond)

	c.Invalidate("k")

	// No subscribers: the snapshot is gone and the next read re-fetches.
	data, err := snapshots.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestPlanListKeys(t *testing.T) {
	keys := PlanListKeys()
	assert.Contains(t, keys, "plans")
	assert.Contains(t, keys, "plans?status=pending")
	assert.Contains(t, keys, "plans?status=in_progress")
	assert.Contains(t, keys, "plans?status=completed")
	assert.Contains(t, keys, "plans?status=failed")
	assert.Contains(t, keys, "plans?status=cancelled")
	assert.Len(t, keys, 6)

	assert.Equal(t, "plans/p1", PlanDetailKey("p1"))
}
