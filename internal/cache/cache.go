package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"happdash/internal/metrics"
	"happdash/internal/repository"

	"github.com/rs/zerolog"
)

// FetchFunc loads the current full-state snapshot for a key.
type FetchFunc func(ctx context.Context) (any, error)

// DecodeFunc restores a persisted snapshot into its domain value.
type DecodeFunc func(data []byte) (any, error)

// UpdateFunc receives a new Result for a subscribed key. Callbacks run on the
// cache's fetch goroutine and must not block.
type UpdateFunc func(Result)

// Result is what readers see: the last-known value plus the last refresh
// error, if any. A failed refresh keeps the previous value in place, so Err
// being set does not mean Value is empty.
type Result struct {
	Value     any
	Err       error
	FetchedAt time.Time
}

// Cache is the per-key store driving all dashboard views. One value per key,
// at most one in-flight fetch per key, background revalidation at the fastest
// interval any subscriber of the key declared.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	snapshots repository.SnapshotRepository
	logger    *zerolog.Logger
	nextSubID int64
	closed    bool
}

type entry struct {
	key    string
	fetch  FetchFunc
	decode DecodeFunc

	value       any
	hasValue    bool
	err         error
	fetchedAt   time.Time
	invalidated bool
	gen         uint64

	inflight bool
	waiters  []chan Result

	subs     map[int64]*Subscription
	interval time.Duration
	stop     chan struct{}
}

// Subscription ties one view to a key at its declared refresh interval.
type Subscription struct {
	id       int64
	key      string
	interval time.Duration
	onUpdate UpdateFunc
	cache    *Cache
}

// Cancel detaches the subscription; the key's refresh cadence is recomputed
// from the remaining subscribers.
func (s *Subscription) Cancel() {
	s.cache.unsubscribe(s)
}

func New(snapshots repository.SnapshotRepository, logger *zerolog.Logger) *Cache {
	return &Cache{
		entries:   make(map[string]*entry),
		snapshots: snapshots,
		logger:    logger,
	}
}

// Register installs the fetcher for a key. Idempotent: the first registration
// wins. When a snapshot store is configured, the last persisted value is
// restored as stale seed data.
func (c *Cache) Register(key string, fetch FetchFunc, decode DecodeFunc) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return
	}

	e := &entry{
		key:    key,
		fetch:  fetch,
		decode: decode,
		subs:   make(map[int64]*Subscription),
	}
	c.entries[key] = e
	c.mu.Unlock()

	if c.snapshots == nil || decode == nil {
		return
	}

	data, err := c.snapshots.Get(context.Background(), key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("snapshot restore failed")
		return
	}
	if data == nil {
		return
	}

	value, err := decode(data)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("snapshot decode failed")
		return
	}

	c.mu.Lock()
	if !e.hasValue {
		// Seed value only; fetchedAt stays zero so the first reader still
		// triggers a refresh.
		e.value = value
		e.hasValue = true
	}
	c.mu.Unlock()
}

// Get returns the key's value. Stale-but-present data is returned immediately
// while a due refresh proceeds in the background; only a cold key (or one
// just invalidated) blocks until the fetch completes.
func (c *Cache) Get(ctx context.Context, key string) (Result, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return Result{}, fmt.Errorf("cache key %q is not registered", key)
	}

	if e.hasValue && !e.invalidated {
		res := e.result()
		stale := e.fetchedAt.IsZero()
		c.mu.Unlock()
		if stale {
			c.triggerRefresh(e)
		}
		return res, nil
	}

	ch := c.joinFetchLocked(e)
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Peek returns the key's current value without triggering any fetch. ok is
// false for unregistered or never-fetched keys.
func (c *Cache) Peek(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasValue {
		return Result{}, false
	}
	return e.result(), true
}

// Subscribe attaches onUpdate to the key. The current value, when present, is
// delivered synchronously before Subscribe returns; later refreshes arrive on
// the cache's goroutine. The fastest interval across the key's subscribers
// drives the actual fetch cadence.
func (c *Cache) Subscribe(key string, interval time.Duration, onUpdate UpdateFunc) (*Subscription, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("cache key %q is not registered", key)
	}

	c.nextSubID++
	sub := &Subscription{
		id:       c.nextSubID,
		key:      key,
		interval: interval,
		onUpdate: onUpdate,
		cache:    c,
	}
	e.subs[sub.id] = sub
	c.restartLoopLocked(e)

	var seed *Result
	if e.hasValue {
		res := e.result()
		seed = &res
	}
	needsFetch := !e.hasValue || e.invalidated || time.Since(e.fetchedAt) >= interval
	c.mu.Unlock()

	if seed != nil && onUpdate != nil {
		onUpdate(*seed)
	}
	if needsFetch {
		c.triggerRefresh(e)
	}

	return sub, nil
}

// Invalidate forces the next read of each key to bypass freshness. Keys with
// active subscribers are re-fetched immediately; persisted snapshots are
// dropped either way.
func (c *Cache) Invalidate(keys ...string) {
	for _, key := range keys {
		c.mu.Lock()
		e, ok := c.entries[key]
		if !ok {
			c.mu.Unlock()
			continue
		}
		e.invalidated = true
		e.gen++
		hasSubs := len(e.subs) > 0
		c.mu.Unlock()

		metrics.IncCacheInvalidation(key)

		if c.snapshots != nil {
			if err := c.snapshots.Delete(context.Background(), key); err != nil {
				c.logger.Warn().Err(err).Str("key", key).Msg("snapshot delete failed")
			}
		}

		if hasSubs {
			c.triggerRefresh(e)
		}
	}
}

// Close stops all refresh loops.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, e := range c.entries {
		if e.stop != nil {
			close(e.stop)
			e.stop = nil
		}
	}
}

func (e *entry) result() Result {
	return Result{Value: e.value, Err: e.err, FetchedAt: e.fetchedAt}
}

// joinFetchLocked registers a waiter for the key's next result, starting the
// fetch if none is in flight. Caller holds c.mu.
func (c *Cache) joinFetchLocked(e *entry) chan Result {
	ch := make(chan Result, 1)
	e.waiters = append(e.waiters, ch)
	if e.inflight {
		metrics.IncCacheDedup(e.key)
		return ch
	}
	e.inflight = true
	go c.doFetch(e)
	return ch
}

// triggerRefresh starts a background fetch unless one is already running.
func (c *Cache) triggerRefresh(e *entry) {
	c.mu.Lock()
	if e.inflight || c.closed {
		c.mu.Unlock()
		return
	}
	e.inflight = true
	c.mu.Unlock()
	go c.doFetch(e)
}

// doFetch performs the single in-flight fetch for the key and fans the
// result out to waiters and subscribers. Results apply in completion order;
// each response is a full snapshot, so last-write-wins is consistent. A
// fetch that was issued before an Invalidate may carry pre-mutation data, so
// its result must not satisfy readers that arrived after the invalidation:
// the fetch re-runs, carrying all waiters forward, until it was issued under
// the current generation.
func (c *Cache) doFetch(e *entry) {
	var value any
	var err error
	for {
		c.mu.Lock()
		startGen := e.gen
		c.mu.Unlock()

		value, err = e.fetch(context.Background())

		c.mu.Lock()
		if err == nil && e.gen != startGen {
			c.mu.Unlock()
			c.logger.Debug().Str("key", e.key).Msg("discarding fetch that predates an invalidation")
			continue
		}
		break
	}

	e.inflight = false
	if err == nil {
		e.value = value
		e.hasValue = true
		e.err = nil
		e.fetchedAt = time.Now()
		e.invalidated = false
	} else {
		// Stale data retained; the failure rides along in Result.Err. The
		// invalidated flag also stays, so the next read still re-fetches.
		e.err = err
	}
	res := e.result()
	waiters := e.waiters
	e.waiters = nil
	subs := make([]*Subscription, 0, len(e.subs))
	for _, sub := range e.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	if err == nil {
		metrics.IncCacheFetch(e.key, "ok")
		c.persistSnapshot(e.key, value)
	} else {
		metrics.IncCacheFetch(e.key, "error")
		c.logger.Warn().Err(err).Str("key", e.key).Msg("refresh failed, keeping stale value")
	}

	for _, ch := range waiters {
		ch <- res
	}
	for _, sub := range subs {
		if sub.onUpdate != nil {
			sub.onUpdate(res)
		}
	}
}

func (c *Cache) persistSnapshot(key string, value any) {
	if c.snapshots == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("snapshot encode failed")
		return
	}
	if err := c.snapshots.Set(context.Background(), key, data); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("snapshot persist failed")
	}
}

func (c *Cache) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[sub.key]
	if !ok {
		return
	}
	delete(e.subs, sub.id)
	c.restartLoopLocked(e)
}

// restartLoopLocked recomputes the key's refresh cadence from its remaining
// subscribers and restarts the loop when the cadence changed. Caller holds
// c.mu.
func (c *Cache) restartLoopLocked(e *entry) {
	fastest := time.Duration(0)
	for _, sub := range e.subs {
		if sub.interval <= 0 {
			continue
		}
		if fastest == 0 || sub.interval < fastest {
			fastest = sub.interval
		}
	}

	if fastest == e.interval && e.stop != nil {
		return
	}

	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	e.interval = fastest
	if fastest == 0 || c.closed {
		return
	}

	stop := make(chan struct{})
	e.stop = stop
	go c.runLoop(e, fastest, stop)
}

func (c *Cache) runLoop(e *entry, interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.triggerRefresh(e)
		}
	}
}
