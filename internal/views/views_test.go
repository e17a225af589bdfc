package views

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"happdash/internal/backend"
	"happdash/internal/cache"
	"happdash/internal/config"
	"happdash/internal/mapper"
	"happdash/internal/models"
	"happdash/internal/rooms"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	listCalls   atomic.Int64
	statsCalls  atomic.Int64
	eventsCalls atomic.Int64
	getCalls    atomic.Int64

	startDay string
}

func (f *fakeReader) ListPlans(ctx context.Context, status string) (*backend.PlanListRaw, error) {
	f.listCalls.Add(1)
	if status == "" {
		status = "pending"
	}
	return &backend.PlanListRaw{
		Total: 1,
		Plans: []backend.PlanRaw{{
			PlanID:          "p1",
			RoomID:          589,
			TargetStartTime: f.startDay + "T21:00:00",
			Status:          status,
		}},
	}, nil
}

func (f *fakeReader) GetPlan(ctx context.Context, id string) (*backend.PlanRaw, error) {
	f.getCalls.Add(1)
	return &backend.PlanRaw{
		PlanID:          id,
		RoomID:          589,
		TargetStartTime: f.startDay + "T21:00:00",
		Status:          "pending",
		Tasks: []backend.TaskRaw{{
			TaskID:    1,
			Action:    "booking",
			Status:    "pending",
			ExecuteAt: f.startDay + "T09:00:00",
		}},
	}, nil
}

func (f *fakeReader) DashboardStats(ctx context.Context) (*backend.StatsRaw, error) {
	f.statsCalls.Add(1)
	return &backend.StatsRaw{TodayPlans: 3, InProgress: 1, Completed: 2}, nil
}

func (f *fakeReader) DashboardEvents(ctx context.Context) ([]backend.TaskEventRaw, error) {
	f.eventsCalls.Add(1)
	return []backend.TaskEventRaw{{
		TaskID:    1,
		PlanID:    "p1",
		RoomID:    589,
		Action:    "booking",
		Status:    "completed",
		ExecuteAt: f.startDay + "T09:00:00",
	}}, nil
}

func testManager(t *testing.T, reader *fakeReader, cfg config.RefreshConfig) (*Manager, *cache.Cache) {
	t.Helper()
	logger := zerolog.Nop()

	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	if reader.startDay == "" {
		reader.startDay = time.Now().In(loc).Format("2006-01-02")
	}

	c := cache.New(nil, &logger)
	t.Cleanup(c.Close)

	m := mapper.New(rooms.NewResolver(nil, rooms.VenueMinquan), loc)
	return NewManager(c, reader, m, cfg, loc, &logger), c
}

func defaultRefresh() config.RefreshConfig {
	return config.RefreshConfig{
		Stats:       models.DefaultStatsRefresh,
		Events:      models.DefaultEventsRefresh,
		ActivePlans: models.DefaultActivePlansRefresh,
		PlanTable:   models.DefaultPlanTableRefresh,
		PlanDetail:  models.DefaultPlanDetailRefresh,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestStandingViewsPopulate(t *testing.T) {
	reader := &fakeReader{}
	mgr, _ := testManager(t, reader, defaultRefresh())

	mgr.Start()
	defer mgr.Stop()

	waitFor(t, func() bool { return !mgr.Stats().FetchedAt.IsZero() })
	waitFor(t, func() bool { return !mgr.Events().FetchedAt.IsZero() })
	waitFor(t, func() bool { return !mgr.ActivePlans().FetchedAt.IsZero() })
	waitFor(t, func() bool { return !mgr.Table().FetchedAt.IsZero() })

	stats := mgr.Stats()
	require.NoError(t, stats.Err)
	assert.Equal(t, 3, stats.Stats.TodayPlans)

	feed := mgr.Events()
	require.NoError(t, feed.Err)
	require.Len(t, feed.Events, 1)
	assert.Equal(t, models.EventSuccess, feed.Events[0].Type)

	table := mgr.Table()
	require.NoError(t, table.Err)
	require.Len(t, table.Plans, 1)
	assert.Equal(t, "p1", table.Plans[0].ID)
}

func TestActivePlansTodayFilter(t *testing.T) {
	reader := &fakeReader{}
	mgr, _ := testManager(t, reader, defaultRefresh())

	mgr.Start()
	defer mgr.Stop()

	waitFor(t, func() bool { return !mgr.ActivePlans().FetchedAt.IsZero() })

	active := mgr.ActivePlans()
	require.NoError(t, active.Err)
	require.Len(t, active.Pending, 1)
	assert.Len(t, active.PendingToday, 1, "the fake plan starts today")
	require.Len(t, active.InProgress, 1)
	assert.Equal(t, models.StatusInProgress, active.InProgress[0].Status)
}

func TestActivePlansTodayFilterExcludesOtherDays(t *testing.T) {
	reader := &fakeReader{startDay: "2025-11-18"}
	mgr, _ := testManager(t, reader, defaultRefresh())

	mgr.Start()
	defer mgr.Stop()

	waitFor(t, func() bool { return !mgr.ActivePlans().FetchedAt.IsZero() })

	active := mgr.ActivePlans()
	require.Len(t, active.Pending, 1)
	assert.Empty(t, active.PendingToday)
}

func TestPlansOnDemandFilter(t *testing.T) {
	reader := &fakeReader{}
	mgr, _ := testManager(t, reader, defaultRefresh())
	ctx := context.Background()

	snap, err := mgr.Plans(ctx, models.StatusFailed)
	require.NoError(t, err)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Plans, 1)
	assert.Equal(t, models.StatusFailed, snap.Plans[0].Status)
	assert.Equal(t, int64(1), reader.listCalls.Load())

	// A second read within the freshness window is served from cache.
	_, err = mgr.Plans(ctx, models.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reader.listCalls.Load())
}

func TestDetailOnDemand(t *testing.T) {
	reader := &fakeReader{}
	mgr, _ := testManager(t, reader, defaultRefresh())
	ctx := context.Background()

	snap, err := mgr.Detail(ctx, "p7")
	require.NoError(t, err)
	require.NoError(t, snap.Err)
	assert.Equal(t, "p7", snap.Detail.ID)
	require.Len(t, snap.Detail.Tasks, 1)
	assert.Equal(t, models.TaskTypeBook, snap.Detail.Tasks[0].Type)
	assert.Equal(t, int64(1), reader.getCalls.Load())
}

func TestOpenDetailSubscription(t *testing.T) {
	reader := &fakeReader{}
	mgr, _ := testManager(t, reader, defaultRefresh())

	view, err := mgr.OpenDetail("p3")
	require.NoError(t, err)
	defer view.Close()

	waitFor(t, func() bool { return !view.Snapshot().FetchedAt.IsZero() })

	snap := view.Snapshot()
	require.NoError(t, snap.Err)
	assert.Equal(t, "p3", snap.Detail.ID)
}

func TestInvalidationPushesToStandingView(t *testing.T) {
	reader := &fakeReader{}
	mgr, c := testManager(t, reader, defaultRefresh())

	mgr.Start()
	defer mgr.Stop()

	waitFor(t, func() bool { return !mgr.Stats().FetchedAt.IsZero() })
	before := reader.statsCalls.Load()

	c.Invalidate(cache.KeyStats)
	waitFor(t, func() bool { return reader.statsCalls.Load() > before })
}

func TestViewKeysRegisteredForAllStatuses(t *testing.T) {
	reader := &fakeReader{}
	_, c := testManager(t, reader, defaultRefresh())
	ctx := context.Background()

	for _, status := range models.PlanStatuses {
		_, err := c.Get(ctx, cache.PlanListKey(status))
		require.NoError(t, err, fmt.Sprintf("status %q not registered", status))
	}
}
