package views

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"happdash/internal/backend"
	"happdash/internal/cache"
	"happdash/internal/config"
	"happdash/internal/mapper"
	"happdash/internal/models"

	"github.com/rs/zerolog"
)

// EngineReader is the read-only slice of the backend client the views need.
type EngineReader interface {
	ListPlans(ctx context.Context, status string) (*backend.PlanListRaw, error)
	GetPlan(ctx context.Context, id string) (*backend.PlanRaw, error)
	DashboardStats(ctx context.Context) (*backend.StatsRaw, error)
	DashboardEvents(ctx context.Context) ([]backend.TaskEventRaw, error)
}

// Manager owns the dashboard's standing subscriptions: stats cards, event
// feed, active-plans table and the full plan table. Each view declares its
// own refresh interval; views sharing a key share one fetch loop. Views only
// read snapshots, all mutation goes through the cache's own update path.
type Manager struct {
	cache  *cache.Cache
	engine EngineReader
	mapper *mapper.Mapper
	cfg    config.RefreshConfig
	loc    *time.Location
	logger *zerolog.Logger

	stats      viewState
	events     viewState
	inProgress viewState
	pending    viewState
	table      viewState

	subs []*cache.Subscription
}

// viewState is one view's last-delivered result. The error from a failed
// refresh rides alongside the retained stale value.
type viewState struct {
	mu        sync.RWMutex
	value     any
	err       error
	fetchedAt time.Time
}

func (v *viewState) apply(res cache.Result) {
	v.mu.Lock()
	v.value = res.Value
	v.err = res.Err
	v.fetchedAt = res.FetchedAt
	v.mu.Unlock()
}

func (v *viewState) snapshot() (any, error, time.Time) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.err, v.fetchedAt
}

func NewManager(c *cache.Cache, engine EngineReader, m *mapper.Mapper, cfg config.RefreshConfig, loc *time.Location, logger *zerolog.Logger) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	mgr := &Manager{
		cache:  c,
		engine: engine,
		mapper: m,
		cfg:    cfg,
		loc:    loc,
		logger: logger,
	}
	mgr.registerKeys()
	return mgr
}

// registerKeys installs fetchers for every key the dashboard reads. Detail
// keys are registered lazily per plan id.
func (m *Manager) registerKeys() {
	m.cache.Register(cache.KeyStats, m.fetchStats, decodeStats)
	m.cache.Register(cache.KeyEvents, m.fetchEvents, decodeEvents)
	for _, status := range append([]string{""}, models.PlanStatuses...) {
		m.cache.Register(cache.PlanListKey(status), m.listFetcher(status), decodePlans)
	}
}

// Start attaches the standing subscriptions at their configured cadences.
func (m *Manager) Start() {
	m.subscribe(cache.KeyStats, m.cfg.Stats, &m.stats)
	m.subscribe(cache.KeyEvents, m.cfg.Events, &m.events)
	m.subscribe(cache.PlanListKey(models.StatusInProgress), m.cfg.ActivePlans, &m.inProgress)
	m.subscribe(cache.PlanListKey(models.StatusPending), m.cfg.ActivePlans, &m.pending)
	m.subscribe(cache.PlanListKey(""), m.cfg.PlanTable, &m.table)
}

// Stop cancels all standing subscriptions.
func (m *Manager) Stop() {
	for _, sub := range m.subs {
		sub.Cancel()
	}
	m.subs = nil
}

func (m *Manager) subscribe(key string, intervalSeconds int, state *viewState) {
	sub, err := m.cache.Subscribe(key, time.Duration(intervalSeconds)*time.Second, state.apply)
	if err != nil {
		m.logger.Error().Err(err).Str("key", key).Msg("view subscription failed")
		return
	}
	m.subs = append(m.subs, sub)
}

// StatsSnapshot is the stats-cards view state.
type StatsSnapshot struct {
	Stats     models.DashboardStats `json:"stats"`
	Err       error                 `json:"-"`
	FetchedAt time.Time             `json:"fetched_at"`
}

func (m *Manager) Stats() StatsSnapshot {
	value, err, at := m.stats.snapshot()
	snap := StatsSnapshot{Err: err, FetchedAt: at}
	if stats, ok := value.(models.DashboardStats); ok {
		snap.Stats = stats
	}
	return snap
}

// EventsSnapshot is the activity-feed view state.
type EventsSnapshot struct {
	Events    []models.RecentEvent `json:"events"`
	Err       error                `json:"-"`
	FetchedAt time.Time            `json:"fetched_at"`
}

func (m *Manager) Events() EventsSnapshot {
	value, err, at := m.events.snapshot()
	snap := EventsSnapshot{Err: err, FetchedAt: at}
	if events, ok := value.([]models.RecentEvent); ok {
		snap.Events = events
	}
	return snap
}

// ActivePlansSnapshot feeds the dashboard's plan-status table: the
// in-progress and pending lists plus a today-only cut of the pending ones.
type ActivePlansSnapshot struct {
	InProgress   []models.Plan `json:"in_progress"`
	Pending      []models.Plan `json:"pending"`
	PendingToday []models.Plan `json:"pending_today"`
	Err          error         `json:"-"`
	FetchedAt    time.Time     `json:"fetched_at"`
}

func (m *Manager) ActivePlans() ActivePlansSnapshot {
	inProgress, err1, at1 := m.inProgress.snapshot()
	pending, err2, at2 := m.pending.snapshot()

	snap := ActivePlansSnapshot{FetchedAt: at1}
	if at2.After(at1) {
		snap.FetchedAt = at2
	}
	snap.Err = err1
	if snap.Err == nil {
		snap.Err = err2
	}

	if plans, ok := inProgress.([]models.Plan); ok {
		snap.InProgress = plans
	}
	if plans, ok := pending.([]models.Plan); ok {
		snap.Pending = plans
		snap.PendingToday = filterToday(plans, m.loc)
	}
	return snap
}

// PlansSnapshot is the full plan-table view state.
type PlansSnapshot struct {
	Plans     []models.Plan `json:"plans"`
	Err       error         `json:"-"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Table returns the standing unfiltered plan table.
func (m *Manager) Table() PlansSnapshot {
	value, err, at := m.table.snapshot()
	snap := PlansSnapshot{Err: err, FetchedAt: at}
	if plans, ok := value.([]models.Plan); ok {
		snap.Plans = plans
	}
	return snap
}

// Plans reads an arbitrary status filter through the cache: stale data is
// served immediately, a cold filter blocks on its first fetch.
func (m *Manager) Plans(ctx context.Context, status string) (PlansSnapshot, error) {
	res, err := m.cache.Get(ctx, cache.PlanListKey(status))
	if err != nil {
		return PlansSnapshot{}, err
	}
	snap := PlansSnapshot{Err: res.Err, FetchedAt: res.FetchedAt}
	if plans, ok := res.Value.([]models.Plan); ok {
		snap.Plans = plans
	}
	return snap, nil
}

// DetailSnapshot is the plan-detail sidebar state.
type DetailSnapshot struct {
	Detail    models.PlanWithTasks `json:"detail"`
	Err       error                `json:"-"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// Detail reads one plan's detail through the cache, registering the key on
// first use.
func (m *Manager) Detail(ctx context.Context, id string) (DetailSnapshot, error) {
	key := cache.PlanDetailKey(id)
	m.cache.Register(key, m.detailFetcher(id), decodeDetail)

	res, err := m.cache.Get(ctx, key)
	if err != nil {
		return DetailSnapshot{}, err
	}
	snap := DetailSnapshot{Err: res.Err, FetchedAt: res.FetchedAt}
	if detail, ok := res.Value.(models.PlanWithTasks); ok {
		snap.Detail = detail
	}
	return snap, nil
}

// DetailView is a live sidebar subscription for one plan.
type DetailView struct {
	state viewState
	sub   *cache.Subscription
}

// OpenDetail subscribes the sidebar to one plan at the detail cadence.
// Close it when the operator navigates away.
func (m *Manager) OpenDetail(id string) (*DetailView, error) {
	key := cache.PlanDetailKey(id)
	m.cache.Register(key, m.detailFetcher(id), decodeDetail)

	view := &DetailView{}
	sub, err := m.cache.Subscribe(key, time.Duration(m.cfg.PlanDetail)*time.Second, view.state.apply)
	if err != nil {
		return nil, err
	}
	view.sub = sub
	return view, nil
}

func (v *DetailView) Snapshot() DetailSnapshot {
	value, err, at := v.state.snapshot()
	snap := DetailSnapshot{Err: err, FetchedAt: at}
	if detail, ok := value.(models.PlanWithTasks); ok {
		snap.Detail = detail
	}
	return snap
}

func (v *DetailView) Close() {
	v.sub.Cancel()
}

func (m *Manager) fetchStats(ctx context.Context) (any, error) {
	raw, err := m.engine.DashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	return m.mapper.MapStats(raw), nil
}

func (m *Manager) fetchEvents(ctx context.Context) (any, error) {
	raw, err := m.engine.DashboardEvents(ctx)
	if err != nil {
		return nil, err
	}
	return m.mapper.MapEvents(raw)
}

func (m *Manager) listFetcher(status string) cache.FetchFunc {
	return func(ctx context.Context) (any, error) {
		raw, err := m.engine.ListPlans(ctx, status)
		if err != nil {
			return nil, err
		}
		return m.mapper.MapPlans(raw)
	}
}

func (m *Manager) detailFetcher(id string) cache.FetchFunc {
	return func(ctx context.Context) (any, error) {
		raw, err := m.engine.GetPlan(ctx, id)
		if err != nil {
			return nil, err
		}
		return m.mapper.MapPlanWithTasks(*raw)
	}
}

// filterToday cuts a plan list down to plans starting today in the
// configured zone.
func filterToday(plans []models.Plan, loc *time.Location) []models.Plan {
	today := time.Now().In(loc).Format("2006-01-02")
	out := make([]models.Plan, 0, len(plans))
	for _, plan := range plans {
		if plan.StartDay == today {
			out = append(out, plan)
		}
	}
	return out
}

// Snapshot decoders restore persisted cache values after a restart.

func decodeStats(data []byte) (any, error) {
	var stats models.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func decodeEvents(data []byte) (any, error) {
	var events []models.RecentEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func decodePlans(data []byte) (any, error) {
	var plans []models.Plan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func decodeDetail(data []byte) (any, error) {
	var detail models.PlanWithTasks
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, err
	}
	return detail, nil
}
