package service

import (
	"context"
	"fmt"

	"happdash/internal/backend"
	"happdash/internal/cache"
	"happdash/internal/events"
	"happdash/internal/mapper"
	"happdash/internal/models"

	"github.com/rs/zerolog"
)

// EngineClient is the slice of the backend client the coordinator needs.
type EngineClient interface {
	GetPlan(ctx context.Context, id string) (*backend.PlanRaw, error)
	CreatePlan(ctx context.Context, req backend.CreatePlanRequest) (*backend.PlanRaw, error)
	UpdatePlan(ctx context.Context, id string, req backend.UpdatePlanRequest) (*backend.PlanRaw, error)
	DeletePlan(ctx context.Context, id string) error
}

// EventPublisher is satisfied by events.EventBus.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// PlanService coordinates plan mutations: policy checks before the wire,
// cache invalidation after success, domain events for side-effect consumers.
// Task-chain regeneration on end_time changes is the engine's job; this layer
// only makes sure the regenerated chain gets re-fetched.
type PlanService struct {
	client EngineClient
	mapper *mapper.Mapper
	cache  *cache.Cache
	bus    EventPublisher
	logger *zerolog.Logger
}

func NewPlanService(client EngineClient, m *mapper.Mapper, c *cache.Cache, bus EventPublisher, logger *zerolog.Logger) *PlanService {
	return &PlanService{
		client: client,
		mapper: m,
		cache:  c,
		bus:    bus,
		logger: logger,
	}
}

// Create submits a new plan and invalidates every view that could show it.
func (s *PlanService) Create(ctx context.Context, req backend.CreatePlanRequest) (*models.Plan, error) {
	if req.RoomID == "" || req.StartDay == "" || req.StartTime == "" {
		return nil, fmt.Errorf("%w: room_id, start_day and start_time are required", ErrMissingField)
	}
	if req.EndTime != nil && *req.EndTime != "" && *req.EndTime <= req.StartTime {
		return nil, ErrInvalidTimeRange
	}

	raw, err := s.client.CreatePlan(ctx, req)
	if err != nil {
		return nil, err
	}

	plan, err := s.mapper.MapPlan(*raw)
	if err != nil {
		return nil, err
	}

	s.invalidatePlanViews(plan.ID)
	s.publish(events.EventPlanCreated, &plan)

	s.logger.Info().Str("plan_id", plan.ID).Str("room", plan.RoomName).Msg("plan created")
	return &plan, nil
}

// Update patches a plan. Editing start_time on a non-pending plan is a
// policy violation and is rejected before any request is sent.
func (s *PlanService) Update(ctx context.Context, id string, patch backend.UpdatePlanRequest) (*models.Plan, error) {
	if patch.StartTime != nil {
		status, err := s.currentStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		if status != models.StatusPending {
			return nil, fmt.Errorf("%w (current status: %s)", ErrStartTimeLocked, status)
		}
	}

	if patch.StartTime != nil && patch.EndTime != nil &&
		*patch.EndTime != "" && *patch.EndTime <= *patch.StartTime {
		return nil, ErrInvalidTimeRange
	}

	raw, err := s.client.UpdatePlan(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	plan, err := s.mapper.MapPlan(*raw)
	if err != nil {
		return nil, err
	}

	s.invalidatePlanViews(plan.ID)
	s.publish(events.EventPlanUpdated, &plan)

	s.logger.Info().Str("plan_id", plan.ID).Str("status", plan.Status).Msg("plan updated")
	return &plan, nil
}

// Delete removes a plan. The event feed regenerates wholesale on its next
// refresh, so invalidating its key is enough to drop references to the
// deleted plan's tasks.
func (s *PlanService) Delete(ctx context.Context, id string) error {
	if err := s.client.DeletePlan(ctx, id); err != nil {
		return err
	}

	s.invalidatePlanViews(id)
	_ = s.bus.PublishJSON(events.EventPlanDeleted, events.PlanEventPayload{PlanID: id})

	s.logger.Info().Str("plan_id", id).Msg("plan deleted")
	return nil
}

// invalidatePlanViews drops every key a plan mutation can affect: the plan's
// detail, all list filters (status changes move plans between them) and the
// dashboard aggregates.
func (s *PlanService) invalidatePlanViews(id string) {
	keys := append(cache.PlanListKeys(), cache.PlanDetailKey(id), cache.KeyStats, cache.KeyEvents)
	s.cache.Invalidate(keys...)
}

// currentStatus resolves the plan's status from cached state when possible,
// falling back to one read from the engine for plans no view has loaded yet.
func (s *PlanService) currentStatus(ctx context.Context, id string) (string, error) {
	if res, ok := s.cache.Peek(cache.PlanDetailKey(id)); ok {
		if detail, ok := res.Value.(models.PlanWithTasks); ok {
			return detail.Status, nil
		}
	}

	for _, key := range cache.PlanListKeys() {
		res, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		plans, ok := res.Value.([]models.Plan)
		if !ok {
			continue
		}
		for i := range plans {
			if plans[i].ID == id {
				return plans[i].Status, nil
			}
		}
	}

	raw, err := s.client.GetPlan(ctx, id)
	if err != nil {
		return "", err
	}
	return raw.Status, nil
}

func (s *PlanService) publish(eventType string, plan *models.Plan) {
	if err := s.bus.PublishJSON(eventType, events.NewPlanPayload(plan)); err != nil {
		s.logger.Warn().Err(err).Str("plan_id", plan.ID).Msg("event publish failed")
	}
}
