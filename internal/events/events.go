package events

import (
	"encoding/json"
	"sync"
	"time"

	"happdash/internal/models"
)

const (
	EventPlanCreated = "plan_created"
	EventPlanUpdated = "plan_updated"
	EventPlanDeleted = "plan_deleted"
)

// PlanEventPayload is the plan snapshot handed to event consumers.
type PlanEventPayload struct {
	PlanID    string    `json:"plan_id"`
	RoomID    string    `json:"room_id"`
	RoomName  string    `json:"room_name,omitempty"`
	Venue     string    `json:"venue,omitempty"`
	StartDay  string    `json:"start_day,omitempty"`
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	Status    string    `json:"status,omitempty"`
	At        time.Time `json:"at"`
}

// NewPlanPayload builds the event payload from a domain plan.
func NewPlanPayload(plan *models.Plan) PlanEventPayload {
	return PlanEventPayload{
		PlanID:    plan.ID,
		RoomID:    plan.RoomID,
		RoomName:  plan.RoomName,
		Venue:     plan.Venue,
		StartDay:  plan.StartDay,
		StartTime: plan.StartTime,
		EndTime:   plan.EndTime,
		Status:    plan.Status,
		At:        time.Now(),
	}
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
