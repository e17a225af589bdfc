package mapper

import (
	"fmt"
	"time"

	"happdash/internal/backend"
	"happdash/internal/models"
	"happdash/internal/rooms"
)

// Mapper converts raw engine records into the canonical domain model. Pure
// conversion, no I/O: the only failure path is a DecodeError for input the
// engine should never have produced.
//
// All calendar math happens in one configured location so that output is
// identical regardless of where the daemon runs.
type Mapper struct {
	rooms *rooms.Resolver
	loc   *time.Location
}

func New(resolver *rooms.Resolver, loc *time.Location) *Mapper {
	if loc == nil {
		loc = time.UTC
	}
	return &Mapper{rooms: resolver, loc: loc}
}

// instantLayouts covers the engine's timestamp spellings: naive local
// instants and full RFC 3339.
var instantLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
}

func (m *Mapper) parseInstant(field, value string) (time.Time, error) {
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, value, m.loc); err == nil {
			return t.In(m.loc), nil
		}
	}
	return time.Time{}, &DecodeError{Field: field, Value: value, Reason: "unrecognized timestamp"}
}

// splitInstant decomposes an ISO instant into a calendar date and a
// zero-padded 24-hour clock string.
func (m *Mapper) splitInstant(field, value string) (day, clock string, err error) {
	t, err := m.parseInstant(field, value)
	if err != nil {
		return "", "", err
	}
	return t.Format("2006-01-02"), t.Format("15:04"), nil
}

// MapPlan converts one raw plan. The tasks embedded in the raw record only
// contribute the booking origin time; use MapPlanWithTasks for the full
// detail model.
func (m *Mapper) MapPlan(raw backend.PlanRaw) (models.Plan, error) {
	startDay, startTime, err := m.splitInstant("target_start_time", raw.TargetStartTime)
	if err != nil {
		return models.Plan{}, err
	}

	endTime := ""
	if raw.TargetEndTime != nil && *raw.TargetEndTime != "" {
		_, endTime, err = m.splitInstant("target_end_time", *raw.TargetEndTime)
		if err != nil {
			return models.Plan{}, err
		}
	}

	info := m.rooms.Resolve(raw.RoomID)

	plan := models.Plan{
		ID:        raw.PlanID,
		RoomID:    fmt.Sprintf("%d", raw.RoomID),
		RoomName:  info.Name,
		Venue:     info.Venue,
		StartDay:  startDay,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    raw.Status,
	}

	if raw.LineUserID != nil {
		plan.LineUserID = *raw.LineUserID
	}

	// Booking origin time comes from the first ordered task; undefined when
	// the chain is empty.
	if len(raw.Tasks) > 0 {
		day, clock, err := m.splitInstant("tasks[0].execute_at", raw.Tasks[0].ExecuteAt)
		if err != nil {
			return models.Plan{}, err
		}
		plan.BookingDay = day
		plan.BookingTime = clock
	}

	if raw.CreatedAt != "" {
		if plan.CreatedAt, err = m.parseInstant("created_at", raw.CreatedAt); err != nil {
			return models.Plan{}, err
		}
	}
	if raw.UpdatedAt != "" {
		if plan.UpdatedAt, err = m.parseInstant("updated_at", raw.UpdatedAt); err != nil {
			return models.Plan{}, err
		}
	}

	return plan, nil
}

// MapPlans converts a plan list response.
func (m *Mapper) MapPlans(raw *backend.PlanListRaw) ([]models.Plan, error) {
	plans := make([]models.Plan, 0, len(raw.Plans))
	for _, p := range raw.Plans {
		plan, err := m.MapPlan(p)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// MapTask converts one raw task, attributing it to planID.
func (m *Mapper) MapTask(raw backend.TaskRaw, planID string) (models.Task, error) {
	scheduled, err := m.parseInstant("execute_at", raw.ExecuteAt)
	if err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		ID:            fmt.Sprintf("%d", raw.TaskID),
		PlanID:        planID,
		Type:          taskType(raw.Action),
		ScheduledTime: scheduled,
		Status:        narrowTaskStatus(raw.Status),
		CreatedAt:     scheduled,
		UpdatedAt:     scheduled,
	}

	if raw.ErrorMessage != nil {
		task.ErrorMessage = *raw.ErrorMessage
	}
	if raw.ExecutedAt != nil && *raw.ExecutedAt != "" {
		executed, err := m.parseInstant("executed_at", *raw.ExecutedAt)
		if err != nil {
			return models.Task{}, err
		}
		task.UpdatedAt = executed
	}

	return task, nil
}

// MapPlanWithTasks converts a plan detail record including its task chain.
func (m *Mapper) MapPlanWithTasks(raw backend.PlanRaw) (models.PlanWithTasks, error) {
	plan, err := m.MapPlan(raw)
	if err != nil {
		return models.PlanWithTasks{}, err
	}

	tasks := make([]models.Task, 0, len(raw.Tasks))
	for _, t := range raw.Tasks {
		task, err := m.MapTask(t, plan.ID)
		if err != nil {
			return models.PlanWithTasks{}, err
		}
		tasks = append(tasks, task)
	}

	return models.PlanWithTasks{Plan: plan, Tasks: tasks}, nil
}

// MapEvent classifies one raw task event for the activity feed.
func (m *Mapper) MapEvent(raw backend.TaskEventRaw) (models.RecentEvent, error) {
	actionText := "續訂"
	if raw.Action == "booking" {
		actionText = "訂房"
	}

	var eventType, message string
	switch raw.Status {
	case models.StatusCompleted:
		eventType = models.EventSuccess
		message = fmt.Sprintf("房間 %d %s成功", raw.RoomID, actionText)
	case models.StatusFailed:
		eventType = models.EventFailure
		message = fmt.Sprintf("房間 %d %s失敗", raw.RoomID, actionText)
		if raw.ErrorMessage != nil && *raw.ErrorMessage != "" {
			message += " → " + *raw.ErrorMessage
		}
	case "skipped":
		// Narrowed to failed for display, same as task status.
		eventType = models.EventFailure
		message = fmt.Sprintf("房間 %d %s失敗", raw.RoomID, actionText)
		if raw.ErrorMessage != nil && *raw.ErrorMessage != "" {
			message += " → " + *raw.ErrorMessage
		}
	case models.StatusInProgress:
		eventType = models.EventStart
		message = fmt.Sprintf("房間 %d %s中...", raw.RoomID, actionText)
	default:
		eventType = models.EventStart
		message = fmt.Sprintf("房間 %d %s待執行", raw.RoomID, actionText)
	}

	at := raw.ExecuteAt
	if raw.ExecutedAt != nil && *raw.ExecutedAt != "" {
		at = *raw.ExecutedAt
	}
	eventTime, err := m.parseInstant("execute_at", at)
	if err != nil {
		return models.RecentEvent{}, err
	}

	return models.RecentEvent{
		ID:      fmt.Sprintf("%d", raw.TaskID),
		Type:    eventType,
		Message: message,
		Time:    eventTime,
		PlanID:  raw.PlanID,
		TaskID:  fmt.Sprintf("%d", raw.TaskID),
	}, nil
}

// MapEvents converts the whole feed; it is regenerated wholesale on every
// fetch, never patched in place.
func (m *Mapper) MapEvents(raw []backend.TaskEventRaw) ([]models.RecentEvent, error) {
	events := make([]models.RecentEvent, 0, len(raw))
	for _, e := range raw {
		event, err := m.MapEvent(e)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// MapStats is a plain field copy; the raw shape already matches.
func (m *Mapper) MapStats(raw *backend.StatsRaw) models.DashboardStats {
	return models.DashboardStats{
		TodayPlans: raw.TodayPlans,
		InProgress: raw.InProgress,
		Completed:  raw.Completed,
		Failed:     raw.Failed,
		Pending:    raw.Pending,
	}
}

func taskType(action string) string {
	if action == "booking" {
		return models.TaskTypeBook
	}
	return models.TaskTypeRenew
}

// narrowTaskStatus collapses the engine's "skipped" into "failed". The
// distinction is deliberately not surfaced to operators.
func narrowTaskStatus(status string) string {
	if status == "skipped" {
		return models.StatusFailed
	}
	return status
}
