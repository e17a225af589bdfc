package backend

// Raw wire shapes as the reservation engine returns them. These never leave
// the transport/mapper boundary; the rest of the dashboard works with the
// domain model in internal/models.

type TaskRaw struct {
	TaskID       int64   `json:"task_id"`
	ExecuteAt    string  `json:"execute_at"`
	Action       string  `json:"action"` // booking, renew
	Status       string  `json:"status"` // pending, in_progress, completed, failed, skipped
	ExecutedAt   *string `json:"executed_at"`
	ErrorMessage *string `json:"error_message"`
}

type PlanRaw struct {
	PlanID          string    `json:"plan_id"`
	RoomID          int64     `json:"room_id"`
	LineUserID      *string   `json:"line_user_id"`
	TargetStartTime string    `json:"target_start_time"`
	TargetEndTime   *string   `json:"target_end_time"`
	Status          string    `json:"status"`
	OrderURL        *string   `json:"order_url"`
	CreatedAt       string    `json:"created_at"`
	UpdatedAt       string    `json:"updated_at"`
	Tasks           []TaskRaw `json:"tasks"`
}

type PlanListRaw struct {
	Total int       `json:"total"`
	Plans []PlanRaw `json:"plans"`
}

type TaskEventRaw struct {
	TaskID       int64   `json:"task_id"`
	PlanID       string  `json:"plan_id"`
	RoomID       int64   `json:"room_id"`
	LineUserID   *string `json:"line_user_id"`
	Action       string  `json:"action"`
	Status       string  `json:"status"`
	ExecuteAt    string  `json:"execute_at"`
	ExecutedAt   *string `json:"executed_at"`
	ErrorMessage *string `json:"error_message"`
}

type StatsRaw struct {
	TodayPlans int `json:"today_plans"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
}

type CreatePlanRequest struct {
	RoomID             string  `json:"room_id"`
	StartDay           string  `json:"start_day"`
	StartTime          string  `json:"start_time"`
	EndTime            *string `json:"end_time,omitempty"`
	LineUserID         string  `json:"line_user_id,omitempty"`
	IgnoreAnnouncement bool    `json:"ignore_announcement,omitempty"`
}

type UpdatePlanRequest struct {
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Status    *string `json:"status,omitempty"`
}
