package models

import "time"

// Plan is a reservation intent: one initial booking plus optional recurring
// renewals. Room name and venue are resolved from the static catalog, the
// backend only stores the numeric room id.
type Plan struct {
	ID                 string    `json:"id"`
	RoomID             string    `json:"room_id"`
	RoomName           string    `json:"room_name"`
	Venue              string    `json:"venue"`
	StartDay           string    `json:"start_day"`  // YYYY-MM-DD
	StartTime          string    `json:"start_time"` // HH:MM
	EndTime            string    `json:"end_time"`   // empty = single booking, set = renewal boundary
	BookingDay         string    `json:"booking_day,omitempty"`
	BookingTime        string    `json:"booking_time,omitempty"`
	Status             string    `json:"status"`
	LineUserID         string    `json:"line_user_id,omitempty"`
	IgnoreAnnouncement bool      `json:"ignore_announcement"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Recurring reports whether the plan renews until EndTime.
func (p *Plan) Recurring() bool {
	return p.EndTime != ""
}

// PlanWithTasks is a plan detail snapshot with its ordered task chain.
type PlanWithTasks struct {
	Plan
	Tasks []Task `json:"tasks"`
}
