package models

import "time"

// Task is one scheduled execution unit of a plan: the initial booking or a
// renewal. Tasks never outlive their plan.
type Task struct {
	ID            string    `json:"id"`
	PlanID        string    `json:"plan_id"`
	Type          string    `json:"type"` // book, renew
	ScheduledTime time.Time `json:"scheduled_time"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	OrderURL      string    `json:"order_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
