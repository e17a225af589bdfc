package models

import "time"

// RecentEvent is a read-only projection of a task transition for the
// activity feed. Recomputed wholesale on every fetch, never patched.
type RecentEvent struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"` // success, failure, start
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	PlanID  string    `json:"plan_id,omitempty"`
	TaskID  string    `json:"task_id,omitempty"`
}
