package models

// DashboardStats is an aggregate snapshot over the current plan collection.
// Derived data, no identity of its own.
type DashboardStats struct {
	TodayPlans int `json:"today_plans"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
}
