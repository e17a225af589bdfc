package models

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

const (
	TaskTypeBook  = "book"
	TaskTypeRenew = "renew"
)

const (
	EventSuccess = "success"
	EventFailure = "failure"
	EventStart   = "start"
)

// PlanStatuses lists every plan status the backend can report, in the order
// the dashboard filters them.
var PlanStatuses = []string{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

const (
	// DefaultSnapshotTTL bounds how long a cached snapshot survives in Redis.
	DefaultSnapshotTTL = 24 * 60 * 60 // 24 hours in seconds

	// DefaultRequestTimeout is the fixed budget for one backend request.
	DefaultRequestTimeout = 30 // seconds

	// Default view refresh cadences.
	DefaultStatsRefresh       = 30 // seconds
	DefaultEventsRefresh      = 10 // seconds
	DefaultActivePlansRefresh = 15 // seconds
	DefaultPlanTableRefresh   = 30 // seconds
	DefaultPlanDetailRefresh  = 15 // seconds
)
