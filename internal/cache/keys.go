package cache

import "happdash/internal/models"

// Cache keys mirror the backend resources one to one. Every view of the same
// resource shares the key, so they all observe the same fetched value.

const (
	KeyStats  = "dashboard/stats"
	KeyEvents = "dashboard/events"
)

// PlanListKey returns the key for a plan list, optionally status-filtered.
func PlanListKey(status string) string {
	if status == "" {
		return "plans"
	}
	return "plans?status=" + status
}

// PlanDetailKey returns the key for one plan's detail (plan + task chain).
func PlanDetailKey(id string) string {
	return "plans/" + id
}

// PlanListKeys returns every plan-list key: the unfiltered list plus one per
// status filter. Mutations invalidate all of them because a status change
// moves a plan between filtered views.
func PlanListKeys() []string {
	keys := make([]string, 0, len(models.PlanStatuses)+1)
	keys = append(keys, PlanListKey(""))
	for _, status := range models.PlanStatuses {
		keys = append(keys, PlanListKey(status))
	}
	return keys
}
