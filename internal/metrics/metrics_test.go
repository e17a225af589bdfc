package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("dashboard")
		ObserveBackendRequest("GET", "200", 120*time.Millisecond)
		IncCacheFetch("dashboard/stats", "ok")
		IncCacheDedup("dashboard/stats")
		IncCacheInvalidation("plans")
	})
}
