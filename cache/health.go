package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/swingdesk/swingdesk/observability"
)

// CheckHealth reports the in-memory store as up with its current entry count.
func (m *Memory) CheckHealth(_ context.Context) observability.Health {
	return observability.Health{
		Name:   "cache",
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"backend": "memory",
			"entries": strconv.Itoa(m.Len()),
		},
	}
}

// CheckHealth pings the Redis server.
func (r *Redis) CheckHealth(ctx context.Context) observability.Health {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.rdb.Ping(pingCtx).Err(); err != nil {
		return observability.Health{
			Name:    "cache",
			Status:  observability.HealthStatusDown,
			Message: err.Error(),
			Details: map[string]string{"backend": "redis"},
		}
	}
	return observability.Health{
		Name:    "cache",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"backend": "redis"},
	}
}
