package llm

import (
	"context"

	"github.com/swingdesk/swingdesk/observability"
)

// CheckHealth reports the reasoning model binding. A missing API key is
// degraded rather than down: agents still run, they just cannot reason.
func (o *OpenAI) CheckHealth(_ context.Context) observability.Health {
	if !o.hasKey {
		return observability.Health{
			Name:    "llm",
			Status:  observability.HealthStatusDegraded,
			Message: "no API key configured",
			Details: map[string]string{"model": o.model},
		}
	}
	return observability.Health{
		Name:    "llm",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"model": o.model},
	}
}
