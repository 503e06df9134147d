package status

import (
	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/tools/shared"
)

// NewHealthCheckTool returns a tool that reports service health. The
// service is healthy when at least one broker is available; Redis is
// reported separately and does not fail the check.
func NewHealthCheckTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("health_check", "Service and dependency health", shared.Instrument("health_check", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		registry := deps.Coordinator.Registry()
		available := registry.AvailableBrokers()

		redisStatus := "disabled"
		if deps.RedisHealth != nil {
			if err := deps.RedisHealth.Health(ctx); err != nil {
				redisStatus = "unhealthy: " + err.Error()
			} else {
				redisStatus = "healthy"
			}
		}

		healthy := len(available) > 0
		state := "healthy"
		if !healthy {
			state = "degraded"
		}

		return brokers.Success(map[string]interface{}{
			"state":             state,
			"healthy":           healthy,
			"available_brokers": available,
			"broker_count":      len(registry.ListBrokers()),
			"redis":             redisStatus,
		}), nil
	}))
}
