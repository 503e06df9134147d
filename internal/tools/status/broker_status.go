package status

import (
	"github.com/dustin/go-humanize"
	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/tools/shared"
)

// NewBrokerStatusTool returns a tool that reports the authentication
// status of every registered broker.
func NewBrokerStatusTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("broker_status", "Authentication status for every broker", shared.Instrument("broker_status", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		registry := deps.Coordinator.Registry()

		statuses := make(map[string]interface{})
		totalConfigured := 0
		totalAuthenticated := 0

		for _, name := range registry.ListBrokers() {
			broker, ok := registry.GetBroker(name)
			if !ok {
				continue
			}
			info := broker.AuthInfo()
			snapshot := info.Snapshot()
			if snapshot.IsConfigured {
				totalConfigured++
			}
			if snapshot.IsAvailable {
				totalAuthenticated++
			}

			entry := map[string]interface{}{
				"status":               snapshot.Status,
				"last_auth_attempt":    snapshot.LastAuthAttempt,
				"last_successful_auth": snapshot.LastSuccessfulAuth,
				"error_message":        snapshot.ErrorMessage,
				"is_available":         snapshot.IsAvailable,
				"is_configured":        snapshot.IsConfigured,
				"requires_setup":       snapshot.RequiresSetup,
				"setup_instructions":   snapshot.SetupInstructions,
				"auth_attempts":        registry.AuthAttempts(name),
			}
			if info.LastSuccessfulAuth != nil {
				entry["authenticated_for"] = humanize.Time(*info.LastSuccessfulAuth)
			}
			statuses[name] = entry
		}

		return brokers.Success(map[string]interface{}{
			"brokers":             statuses,
			"active_broker":       registry.ActiveBroker(),
			"available_brokers":   registry.AvailableBrokers(),
			"total_configured":    totalConfigured,
			"total_authenticated": totalAuthenticated,
		}), nil
	}))
}
