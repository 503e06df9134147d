package status

import (
	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/tools/shared"
)

// NewListBrokersTool returns a tool that lists every registered broker
// and which one is active.
func NewListBrokersTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("list_brokers", "List configured brokers and which is active", shared.Instrument("list_brokers", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		registry := deps.Coordinator.Registry()
		snapshots := registry.AuthStatus()

		rows := make([]map[string]interface{}, 0, len(snapshots))
		for _, name := range registry.ListBrokers() {
			snapshot := snapshots[name]
			rows = append(rows, map[string]interface{}{
				"name":       name,
				"available":  snapshot.IsAvailable,
				"configured": snapshot.IsConfigured,
				"status":     snapshot.Status,
			})
		}

		return brokers.Success(map[string]interface{}{
			"brokers":       rows,
			"active_broker": registry.ActiveBroker(),
			"count":         len(rows),
		}), nil
	}))
}
