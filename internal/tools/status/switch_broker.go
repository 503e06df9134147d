package status

import (
	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/tools/shared"
)

// NewSwitchBrokerTool returns a tool that changes the active broker.
func NewSwitchBrokerTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("switch_broker", "Change the active broker", shared.Instrument("switch_broker", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		name := shared.StringArg(args, "broker")
		if name == "" {
			return brokers.Error("broker is required"), nil
		}

		registry := deps.Coordinator.Registry()
		if !registry.SetActiveBroker(name) {
			return brokers.NotFound(name), nil
		}

		deps.Log.Info("Active broker switched", "broker", name)
		return brokers.Success(map[string]interface{}{
			"active_broker": name,
		}), nil
	}))
}
