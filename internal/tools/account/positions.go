package account

import (
	"google.golang.org/adk/tool"

	"openstocks/internal/tools/shared"
)

// NewPositionsTool returns a tool that lists current holdings.
func NewPositionsTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("positions", "List current stock holdings", shared.Instrument("positions", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		name := shared.StringArg(args, "broker")

		broker, errResp := deps.ResolveBroker(name, "get_positions")
		if errResp != nil {
			return errResp, nil
		}

		deps.Log.Debug("Tool: positions called", "broker", broker.Name())
		return broker.Positions(ctx), nil
	}))
}
