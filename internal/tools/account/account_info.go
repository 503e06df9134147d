package account

import (
	"google.golang.org/adk/tool"

	"openstocks/internal/tools/shared"
)

// NewAccountInfoTool returns a tool that fetches basic account data.
func NewAccountInfoTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("account_info", "Retrieve account number, type, and buying power", shared.Instrument("account_info", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		name := shared.StringArg(args, "broker")

		broker, errResp := deps.ResolveBroker(name, "get_account_info")
		if errResp != nil {
			return errResp, nil
		}

		deps.Log.Debug("Tool: account_info called", "broker", broker.Name())
		return broker.AccountInfo(ctx), nil
	}))
}
