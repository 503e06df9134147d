package account

import (
	"google.golang.org/adk/tool"

	"openstocks/internal/tools/shared"
)

// NewPortfolioTool returns a tool that fetches portfolio totals.
func NewPortfolioTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("portfolio", "Portfolio equity and market value totals", shared.Instrument("portfolio", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		name := shared.StringArg(args, "broker")

		broker, errResp := deps.ResolveBroker(name, "get_portfolio")
		if errResp != nil {
			return errResp, nil
		}

		deps.Log.Debug("Tool: portfolio called", "broker", broker.Name())
		return broker.Portfolio(ctx), nil
	}))
}
