package market

import (
	"strings"

	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/tools/shared"
)

// NewStockPriceTool returns a tool that fetches the current price for a
// symbol.
func NewStockPriceTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("stock_price", "Current price for a stock symbol", shared.Instrument("stock_price", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		symbol := strings.ToUpper(shared.StringArg(args, "symbol"))
		if symbol == "" {
			return brokers.Error("symbol is required"), nil
		}
		name := shared.StringArg(args, "broker")

		broker, errResp := deps.ResolveBroker(name, "get stock price for "+symbol)
		if errResp != nil {
			return errResp, nil
		}

		deps.Log.Debug("Tool: stock_price called", "broker", broker.Name(), "symbol", symbol)
		return broker.StockPrice(ctx, symbol), nil
	}))
}
