package market

import (
	"strings"

	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/tools/shared"
)

// NewStockQuoteTool returns a tool that fetches the full quote for a
// symbol. Quotes are served from the cache when one is wired.
func NewStockQuoteTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("stock_quote", "Full quote with bid/ask for a stock symbol", shared.Instrument("stock_quote", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		symbol := strings.ToUpper(shared.StringArg(args, "symbol"))
		if symbol == "" {
			return brokers.Error("symbol is required"), nil
		}
		name := shared.StringArg(args, "broker")

		broker, errResp := deps.ResolveBroker(name, "get stock quote for "+symbol)
		if errResp != nil {
			return errResp, nil
		}

		if deps.HasQuoteCache() {
			if cached := deps.QuoteCache.Get(ctx, broker.Name(), symbol); cached != nil {
				deps.Log.Debug("Tool: stock_quote cache hit", "broker", broker.Name(), "symbol", symbol)
				return cached, nil
			}
		}

		deps.Log.Debug("Tool: stock_quote called", "broker", broker.Name(), "symbol", symbol)
		response := broker.StockQuote(ctx, symbol)

		if deps.HasQuoteCache() {
			deps.QuoteCache.Put(ctx, broker.Name(), symbol, response)
		}
		return response, nil
	}))
}
