package tools

// Definition describes a tool's metadata for registration and documentation.
type Definition struct {
	Name        string
	Description string
	Category    string
}

var toolDefinitions = []Definition{
	{Name: "account_info", Description: "Retrieve account number, type, and buying power", Category: "account"},
	{Name: "portfolio", Description: "Portfolio equity and market value totals", Category: "account"},
	{Name: "positions", Description: "List current stock holdings", Category: "account"},

	{Name: "stock_price", Description: "Current price for a stock symbol", Category: "market_data"},
	{Name: "stock_quote", Description: "Full quote with bid/ask for a stock symbol", Category: "market_data"},

	{Name: "buy_stock_market", Description: "Place a market buy order", Category: "execution"},
	{Name: "sell_stock_market", Description: "Place a market sell order", Category: "execution"},

	{Name: "list_brokers", Description: "List configured brokers and which is active", Category: "status"},
	{Name: "broker_status", Description: "Authentication status for every broker", Category: "status"},
	{Name: "switch_broker", Description: "Change the active broker", Category: "status"},
	{Name: "session_status", Description: "Session details for the active broker", Category: "status"},
	{Name: "health_check", Description: "Service and dependency health", Category: "status"},
	{Name: "metrics_summary", Description: "Snapshot of internal counters", Category: "status"},
}

// Definitions exposes a copy of all tool definitions.
func Definitions() []Definition {
	defs := make([]Definition, len(toolDefinitions))
	copy(defs, toolDefinitions)
	return defs
}
