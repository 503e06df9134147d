package tools

import (
	"openstocks/internal/tools/account"
	"openstocks/internal/tools/market"
	"openstocks/internal/tools/shared"
	"openstocks/internal/tools/status"
	"openstocks/internal/tools/trading"
)

// RegisterAllTools registers all available tools in the registry
func RegisterAllTools(registry *Registry, deps shared.Deps) {
	log := deps.Log.With("component", "tool_registration")

	// Account tools
	registry.Register("account_info", account.NewAccountInfoTool(deps))
	registry.Register("portfolio", account.NewPortfolioTool(deps))
	registry.Register("positions", account.NewPositionsTool(deps))
	log.Debug("Registered account tools")

	// Market data tools
	registry.Register("stock_price", market.NewStockPriceTool(deps))
	registry.Register("stock_quote", market.NewStockQuoteTool(deps))
	log.Debug("Registered market data tools")

	// Trading tools
	registry.Register("buy_stock_market", trading.NewBuyMarketTool(deps))
	registry.Register("sell_stock_market", trading.NewSellMarketTool(deps))
	log.Debug("Registered trading tools")

	// Status tools
	registry.Register("list_brokers", status.NewListBrokersTool(deps))
	registry.Register("broker_status", status.NewBrokerStatusTool(deps))
	registry.Register("switch_broker", status.NewSwitchBrokerTool(deps))
	registry.Register("session_status", status.NewSessionStatusTool(deps))
	registry.Register("health_check", status.NewHealthCheckTool(deps))
	registry.Register("metrics_summary", status.NewMetricsSummaryTool(deps))
	log.Debug("Registered status tools")

	log.Infof("Tool registration complete: %d tools available", len(registry.List()))
}
