package trading

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/metrics"
	"openstocks/internal/tools/shared"
	"openstocks/pkg/errors"
)

// NewBuyMarketTool returns a tool that places a market buy order.
func NewBuyMarketTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("buy_stock_market", "Place a market buy order", shared.Instrument("buy_stock_market", orderHandler(deps, "buy")))
}

// NewSellMarketTool returns a tool that places a market sell order.
func NewSellMarketTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("sell_stock_market", "Place a market sell order", shared.Instrument("sell_stock_market", orderHandler(deps, "sell")))
}

func orderHandler(deps shared.Deps, side string) shared.ToolFunc {
	return func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		symbol := strings.ToUpper(shared.StringArg(args, "symbol"))
		if symbol == "" {
			return brokers.Error("symbol is required"), nil
		}

		quantity, err := parseQuantity(args["quantity"])
		if err != nil {
			return brokers.Error(err.Error()), nil
		}

		name := shared.StringArg(args, "broker")
		broker, errResp := deps.ResolveBroker(name, fmt.Sprintf("place %s order for %s", side, symbol))
		if errResp != nil {
			return errResp, nil
		}

		deps.Log.Info("Tool: market order requested", "broker", broker.Name(), "side", side, "symbol", symbol, "quantity", quantity.String())

		var response brokers.Response
		if side == "buy" {
			response = broker.BuyMarket(ctx, symbol, quantity)
		} else {
			response = broker.SellMarket(ctx, symbol, quantity)
		}

		var orderErr error
		if !response.IsSuccess() {
			orderErr = fmt.Errorf("%s", response.ErrorMessage())
			deps.Log.Warn("Tool: market order failed", "broker", broker.Name(), "side", side, "symbol", symbol, "error", response.ErrorMessage())
		}
		metrics.RecordOrder(broker.Name(), side, orderErr)

		return response, nil
	}
}

func parseQuantity(raw interface{}) (decimal.Decimal, error) {
	var quantity decimal.Decimal
	switch v := raw.(type) {
	case float64:
		quantity = decimal.NewFromFloat(v)
	case int:
		quantity = decimal.NewFromInt(int64(v))
	case string:
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrInvalidInput, "unparseable quantity %q", v)
		}
		quantity = parsed
	default:
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "quantity is required")
	}

	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidInput, "quantity must be positive")
	}
	return quantity, nil
}
