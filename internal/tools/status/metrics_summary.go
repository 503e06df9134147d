package status

import (
	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/metrics"
	"openstocks/internal/tools/shared"
)

// NewMetricsSummaryTool returns a tool that snapshots the internal
// Prometheus counters as a flat map.
func NewMetricsSummaryTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("metrics_summary", "Snapshot of internal counters", shared.Instrument("metrics_summary", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		summary, err := metrics.Summary()
		if err != nil {
			deps.Log.Error("Tool: metrics_summary gather failed", "error", err)
			return brokers.Error(err.Error()), nil
		}

		return brokers.Success(map[string]interface{}{
			"metrics": summary,
			"count":   len(summary),
		}), nil
	}))
}
