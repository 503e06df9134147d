package shared

import (
	"time"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"openstocks/internal/metrics"
)

// ToolFunc is the function signature for tool execution
type ToolFunc func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error)

// Instrument wraps a tool function with execution metrics.
func Instrument(name string, fn ToolFunc) ToolFunc {
	return func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		start := time.Now()
		result, err := fn(ctx, args)
		metrics.RecordToolExecution(name, time.Since(start), err)
		return result, err
	}
}

// NewTool creates an ADK tool from a tool function.
func NewTool(name, description string, fn ToolFunc) tool.Tool {
	t, _ := functiontool.New(
		functiontool.Config{
			Name:        name,
			Description: description,
		},
		func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			return fn(ctx, args)
		})
	return t
}

// StringArg extracts an optional string argument.
func StringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}
