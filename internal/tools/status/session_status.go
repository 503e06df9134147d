package status

import (
	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/tools/shared"
)

// NewSessionStatusTool returns a tool that reports session details for
// one broker, defaulting to the active one.
func NewSessionStatusTool(deps shared.Deps) tool.Tool {
	return shared.NewTool("session_status", "Session details for the active broker", shared.Instrument("session_status", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		name := shared.StringArg(args, "broker")
		registry := deps.Coordinator.Registry()

		broker, errResp := registry.GetBrokerOrError(name, "session_status")
		if errResp != nil {
			return errResp, nil
		}

		snapshot := broker.AuthInfo().Snapshot()
		authenticated := broker.IsAuthenticated(ctx)

		return brokers.Success(map[string]interface{}{
			"broker":               broker.Name(),
			"status":               snapshot.Status,
			"authenticated":        authenticated,
			"last_auth_attempt":    snapshot.LastAuthAttempt,
			"last_successful_auth": snapshot.LastSuccessfulAuth,
			"error_message":        snapshot.ErrorMessage,
		}), nil
	}))
}
