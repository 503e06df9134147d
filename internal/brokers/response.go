package brokers

import "fmt"

// Response status values carried under result.status.
const (
	ResultSuccess                = "success"
	ResultError                  = "error"
	ResultBrokerUnavailable      = "broker_unavailable"
	ResultBrokerNotFound         = "broker_not_found"
	ResultNoAuthenticatedBrokers = "no_authenticated_brokers"
)

// Response is the envelope every tool-facing payload uses. The payload
// fields live under a top-level "result" key with a "status" field.
type Response map[string]interface{}

// Success builds a success envelope around the given fields.
func Success(fields map[string]interface{}) Response {
	result := map[string]interface{}{"status": ResultSuccess}
	for k, v := range fields {
		result[k] = v
	}
	return Response{"result": result}
}

// Error builds a generic error envelope.
func Error(message string) Response {
	return Response{
		"result": map[string]interface{}{
			"error":  message,
			"status": ResultError,
		},
	}
}

// NotFound builds the lookup-miss envelope for an unregistered broker name.
func NotFound(name string) Response {
	if name == "" {
		name = "active"
	}
	return Response{
		"result": map[string]interface{}{
			"error":  fmt.Sprintf("Broker not found: %s", name),
			"status": ResultBrokerNotFound,
		},
	}
}

// Result returns the inner result map, or nil if the envelope is malformed.
func (r Response) Result() map[string]interface{} {
	result, _ := r["result"].(map[string]interface{})
	return result
}

// Status returns result.status, or "" if absent.
func (r Response) Status() string {
	result := r.Result()
	if result == nil {
		return ""
	}
	status, _ := result["status"].(string)
	return status
}

// ErrorMessage returns result.error, or "" if absent.
func (r Response) ErrorMessage() string {
	result := r.Result()
	if result == nil {
		return ""
	}
	msg, _ := result["error"].(string)
	return msg
}

// IsSuccess reports whether the envelope carries a success status.
func (r Response) IsSuccess() bool {
	return r.Status() == ResultSuccess
}
