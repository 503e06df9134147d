package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"openstocks/internal/brokers"
	"openstocks/pkg/logger"
)

// Checker reports connectivity for an infrastructure dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	registry    *brokers.Registry
	redis       Checker
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler. redis may be nil when the
// cache is disabled.
func New(log *logger.Logger, registry *brokers.Registry, redis Checker, serviceName, version string) *Handler {
	return &Handler{
		log:         log,
		registry:    registry,
		redis:       redis,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running
// Used by Kubernetes liveness probe
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

// HandleReadiness checks if service is ready to accept traffic. The
// service is ready when at least one broker is authenticated; Redis is
// reported but never blocks readiness since quotes degrade to direct
// broker calls.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth)

	brokerHealth := h.checkBrokers()
	checks["brokers"] = brokerHealth
	checks["redis"] = h.checkRedis(ctx)

	ready := brokerHealth.Status == "healthy"

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if !ready {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warn("Readiness check failed", "checks", checks)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(status)
}

// HandleHealth returns detailed health status (includes all checks)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth)

	brokerHealth := h.checkBrokers()
	checks["brokers"] = brokerHealth

	redisHealth := h.checkRedis(ctx)
	checks["redis"] = redisHealth

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if brokerHealth.Status == "unhealthy" {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else if redisHealth.Status == "unhealthy" {
		status.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(status)
}

// checkBrokers reports healthy when at least one broker is
// authenticated and available.
func (h *Handler) checkBrokers() ComponentHealth {
	available := h.registry.AvailableBrokers()
	total := len(h.registry.ListBrokers())

	if len(available) == 0 {
		return ComponentHealth{
			Status: "unhealthy",
			Detail: "no authenticated brokers",
		}
	}

	health := ComponentHealth{Status: "healthy"}
	if len(available) < total {
		health.Detail = "some brokers unavailable"
	}
	return health
}

// checkRedis verifies Redis connectivity
func (h *Handler) checkRedis(ctx context.Context) ComponentHealth {
	if h.redis == nil {
		return ComponentHealth{Status: "disabled"}
	}

	start := time.Now()
	err := h.redis.Health(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Error("Redis health check failed", "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}
