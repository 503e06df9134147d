package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openstocks_auth_attempts_total",
			Help: "Total number of broker authentication attempts",
		},
		[]string{"broker", "status"}, // status: success|failure
	)

	AvailableBrokers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "openstocks_available_brokers",
			Help: "Current number of authenticated and available brokers",
		},
	)

	// Broker API metrics
	BrokerAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openstocks_broker_api_calls_total",
			Help: "Total number of broker API calls",
		},
		[]string{"broker", "endpoint", "status"}, // status: success|error|rate_limited
	)

	BrokerAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openstocks_broker_api_latency_seconds",
			Help:    "Broker API latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"broker", "endpoint"},
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openstocks_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openstocks_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// Order metrics
	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openstocks_orders_placed_total",
			Help: "Total number of orders placed",
		},
		[]string{"broker", "side", "status"}, // status: success|error
	)

	// Cache metrics
	QuoteCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openstocks_quote_cache_ops_total",
			Help: "Total quote cache lookups by outcome",
		},
		[]string{"outcome"}, // outcome: hit|miss|error
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(AuthAttempts)
	prometheus.MustRegister(AvailableBrokers)

	prometheus.MustRegister(BrokerAPICalls)
	prometheus.MustRegister(BrokerAPILatency)

	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(ToolLatency)

	prometheus.MustRegister(OrdersPlaced)
	prometheus.MustRegister(QuoteCacheOps)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBrokerAPICall records a broker API call
func RecordBrokerAPICall(broker, endpoint string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	BrokerAPICalls.WithLabelValues(broker, endpoint, status).Inc()
	BrokerAPILatency.WithLabelValues(broker, endpoint).Observe(latency.Seconds())
}

// RecordToolExecution records a tool execution
func RecordToolExecution(tool string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ToolExecutions.WithLabelValues(tool, status).Inc()
	ToolLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordOrder records an order placement attempt
func RecordOrder(broker, side string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	OrdersPlaced.WithLabelValues(broker, side, status).Inc()
}

// RecordCacheLookup records a quote cache lookup outcome
func RecordCacheLookup(outcome string) {
	QuoteCacheOps.WithLabelValues(outcome).Inc()
}
