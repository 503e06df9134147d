package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"openstocks/internal/brokers"
)

// RegistryCollector exposes live broker state straight from the
// registry on every scrape instead of tracking it in counters.
type RegistryCollector struct {
	registry *brokers.Registry

	brokerUp     *prometheus.Desc
	brokerStatus *prometheus.Desc
	authAttempts *prometheus.Desc
}

func NewRegistryCollector(registry *brokers.Registry) *RegistryCollector {
	return &RegistryCollector{
		registry: registry,

		brokerUp: prometheus.NewDesc(
			"openstocks_broker_up",
			"Whether the broker is authenticated and available (1) or not (0)",
			[]string{"broker"}, nil,
		),
		brokerStatus: prometheus.NewDesc(
			"openstocks_broker_auth_status",
			"Broker authentication status (1 for the current status label)",
			[]string{"broker", "status"}, nil,
		),
		authAttempts: prometheus.NewDesc(
			"openstocks_broker_auth_attempts",
			"Number of authentication attempts made for the broker",
			[]string{"broker"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *RegistryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.brokerUp
	ch <- c.brokerStatus
	ch <- c.authAttempts
}

// Collect implements prometheus.Collector
func (c *RegistryCollector) Collect(ch chan<- prometheus.Metric) {
	for name, snapshot := range c.registry.AuthStatus() {
		up := 0.0
		if snapshot.IsAvailable {
			up = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.brokerUp, prometheus.GaugeValue, up, name)
		ch <- prometheus.MustNewConstMetric(c.brokerStatus, prometheus.GaugeValue, 1, name, snapshot.Status)
		ch <- prometheus.MustNewConstMetric(c.authAttempts, prometheus.GaugeValue, float64(c.registry.AuthAttempts(name)), name)
	}
}
