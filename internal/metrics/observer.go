package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// AuthRecorder feeds authentication outcomes into Prometheus. It
// satisfies the coordinator's observer interface.
type AuthRecorder struct{}

func NewAuthRecorder() *AuthRecorder {
	return &AuthRecorder{}
}

func (r *AuthRecorder) ObserveAuthAttempt(broker string, success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	AuthAttempts.WithLabelValues(broker, status).Inc()
}

func (r *AuthRecorder) SetAvailableBrokers(count int) {
	AvailableBrokers.Set(float64(count))
}

// Summary gathers the registered openstocks metrics into a flat map,
// one entry per series. Used by the metrics_summary tool so an agent
// can inspect counters without scraping the Prometheus endpoint.
func Summary() (map[string]float64, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, family := range families {
		name := family.GetName()
		if len(name) < len("openstocks_") || name[:len("openstocks_")] != "openstocks_" {
			continue
		}
		for _, metric := range family.GetMetric() {
			out[name+labelSuffix(metric)] = metricValue(family.GetType(), metric)
		}
	}
	return out, nil
}

func labelSuffix(m *dto.Metric) string {
	labels := m.GetLabel()
	if len(labels) == 0 {
		return ""
	}
	suffix := ""
	for _, l := range labels {
		suffix += "{" + l.GetName() + "=" + l.GetValue() + "}"
	}
	return suffix
}

func metricValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}
