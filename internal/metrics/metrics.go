package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	checkouts     *prometheus.CounterVec
	gatewayCalls  *prometheus.HistogramVec
	registrations *prometheus.CounterVec
	events        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "registration_gateway",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		gatewayCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "registration_gateway",
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of order-creation calls to the payment provider.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"provider", "result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "registration_gateway",
			Name:      "registrations_saved_total",
			Help:      "Registration submissions by save result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "registration_gateway",
			Name:      "events_published_total",
			Help:      "Events handed to the broker by type and result.",
		}, []string{"type", "result"}),
	}
	reg.MustRegister(m.checkouts, m.gatewayCalls, m.registrations, m.events)
	return m
}

func (m *Metrics) ObserveCheckout(provider, outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveGatewayCall(provider, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(provider, result).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRegistration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, result).Inc()
}
