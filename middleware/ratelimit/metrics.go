package ratelimit

import (
	"storefront-guard/middleware/ratelimit/domain"
	"storefront-guard/middleware/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsLabelRule    = "rule"
	metricsLabelOutcome = "outcome"
)

const (
	outcomeAllowed = "allowed"
	outcomeDenied  = "denied"
	outcomeError   = "error"
)

// Metrics agrupa os coletores Prometheus do rate limit e do limite de concorrência.
// Um *Metrics nil é válido e não coleta nada.
type Metrics struct {
	Decisions       *prometheus.CounterVec
	InFlight        prometheus.Gauge
	InFlightRejects prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Number of admission decisions per rule and outcome.",
		}, []string{metricsLabelRule, metricsLabelOutcome}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_requests",
			Help:      "Number of requests currently forwarded upstream.",
		}),
		InFlightRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "in_flight_limit_rejects_total",
			Help:      "Number of requests rejected because the in-flight limit was reached.",
		}),
	}
}

func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.Decisions, m.InFlight, m.InFlightRejects)
}

func (m *Metrics) observeDecision(rule string, dec domain.Decision) {
	if m == nil {
		return
	}
	outcome := outcomeAllowed
	switch {
	case dec.Err != nil:
		outcome = outcomeError
	case !dec.Allowed:
		outcome = outcomeDenied
	}
	m.Decisions.WithLabelValues(rule, outcome).Inc()
}

func (m *Metrics) observeInFlightReject() {
	if m == nil {
		return
	}
	m.InFlightRejects.Inc()
}

// trackInFlight incrementa o gauge e devolve a função que o decrementa.
func (m *Metrics) trackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

// NewWindowCollectors expõe o tamanho e as evicções do store em memória.
func NewWindowCollectors(namespace string, w *infra.FixedWindow) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limit_tracked_keys",
			Help:      "Number of client keys held by the in-memory fixed window store.",
		}, func() float64 { return float64(w.Len()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_evictions_total",
			Help:      "Number of client keys evicted because the store reached its capacity.",
		}, func() float64 { return float64(w.Evictions()) }),
	}
}
