package auth

import "github.com/prometheus/client_golang/prometheus"

const (
	resultAccepted  = "accepted"
	resultRejected  = "rejected"
	resultThrottled = "throttled"
)

// Metrics conta as decisões do gate de autenticação. Nil não coleta nada.
type Metrics struct {
	Attempts *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Number of requests to protected prefixes per result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.Attempts)
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(result).Inc()
}
