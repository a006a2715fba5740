package clients

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call results recorded on quotegen_remote_requests_total.
const (
	resultOK          = "ok"
	resultClientError = "client_error"
	resultError       = "error"
	resultCanceled    = "canceled"
	resultCircuitOpen = "circuit_open"
)

// Metrics are the Prometheus collectors for outbound remote calls.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	circuit     *prometheus.GaugeVec
	transitions *prometheus.CounterVec
}

// NewMetrics registers the client collectors with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quotegen_remote_requests_total",
			Help: "Calls to the remote quote host by result.",
		}, []string{"downstream", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quotegen_remote_request_duration_seconds",
			Help:    "Wall-clock time of remote calls, retries included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"downstream"}),
		circuit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quotegen_remote_circuit_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"downstream"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quotegen_remote_circuit_transitions_total",
			Help: "Circuit breaker state changes by target state.",
		}, []string{"downstream", "to"}),
	}
}

func (m *Metrics) call(downstream, result string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(downstream, result).Inc()

	if result != resultCircuitOpen {
		m.duration.WithLabelValues(downstream).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) circuitState(downstream string, s BreakerState) {
	if m == nil {
		return
	}

	m.circuit.WithLabelValues(downstream).Set(float64(s))
}

func (m *Metrics) circuitMoved(downstream string, to BreakerState) {
	if m == nil {
		return
	}

	m.transitions.WithLabelValues(downstream, to.String()).Inc()
	m.circuit.WithLabelValues(downstream).Set(float64(to))
}
