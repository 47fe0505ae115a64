package kanboard

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes, as used in the status label of Metrics.Calls.
const (
	StatusOK             = "ok"
	StatusRemoteError    = "rpc_error"
	StatusTransportError = "transport_error"
)

// Metrics are the Prometheus collectors updated by a Client. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Calls         *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	AsyncInFlight prometheus.Gauge
}

// NewMetrics registers the collectors with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers the collectors with reg. A nil reg leaves
// them unregistered.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanboard",
			Subsystem: "client",
			Name:      "calls_total",
			Help:      "Remote procedure calls by method and outcome",
		}, []string{"method", "status"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kanboard",
			Subsystem: "client",
			Name:      "call_duration_seconds",
			Help:      "Round-trip duration of remote procedure calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		AsyncInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "kanboard",
			Subsystem: "client",
			Name:      "async_calls_in_flight",
			Help:      "Asynchronous calls started and not yet resolved",
		}),
	}
}

func (m *Metrics) observe(method string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(method, CallStatus(err)).Inc()
	m.CallDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) asyncStarted() {
	if m == nil {
		return
	}
	m.AsyncInFlight.Inc()
}

func (m *Metrics) asyncFinished() {
	if m == nil {
		return
	}
	m.AsyncInFlight.Dec()
}

// CallStatus classifies the error returned by a call.
func CallStatus(err error) string {
	if err == nil {
		return StatusOK
	}
	var cerr *ClientError
	if errors.As(err, &cerr) && cerr.Remote() {
		return StatusRemoteError
	}
	return StatusTransportError
}
