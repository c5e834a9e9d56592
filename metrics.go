package authcore

import (
	"strconv"
	"time"

	"github.com/panyam/authcore/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts requests, errors and upstream provider latency. A nil
// *Metrics records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Errors          *prometheus.CounterVec
	Upstream        *prometheus.HistogramVec
	UpstreamErrors  *prometheus.CounterVec
}

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// NewMetrics registers the engine's metrics on reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_requests_total",
			Help: "Requests handled, by action and response status",
		}, []string{"action", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authcore_request_duration_seconds",
			Help:    "Time spent handling a request, by action",
			Buckets: latencyBuckets,
		}, []string{"action"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_errors_total",
			Help: "Failed requests, by error kind",
		}, []string{"kind"}),
		Upstream: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authcore_upstream_seconds",
			Help:    "Latency of calls to identity providers, by provider and step",
			Buckets: latencyBuckets,
		}, []string{"provider", "step"}),
		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_upstream_errors_total",
			Help: "Failed calls to identity providers, by provider and step",
		}, []string{"provider", "step"}),
	}
}

func (m *Metrics) observeRequest(action Action, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	name := string(action)
	if _, ok := routes[action]; !ok {
		name = "unknown"
	}
	m.Requests.WithLabelValues(name, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) countError(kind errs.Kind) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(string(kind)).Inc()
}

// ObserveUpstream records one call to a provider.
func (m *Metrics) ObserveUpstream(provider, step string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.Upstream.WithLabelValues(provider, step).Observe(elapsed.Seconds())
	if err != nil {
		m.UpstreamErrors.WithLabelValues(provider, step).Inc()
	}
}
