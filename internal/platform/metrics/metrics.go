package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	PersonsCreated      prometheus.Counter
	ConferencesRecorded prometheus.Counter
	Uploads             *prometheus.CounterVec
	BackendFailures     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg, or with the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		PersonsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodia_persons_created_total",
			Help: "Total number of person records created",
		}),
		ConferencesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "custodia_conferences_recorded_total",
			Help: "Total number of roll-call records saved",
		}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_uploads_total",
			Help: "Objects uploaded, by kind (photo, report, spreadsheet)",
		}, []string{"kind"}),
		BackendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_backend_failures_total",
			Help: "Failed calls to the auth, document or object backends, by operation",
		}, []string{"operation"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custodia_operation_duration_seconds",
			Help:    "Latency of store and gateway operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custodia_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) IncrementPersonsCreated() {
	if m == nil {
		return
	}
	m.PersonsCreated.Inc()
}

func (m *Metrics) IncrementConferencesRecorded() {
	if m == nil {
		return
	}
	m.ConferencesRecorded.Inc()
}

func (m *Metrics) IncrementUploads(kind string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementBackendFailures(operation string) {
	if m == nil {
		return
	}
	m.BackendFailures.WithLabelValues(operation).Inc()
}

// ObserveOperation records the time elapsed since start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveRequest(method, route string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
