package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	TasksFinishedTotal *prometheus.CounterVec
	TasksInFlight      prometheus.Gauge

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	RateLimitHitsTotal prometheus.Counter
}

// New registers the collectors in the default prometheus registry.
// Call it once per process.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valyu_bot_requests_total",
				Help: "Total number of bot commands processed",
			},
			[]string{"type", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "valyu_bot_request_duration_seconds",
				Help:    "Bot command duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"type"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "valyu_bot_requests_in_flight",
				Help: "Number of bot commands currently being processed",
			},
		),

		APIRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valyu_api_requests_total",
				Help: "Total number of Valyu API calls",
			},
			[]string{"endpoint", "outcome"},
		),
		APIRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "valyu_api_request_duration_seconds",
				Help:    "Valyu API call duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),

		TasksFinishedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valyu_research_tasks_finished_total",
				Help: "Research tasks tracked to the end, by final status",
			},
			[]string{"status"},
		),
		TasksInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "valyu_research_tasks_in_flight",
				Help: "Research tasks currently being waited on",
			},
		),

		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valyu_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"kind"},
		),
		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "valyu_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"kind"},
		),

		RateLimitHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "valyu_bot_rate_limit_hits_total",
				Help: "Total number of rejected bot commands due to the per-user limit",
			},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordRequest(reqType, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(reqType, status).Inc()
	m.RequestDuration.WithLabelValues(reqType).Observe(duration.Seconds())
}

// ObserveRequest satisfies valyu.Observer.
func (m *Metrics) ObserveRequest(endpoint, outcome string, duration time.Duration) {
	m.APIRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) TaskStarted() {
	m.TasksInFlight.Inc()
}

func (m *Metrics) TaskFinished(status string) {
	m.TasksInFlight.Dec()
	m.TasksFinishedTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHitsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordCacheMiss(kind string) {
	m.CacheMissesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitsTotal.Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
