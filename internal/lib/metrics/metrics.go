// Package metrics — Prometheus-метрики внешних вызовов, кэша геокодирования и HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Имена метрик.
const (
	MetricExternalCallsTotal   = "home_compare_external_calls_total"
	MetricExternalCallDuration = "home_compare_external_call_duration_seconds"
	MetricGeocodeCacheTotal    = "home_compare_geocode_cache_lookups_total"
	MetricHTTPRequestsTotal    = "home_compare_http_requests_total"
	MetricHTTPRequestDuration  = "home_compare_http_request_duration_seconds"
	MetricScoreRecomputedTotal = "home_compare_scores_recomputed_total"
)

// ServiceType — тип внешнего сервиса.
type ServiceType string

const (
	ServiceLLM      ServiceType = "llm"
	ServiceGeocoder ServiceType = "geocoder"
	ServiceStorage  ServiceType = "object_storage"
	ServiceListing  ServiceType = "listing_fetch"
)

// Результаты обращения к кэшу геокодирования.
const (
	CacheHit         = "hit"
	CacheNegativeHit = "negative_hit"
	CacheMiss        = "miss"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics — набор коллекторов. Методы безопасны для конкурентного использования;
// nil-получатель допустим и ничего не записывает.
type Metrics struct {
	externalCalls    *prometheus.CounterVec
	externalDuration *prometheus.HistogramVec
	geocodeCache     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	scoresRecomputed prometheus.Counter
}

// NewMetrics создаёт коллекторы. Регистрация выполняется отдельно через Register.
func NewMetrics() *Metrics {
	return &Metrics{
		externalCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricExternalCallsTotal,
				Help: "Total number of external service calls by service and status",
			},
			[]string{"service", "status"},
		),
		externalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricExternalCallDuration,
				Help:    "External service call duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service"},
		),
		geocodeCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGeocodeCacheTotal,
				Help: "Geocode cache lookups by result",
			},
			[]string{"result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		scoresRecomputed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricScoreRecomputedTotal,
				Help: "Total number of stored final scores recomputed after configuration changes",
			},
		),
	}
}

// Register регистрирует все коллекторы в реестре.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors возвращает все коллекторы.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.externalCalls,
		m.externalDuration,
		m.geocodeCache,
		m.httpRequests,
		m.httpDuration,
		m.scoresRecomputed,
	}
}

// RecordCall записывает вызов внешнего сервиса.
func (m *Metrics) RecordCall(service ServiceType, latency time.Duration, err error) {
	if m == nil {
		return
	}
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	m.externalCalls.WithLabelValues(string(service), status).Inc()
	m.externalDuration.WithLabelValues(string(service)).Observe(latency.Seconds())
}

// CallTimer помогает измерять время вызовов.
type CallTimer struct {
	metrics   *Metrics
	service   ServiceType
	startTime time.Time
}

// StartTimer начинает измерение времени вызова.
func (m *Metrics) StartTimer(service ServiceType) *CallTimer {
	return &CallTimer{
		metrics:   m,
		service:   service,
		startTime: time.Now(),
	}
}

// Stop останавливает таймер и записывает метрики.
func (t *CallTimer) Stop(err error) {
	t.metrics.RecordCall(t.service, time.Since(t.startTime), err)
}

// IncGeocodeCache учитывает обращение к кэшу геокодирования (CacheHit, CacheNegativeHit, CacheMiss).
func (m *Metrics) IncGeocodeCache(result string) {
	if m == nil {
		return
	}
	m.geocodeCache.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest записывает HTTP-запрос. route — шаблон маршрута chi, а не сырой путь.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// AddScoresRecomputed учитывает пересчитанные итоговые баллы.
func (m *Metrics) AddScoresRecomputed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scoresRecomputed.Add(float64(n))
}
