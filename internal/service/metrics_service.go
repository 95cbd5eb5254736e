package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/pkg/jobs"
)

// MetricsService owns the Prometheus registry and the collectors the API records into.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	leaveDecisions  *prometheus.CounterVec
	leaveApplied    prometheus.Counter
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// MetricsSnapshot is a small JSON friendly summary of cache behaviour.
type MetricsSnapshot struct {
	CacheHits     uint64    `json:"cache_hits"`
	CacheMisses   uint64    `json:"cache_misses"`
	CacheHitRatio float64   `json:"cache_hit_ratio"`
	Goroutines    int       `json:"goroutines"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		leaveDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_decisions_total",
			Help: "Leave request decisions by deciding role and resulting status",
		}, []string{"role", "status"}),
		leaveApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leave_requests_applied_total",
			Help: "Leave requests submitted by students",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "background_job_runs_total",
			Help: "Background job handler runs by queue and outcome",
		}, []string{"queue", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "background_job_duration_seconds",
			Help:    "Background job handler duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheWrite, m.cacheHitRatio,
		m.cacheHits, m.cacheMisses, m.dbQueryDuration, m.leaveDecisions, m.leaveApplied, m.jobRuns, m.jobDuration, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordLeaveApplied counts a new leave request.
func (m *MetricsService) RecordLeaveApplied() {
	if m == nil {
		return
	}
	m.leaveApplied.Inc()
}

// RecordLeaveDecision counts a decision by role and the status it produced.
func (m *MetricsService) RecordLeaveDecision(role models.UserRole, to models.LeaveStatus) {
	if m == nil {
		return
	}
	m.leaveDecisions.WithLabelValues(string(role), string(to)).Inc()
}

// ObserveJob is a jobs.Observer recording background job outcomes.
func (m *MetricsService) ObserveJob(o jobs.Outcome) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case o.Err != nil && o.Final:
		outcome = "failed"
	case o.Err != nil:
		outcome = "retry"
	}
	m.jobRuns.WithLabelValues(o.Queue, outcome).Inc()
	m.jobDuration.WithLabelValues(o.Queue).Observe(o.Duration.Seconds())
}

// Snapshot returns aggregated cache counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return MetricsSnapshot{
		CacheHits:     hits,
		CacheMisses:   misses,
		CacheHitRatio: ratio,
		Goroutines:    runtime.NumGoroutine(),
		GeneratedAt:   time.Now().UTC(),
	}
}
