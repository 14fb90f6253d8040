package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// the dashboard cache and timetable generation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generationRuns     *prometheus.CounterVec
	generationDuration prometheus.Histogram
	placements         prometheus.Counter
	unplaced           *prometheus.CounterVec
	scheduleConflicts  prometheus.Counter
	schedulesStored    prometheus.Gauge
	complianceRatio    prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generation_runs_total",
		Help: "Finished timetable generation runs by final status",
	}, []string{"status"})

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Wall time of timetable generation runs",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	placements := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_placements_total",
		Help: "Sessions placed by the generator",
	})

	unplaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_unplaced_requirements_total",
		Help: "Requirements the generator could not place, by reason",
	}, []string{"reason"})

	scheduleConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_schedule_conflicts_total",
		Help: "Manual schedule saves rejected for overlapping an existing session",
	})

	schedulesStored := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_schedules",
		Help: "Schedule records currently stored",
	})

	complianceRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_compliance_ratio_percent",
		Help: "Last computed percentage of ruled teachers meeting their minimum hours",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		generationRuns, generationDuration, placements, unplaced, scheduleConflicts, schedulesStored, complianceRatio, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		generationRuns:     generationRuns,
		generationDuration: generationDuration,
		placements:         placements,
		unplaced:           unplaced,
		scheduleConflicts:  scheduleConflicts,
		schedulesStored:    schedulesStored,
		complianceRatio:    complianceRatio,
	}
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

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
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
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
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

// RecordPlacement counts one generated session.
func (m *MetricsService) RecordPlacement() {
	if m == nil {
		return
	}
	m.placements.Inc()
}

// RecordUnplaced counts a requirement left without a session.
func (m *MetricsService) RecordUnplaced(reason models.UnplacedReason) {
	if m == nil {
		return
	}
	m.unplaced.WithLabelValues(string(reason)).Inc()
}

// RecordGenerationRun records a finished run.
func (m *MetricsService) RecordGenerationRun(status models.GenerationStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationRuns.WithLabelValues(string(status)).Inc()
	m.generationDuration.Observe(duration.Seconds())
}

// RecordScheduleConflict counts a rejected manual save.
func (m *MetricsService) RecordScheduleConflict() {
	if m == nil {
		return
	}
	m.scheduleConflicts.Inc()
}

// SetSchedulesStored publishes the current store size.
func (m *MetricsService) SetSchedulesStored(count int) {
	if m == nil {
		return
	}
	m.schedulesStored.Set(float64(count))
}

// SetComplianceRatio publishes the latest compliance percentage.
func (m *MetricsService) SetComplianceRatio(ratio float64) {
	if m == nil {
		return
	}
	m.complianceRatio.Set(ratio)
}
