package utils

import (
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	billOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_bill_operations_total",
		Help: "Total number of bill operations by operation and outcome",
	}, []string{"operation", "outcome"})

	billCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_bill_cache_lookups_total",
		Help: "Bill cache lookups by result",
	}, []string{"result"})

	// activeGoroutines is used by Prometheus for monitoring active goroutines
	//nolint:unused // Used by Prometheus metrics collection
	activeGoroutines = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ledger_goroutines_active",
		Help: "Number of active goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status_code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
)

// MetricsCollector collects basic application metrics.
type MetricsCollector struct {
	startTime    time.Time
	billsCreated int64
	billsUpdated int64
	billsDeleted int64
	billsFailed  int64
	cacheHits    int64
	cacheMisses  int64
	httpRequests int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime: time.Now(),
	}
}

// RecordBillOperation counts a bill operation and its outcome.
func (m *MetricsCollector) RecordBillOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		atomic.AddInt64(&m.billsFailed, 1)
	} else {
		switch operation {
		case "create":
			atomic.AddInt64(&m.billsCreated, 1)
		case "update":
			atomic.AddInt64(&m.billsUpdated, 1)
		case "delete":
			atomic.AddInt64(&m.billsDeleted, 1)
		}
	}
	billOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordCacheLookup counts a bill cache hit or miss.
func (m *MetricsCollector) RecordCacheLookup(hit bool) {
	if hit {
		atomic.AddInt64(&m.cacheHits, 1)
		billCacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	atomic.AddInt64(&m.cacheMisses, 1)
	billCacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	atomic.AddInt64(&m.httpRequests, 1)
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// GetMetrics returns the current metrics as a JSON-serializable struct.
func (m *MetricsCollector) GetMetrics() *Metrics {
	return &Metrics{
		Uptime:        time.Since(m.startTime).String(),
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		BillsCreated:  atomic.LoadInt64(&m.billsCreated),
		BillsUpdated:  atomic.LoadInt64(&m.billsUpdated),
		BillsDeleted:  atomic.LoadInt64(&m.billsDeleted),
		BillsFailed:   atomic.LoadInt64(&m.billsFailed),
		CacheHits:     atomic.LoadInt64(&m.cacheHits),
		CacheMisses:   atomic.LoadInt64(&m.cacheMisses),
		HTTPRequests:  atomic.LoadInt64(&m.httpRequests),
	}
}

// Metrics represents the application metrics.
type Metrics struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Goroutines    int    `json:"goroutines"`
	BillsCreated  int64  `json:"bills_created"`
	BillsUpdated  int64  `json:"bills_updated"`
	BillsDeleted  int64  `json:"bills_deleted"`
	BillsFailed   int64  `json:"bills_failed"`
	CacheHits     int64  `json:"cache_hits"`
	CacheMisses   int64  `json:"cache_misses"`
	HTTPRequests  int64  `json:"http_requests"`
}
