// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 比对指标
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	records     *prometheus.GaugeVec

	// 环境查询指标
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	rowsDecoded   *prometheus.CounterVec
	decodeSkipped *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 比对指标
	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparison_runs_total",
			Help:      "Total number of comparison runs",
		},
		[]string{"backend", "outcome"},
	)

	c.runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "comparison_run_duration_seconds",
			Help:      "Comparison run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"backend"},
	)

	c.records = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "comparison_records",
			Help:      "Number of records in the latest run by consistency status",
		},
		[]string{"backend", "status"},
	)

	// 环境查询指标
	c.fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "environment_fetch_total",
			Help:      "Total number of environment fetches",
		},
		[]string{"environment", "outcome"},
	)

	c.fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "environment_fetch_duration_seconds",
			Help:      "Environment fetch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"environment"},
	)

	c.rowsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_decoded_total",
			Help:      "Total number of query rows decoded into fragments",
		},
		[]string{"environment"},
	)

	c.decodeSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Total number of rows that produced no fragments",
		},
		[]string{"environment"},
	)

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// ⚖️ 比对指标记录
// =============================================================================

// RecordRun 记录一次比对，usable 为 false 表示没有任何环境查询成功
func (c *Collector) RecordRun(backend string, usable bool, duration time.Duration) {
	outcome := "success"
	if !usable {
		outcome = "failure"
	}
	c.runsTotal.WithLabelValues(backend, outcome).Inc()
	c.runDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordStatusCounts 记录最近一次比对各状态的记录数
func (c *Collector) RecordStatusCounts(backend string, counts map[string]int) {
	for status, n := range counts {
		c.records.WithLabelValues(backend, status).Set(float64(n))
	}
}

// =============================================================================
// 🔌 环境查询指标记录
// =============================================================================

// RecordFetch 记录单个环境的查询结果
func (c *Collector) RecordFetch(env string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.fetchTotal.WithLabelValues(env, outcome).Inc()
	c.fetchDuration.WithLabelValues(env).Observe(duration.Seconds())
}

// RecordDecode 记录解码行数与未产生结果的行数
func (c *Collector) RecordDecode(env string, decoded, skipped int) {
	c.rowsDecoded.WithLabelValues(env).Add(float64(decoded))
	c.decodeSkipped.WithLabelValues(env).Add(float64(skipped))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
