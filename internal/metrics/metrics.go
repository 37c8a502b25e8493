// Package metrics 收集 HTTP 与业务指标，每个 Collector 使用独立 registry 以免测试间重复注册。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 持有全部 Prometheus 指标，nil Collector 的方法均为空操作
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	DoseToggles        *prometheus.CounterVec
	ExplanationLookups *prometheus.CounterVec
	AIFailures         *prometheus.CounterVec
}

// NewCollector 创建 Collector 并注册到新的 registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		DoseToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dose_toggles_total",
				Help:      "Dose toggles by outcome (taken, untaken, failed)",
			},
			[]string{"outcome"},
		),
		ExplanationLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "explanation_cache_lookups_total",
				Help:      "Explanation cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
		AIFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_failures_total",
				Help:      "AI calls that fell back to the canned reply",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.DoseToggles,
		c.ExplanationLookups,
		c.AIFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry 返回底层 registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler 返回 /metrics 的 HTTP 处理器
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveHTTP 记录一次请求
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// DoseToggled 记录一次打卡切换结果
func (c *Collector) DoseToggled(outcome string) {
	if c == nil {
		return
	}
	c.DoseToggles.WithLabelValues(outcome).Inc()
}

// ExplanationLookup 记录解释缓存是否命中
func (c *Collector) ExplanationLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.ExplanationLookups.WithLabelValues(result).Inc()
}

// AIFailed 记录一次 AI 调用失败
func (c *Collector) AIFailed(kind string) {
	if c == nil {
		return
	}
	c.AIFailures.WithLabelValues(kind).Inc()
}
