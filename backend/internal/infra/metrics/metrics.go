package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	httpRequests           *prometheus.CounterVec
	httpDuration           *prometheus.HistogramVec
	entryOperations        *prometheus.CounterVec
	rateLimited            prometheus.Counter
	backupRuns             *prometheus.CounterVec
	defaultDurationBuckets = prometheus.DefBuckets
)

const (
	namespaceMetrics = "diary"
)

// 日记操作的结果标签。
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		httpRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "http",
					Name:      "requests_total",
					Help:      "HTTP 请求次数，按方法、路由模板与状态码统计。",
				},
				[]string{"method", "route", "status"},
			),
		)
		httpDuration = registerHistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "http",
					Name:      "request_duration_seconds",
					Help:      "HTTP 请求耗时，按方法与路由模板区分。",
					Buckets:   defaultDurationBuckets,
				},
				[]string{"method", "route"},
			),
		)
		entryOperations = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "entries",
					Name:      "operations_total",
					Help:      "日记接口的业务操作次数，按操作与结果分类。",
				},
				[]string{"operation", "result"},
			),
		)
		rateLimited = registerCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "http",
					Name:      "rate_limited_total",
					Help:      "被限流拒绝的请求数。",
				},
			),
		)
		backupRuns = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "backup",
					Name:      "runs_total",
					Help:      "定时快照导出的执行次数，按结果分类。",
				},
				[]string{"result"},
			),
		)

		registerRuntimeCollectors()
	})
}

// ObserveHTTPRequest 记录一次 HTTP 请求，route 为空表示未匹配到路由。
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequests == nil || httpDuration == nil {
		return
	}
	methodLabel := normalizeLabel(method, "UNKNOWN")
	routeLabel := normalizeLabel(route, "unmatched")
	httpRequests.WithLabelValues(methodLabel, routeLabel, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// RecordEntryOperation 记录日记操作的结果分布。
func RecordEntryOperation(operation, result string) {
	if entryOperations == nil {
		return
	}
	entryOperations.WithLabelValues(normalizeLabel(operation, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

// RecordRateLimited 记录一次限流拒绝。
func RecordRateLimited() {
	if rateLimited == nil {
		return
	}
	rateLimited.Inc()
}

// RecordBackup 记录定时备份的结果。
func RecordBackup(result string) {
	if backupRuns == nil {
		return
	}
	backupRuns.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounter(counter prometheus.Counter) prometheus.Counter {
	if err := prometheus.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
		panic(err)
	}
	return counter
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredCounterVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredHistogramVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func alreadyRegisteredCounterVec(err error) *prometheus.CounterVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	return nil
}

func alreadyRegisteredHistogramVec(err error) *prometheus.HistogramVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			return existing
		}
	}
	return nil
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
