// Package metrics Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 对话结果
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAborted   = "aborted"
)

// Metrics 应用指标集合
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ChatTurnsTotal      *prometheus.CounterVec
	StreamDuration      *prometheus.HistogramVec
	StreamsInFlight     prometheus.Gauge
	PersistenceFailures *prometheus.CounterVec
	MagicLinksRequested prometheus.Counter
}

// New 在给定 Registerer 上创建并注册所有指标
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nextchat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nextchat_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ChatTurnsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nextchat_chat_turns_total",
				Help: "Total number of chat turns by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		StreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nextchat_stream_duration_seconds",
				Help:    "Duration of model response streams in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"model"},
		),
		StreamsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "nextchat_streams_in_flight",
				Help: "Number of model response streams currently open",
			},
		),
		PersistenceFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nextchat_persistence_failures_total",
				Help: "Total number of swallowed persistence failures",
			},
			[]string{"component", "action"},
		),
		MagicLinksRequested: f.NewCounter(
			prometheus.CounterOpts{
				Name: "nextchat_magic_links_requested_total",
				Help: "Total number of magic sign-in links sent",
			},
		),
	}
}

// NewNop 创建只在私有 Registry 上注册的指标，用于测试
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// RecordPersistenceFailure 记录被吞掉的持久化失败
func (m *Metrics) RecordPersistenceFailure(component, action string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(component, action).Inc()
}

// RecordTurn 记录一次对话结果
func (m *Metrics) RecordTurn(model, outcome string) {
	if m == nil {
		return
	}
	m.ChatTurnsTotal.WithLabelValues(model, outcome).Inc()
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
