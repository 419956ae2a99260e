// File: internal/pkg/metrics/business_metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 战斗业务指标收集器
type BusinessMetrics struct {
	// 进行中的会话数（Gauge 类型，可增可减）
	ActiveSessions *prometheus.GaugeVec

	// 开启的会话数（按模式分组：duel/royale/...）
	SessionsOpenedTotal *prometheus.CounterVec

	// 结束的会话数（按结果分组：victory/defeat/draw/expired）
	SessionsFinishedTotal *prometheus.CounterVec

	// 已结算回合数（按模式分组）
	RoundsResolvedTotal *prometheus.CounterVec

	// 会话持续时长直方图
	SessionDuration *prometheus.HistogramVec

	// 反作弊异常数（按严重级别分组）
	AnomaliesTotal *prometheus.CounterVec
}

var (
	// DefaultBusinessMetrics 默认的业务指标实例
	DefaultBusinessMetrics *BusinessMetrics
)

// SessionBuckets 是针对会话时长优化的 buckets
// 回合制战斗预期时长: 秒级到分钟级
// 单位：秒
var SessionBuckets = []float64{
	1,    // 1s
	5,    // 5s
	15,   // 15s
	60,   // 1分钟
	300,  // 5分钟
	900,  // 15分钟
	3600, // 1小时
}

// init 初始化默认指标
func init() {
	DefaultBusinessMetrics = NewBusinessMetrics("tsu")
}

// NewBusinessMetrics 创建新的业务指标收集器
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return NewBusinessMetricsWithRegistry(namespace, GetRegisterer())
}

// NewBusinessMetricsWithRegistry 创建新的业务指标收集器（使用自定义注册表）
func NewBusinessMetricsWithRegistry(namespace string, registerer prometheus.Registerer) *BusinessMetrics {
	factory := promauto.With(registerer)

	return &BusinessMetrics{
		ActiveSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "battle",
				Name:      "active_sessions",
				Help:      "Current number of active battle sessions",
			},
			[]string{"service"},
		),

		SessionsOpenedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "battle",
				Name:      "sessions_opened_total",
				Help:      "Total number of opened battle sessions by mode",
			},
			[]string{"mode", "service"},
		),

		SessionsFinishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "battle",
				Name:      "sessions_finished_total",
				Help:      "Total number of finished battle sessions by result (victory/defeat/draw/expired)",
			},
			[]string{"result", "mode", "service"},
		),

		RoundsResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "battle",
				Name:      "rounds_resolved_total",
				Help:      "Total number of resolved battle rounds by mode",
			},
			[]string{"mode", "service"},
		),

		SessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "battle",
				Name:      "session_duration_seconds",
				Help:      "Battle session duration in seconds",
				Buckets:   SessionBuckets,
			},
			[]string{"mode", "service"},
		),

		AnomaliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "anticheat",
				Name:      "anomalies_total",
				Help:      "Total number of detected resource growth anomalies by severity",
			},
			[]string{"severity", "service"},
		),
	}
}

// RecordSessionOpened 记录会话开启
func (m *BusinessMetrics) RecordSessionOpened(mode, service string) {
	service = normalizeServiceName(service)
	m.SessionsOpenedTotal.WithLabelValues(mode, service).Inc()
	m.ActiveSessions.WithLabelValues(service).Inc()
}

// RecordSessionFinished 记录会话结束
//
// 参数:
//   - result: 会话结果 ("victory", "defeat", "draw", "expired")
//   - mode: 战斗模式
//   - duration: 从开启到结束的时长
func (m *BusinessMetrics) RecordSessionFinished(result, mode string, duration time.Duration, service string) {
	service = normalizeServiceName(service)
	m.SessionsFinishedTotal.WithLabelValues(result, mode, service).Inc()
	m.SessionDuration.WithLabelValues(mode, service).Observe(duration.Seconds())
	m.ActiveSessions.WithLabelValues(service).Dec()
}

// RecordRoundResolved 记录一次回合结算
func (m *BusinessMetrics) RecordRoundResolved(mode, service string) {
	service = normalizeServiceName(service)
	m.RoundsResolvedTotal.WithLabelValues(mode, service).Inc()
}

// RecordAnomaly 记录一次反作弊异常
//
// 参数:
//   - severity: 严重级别 ("low", "high", "critical")
func (m *BusinessMetrics) RecordAnomaly(severity, service string) {
	service = normalizeServiceName(service)
	m.AnomaliesTotal.WithLabelValues(severity, service).Inc()
}
