// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordEvaluationSuccess()
	RecordEvaluationFailure()
	RecordSearchChanged()
	RecordNotificationsCreated(count int)
	RecordEvaluationLatency(duration time.Duration)
	RecordMessagesDeleted(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	evaluationSuccess    prometheus.Counter
	evaluationFail       prometheus.Counter
	searchChanged        prometheus.Counter
	notificationsCreated prometheus.Counter
	evaluationLatency    prometheus.Histogram
	messagesDeleted      prometheus.Counter
	httpStatus           *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		evaluationSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifyman_evaluation_success_total",
			Help: "保存済み検索の評価成功の合計数",
		}),
		evaluationFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifyman_evaluation_fail_total",
			Help: "保存済み検索の評価失敗の合計数",
		}),
		searchChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifyman_search_changed_total",
			Help: "結果変化が検出された保存済み検索の合計数",
		}),
		notificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifyman_notifications_created_total",
			Help: "生成された通知メッセージの合計数",
		}),
		evaluationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notifyman_evaluation_latency_seconds",
			Help:    "評価サイクルのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		messagesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifyman_messages_deleted_total",
			Help: "クリーンアップで削除されたメッセージの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifyman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.evaluationSuccess,
		c.evaluationFail,
		c.searchChanged,
		c.notificationsCreated,
		c.evaluationLatency,
		c.messagesDeleted,
		c.httpStatus,
	)

	return c
}

// RecordEvaluationSuccess は評価成功を記録する。
func (c *Collector) RecordEvaluationSuccess() {
	c.evaluationSuccess.Inc()
}

// RecordEvaluationFailure は評価失敗を記録する。
func (c *Collector) RecordEvaluationFailure() {
	c.evaluationFail.Inc()
}

// RecordSearchChanged は結果変化の検出を記録する。
func (c *Collector) RecordSearchChanged() {
	c.searchChanged.Inc()
}

// RecordNotificationsCreated は生成された通知メッセージ数を記録する。
func (c *Collector) RecordNotificationsCreated(count int) {
	c.notificationsCreated.Add(float64(count))
}

// RecordEvaluationLatency は評価サイクルのレイテンシを記録する。
func (c *Collector) RecordEvaluationLatency(duration time.Duration) {
	c.evaluationLatency.Observe(duration.Seconds())
}

// RecordMessagesDeleted はクリーンアップで削除されたメッセージ数を記録する。
func (c *Collector) RecordMessagesDeleted(count int) {
	c.messagesDeleted.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
