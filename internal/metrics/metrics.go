// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 変異・ログイン・フェッチの結果ラベル値。
const (
	OutcomeSuccess    = "success"
	OutcomeRejected   = "rejected"
	OutcomeNetwork    = "network_error"
	OutcomeValidation = "validation_error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントや変異コーディネーターから利用する。
type MetricsCollector interface {
	RecordRosterFetch(outcome string)
	RecordLogin(outcome string)
	RecordMutation(kind string, outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	rosterFetch    *prometheus.CounterVec
	login          *prometheus.CounterVec
	mutation       *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		rosterFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_roster_fetch_total",
			Help: "ロスター取得の結果別合計数",
		}, []string{"outcome"}),
		login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"outcome"}),
		mutation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_mutation_total",
			Help: "登録・登録解除リクエストの種別・結果別合計数",
		}, []string{"kind", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhub_api_http_status_total",
			Help: "外部APIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubhub_api_request_latency_seconds",
			Help:    "外部APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.rosterFetch,
		c.login,
		c.mutation,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordRosterFetch はロスター取得の結果を記録する。
func (c *Collector) RecordRosterFetch(outcome string) {
	c.rosterFetch.WithLabelValues(outcome).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.login.WithLabelValues(outcome).Inc()
}

// RecordMutation は変異リクエストの結果を記録する。
func (c *Collector) RecordMutation(kind string, outcome string) {
	c.mutation.WithLabelValues(kind, outcome).Inc()
}

// RecordHTTPStatus は外部APIのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency は外部APIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
