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
// ハンドラー・サービス・ワーカーから利用する。
type MetricsCollector interface {
	AdImpression(slot string)
	AdClick(slot string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSignIn()
	RecordSyndicationImport(count int)
	RecordSyndicationFailure(sourceID string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	adImpressions     *prometheus.CounterVec
	adClicks          *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	requestLatency    prometheus.Histogram
	signIns           prometheus.Counter
	syndicationImport prometheus.Counter
	syndicationFail   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		adImpressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsroom_ad_impressions_total",
			Help: "スロット別の広告インプレッション合計数",
		}, []string{"slot"}),
		adClicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsroom_ad_clicks_total",
			Help: "スロット別の広告クリック合計数",
		}, []string{"slot"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsroom_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsroom_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		signIns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsroom_sign_ins_total",
			Help: "サインイン成功の合計数",
		}),
		syndicationImport: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsroom_syndication_imported_total",
			Help: "シンジケーション取り込みで作成された記事の合計数",
		}),
		syndicationFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsroom_syndication_fail_total",
			Help: "シンジケーション取り込み失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.adImpressions,
		c.adClicks,
		c.httpStatus,
		c.requestLatency,
		c.signIns,
		c.syndicationImport,
		c.syndicationFail,
	)

	return c
}

// AdImpression は広告インプレッションを記録する。
func (c *Collector) AdImpression(slot string) {
	c.adImpressions.WithLabelValues(slot).Inc()
}

// AdClick は広告クリックを記録する。
func (c *Collector) AdClick(slot string) {
	c.adClicks.WithLabelValues(slot).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSignIn はサインイン成功を記録する。
func (c *Collector) RecordSignIn() {
	c.signIns.Inc()
}

// RecordSyndicationImport は取り込みで作成された記事数を記録する。
func (c *Collector) RecordSyndicationImport(count int) {
	c.syndicationImport.Add(float64(count))
}

// RecordSyndicationFailure は取り込み失敗を記録する。
func (c *Collector) RecordSyndicationFailure(sourceID string) {
	c.syndicationFail.Inc()
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
