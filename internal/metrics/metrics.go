// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// キャッシュ参照結果のラベル値。
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ミドルウェア・キャッシュから利用する。
type MetricsCollector interface {
	RecordCatalogRequest(operation string)
	RecordAgeGateDenial()
	RecordStoreQueryLatency(duration time.Duration)
	RecordCacheResult(result string)
	RecordAuthFailure(mode string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	catalogRequests   *prometheus.CounterVec
	ageGateDenials    prometheus.Counter
	storeQueryLatency prometheus.Histogram
	cacheResults      *prometheus.CounterVec
	authFailures      *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		catalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fletnix_catalog_requests_total",
			Help: "カタログ操作（list/get）の合計数",
		}, []string{"operation"}),
		ageGateDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fletnix_age_gate_denials_total",
			Help: "年齢制限により単一作品の表示を拒否した回数",
		}),
		storeQueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fletnix_store_query_latency_seconds",
			Help:    "カタログストア問い合わせのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fletnix_catalog_cache_total",
			Help: "カタログキャッシュの参照結果別の回数",
		}, []string{"result"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fletnix_auth_failures_total",
			Help: "認証情報の検証に失敗した回数（モード別）",
		}, []string{"mode"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fletnix_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.catalogRequests,
		c.ageGateDenials,
		c.storeQueryLatency,
		c.cacheResults,
		c.authFailures,
		c.httpStatus,
	)

	return c
}

// RecordCatalogRequest はカタログ操作を記録する。
func (c *Collector) RecordCatalogRequest(operation string) {
	c.catalogRequests.WithLabelValues(operation).Inc()
}

// RecordAgeGateDenial は年齢制限による拒否を記録する。
func (c *Collector) RecordAgeGateDenial() {
	c.ageGateDenials.Inc()
}

// RecordStoreQueryLatency はストア問い合わせのレイテンシを記録する。
func (c *Collector) RecordStoreQueryLatency(duration time.Duration) {
	c.storeQueryLatency.Observe(duration.Seconds())
}

// RecordCacheResult はキャッシュ参照結果を記録する。
func (c *Collector) RecordCacheResult(result string) {
	c.cacheResults.WithLabelValues(result).Inc()
}

// RecordAuthFailure は認証失敗を記録する。
func (c *Collector) RecordAuthFailure(mode string) {
	c.authFailures.WithLabelValues(mode).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordCatalogRequest(string)           {}
func (Nop) RecordAgeGateDenial()                  {}
func (Nop) RecordStoreQueryLatency(time.Duration) {}
func (Nop) RecordCacheResult(string)              {}
func (Nop) RecordAuthFailure(string)              {}
func (Nop) RecordHTTPStatus(int)                  {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
