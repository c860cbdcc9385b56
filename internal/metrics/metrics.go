// Package metrics はAPIリクエストのPrometheusメトリクス収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はAPIクライアントのリクエストメトリクスを収集する。
// HTTPトランスポートに組み込んで使用する。
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appraise_api_requests_total",
			Help: "APIリクエストの合計数（ステータスコード・メソッド別）",
		}, []string{"code", "method"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appraise_api_request_duration_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(c.requestsTotal, c.requestDuration)
	return c
}

// InstrumentTransport はHTTPトランスポートをメトリクス計測付きでラップする。
// nextがnilの場合はhttp.DefaultTransportがラップされる。
func (c *Collector) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(c.requestsTotal,
		promhttp.InstrumentRoundTripperDuration(c.requestDuration, next),
	)
}

// Handler はメトリクス公開用のHTTPハンドラを返す。
// METRICS_ADDRが設定されている場合にのみ公開される。
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
