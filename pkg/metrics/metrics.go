// Package metrics は監視サイクルの Prometheus メトリクスを定義します。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "sitemapwatch"

// サイクル結果のラベル値
const (
	ResultOK         = "ok"
	ResultFetch      = "fetch_error"
	ResultDecompress = "decompress_error"
	ResultParse      = "parse_error"
	ResultUnknown    = "error"
)

// Metrics は監視サイクルのメトリクスを保持します。
type Metrics struct {
	CyclesTotal   *prometheus.CounterVec
	ChangesTotal  *prometheus.CounterVec
	SnapshotURLs  prometheus.Gauge
	CycleDuration prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New はメトリクスを reg に登録して返します。reg が nil の場合は専用のレジストリを作成します。
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cycles_total",
				Help:      "Total number of polling cycles by result",
			},
			[]string{"result"},
		),
		ChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "changes_total",
				Help:      "Total number of added/removed sitemap URLs observed",
			},
			[]string{"kind"},
		),
		SnapshotURLs: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "snapshot_urls",
				Help:      "Number of URLs in the current snapshot",
			},
		),
		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of a polling cycle in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		gatherer: reg,
	}
}

// ObserveCycle は1サイクル分の結果を記録します。
// urls が負の場合はスナップショットが更新されなかったとみなします。
func (m *Metrics) ObserveCycle(result string, d time.Duration, urls, added, removed int) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(d.Seconds())
	if urls >= 0 {
		m.SnapshotURLs.Set(float64(urls))
	}
	if added > 0 {
		m.ChangesTotal.WithLabelValues("added").Add(float64(added))
	}
	if removed > 0 {
		m.ChangesTotal.WithLabelValues("removed").Add(float64(removed))
	}
}

// Handler は /metrics 用の HTTP ハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
