// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// レコードサービスやワーカーから利用する。
type MetricsCollector interface {
	RecordSubmission(recordType string)
	RecordUploadFailure()
	RecordMirrorFailure()
	RecordProvisionAttempt(success bool)
	RecordGoogleAPILatency(api string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	submissions      *prometheus.CounterVec
	uploadFailures   prometheus.Counter
	mirrorFailures   prometheus.Counter
	provisionResults *prometheus.CounterVec
	googleLatency    *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cobros_record_submissions_total",
			Help: "永続化に成功したレコード送信の合計数（種別ラベル付き）",
		}, []string{"type"}),
		uploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobros_evidence_upload_failures_total",
			Help: "証憑アップロード失敗の合計数",
		}),
		mirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cobros_sheet_mirror_failures_total",
			Help: "永続化後のミラー行追記失敗の合計数",
		}),
		provisionResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cobros_drive_provision_total",
			Help: "Driveプロビジョニング試行の合計数（結果ラベル付き）",
		}, []string{"result"}),
		googleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cobros_google_api_latency_seconds",
			Help:    "Google API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"api"}),
	}

	reg.MustRegister(
		c.submissions,
		c.uploadFailures,
		c.mirrorFailures,
		c.provisionResults,
		c.googleLatency,
	)

	return c
}

// RecordSubmission は永続化成功を記録する。
func (c *Collector) RecordSubmission(recordType string) {
	c.submissions.WithLabelValues(recordType).Inc()
}

// RecordUploadFailure は証憑アップロード失敗を記録する。
func (c *Collector) RecordUploadFailure() {
	c.uploadFailures.Inc()
}

// RecordMirrorFailure はミラー追記失敗を記録する。
func (c *Collector) RecordMirrorFailure() {
	c.mirrorFailures.Inc()
}

// RecordProvisionAttempt はプロビジョニング試行の結果を記録する。
func (c *Collector) RecordProvisionAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.provisionResults.WithLabelValues(result).Inc()
}

// RecordGoogleAPILatency はGoogle API呼び出しのレイテンシを記録する。
func (c *Collector) RecordGoogleAPILatency(api string, duration time.Duration) {
	c.googleLatency.WithLabelValues(api).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector実装。テスト用。
type NopCollector struct{}

func (NopCollector) RecordSubmission(string) {}
func (NopCollector) RecordUploadFailure() {}
func (NopCollector) RecordMirrorFailure() {}
func (NopCollector) RecordProvisionAttempt(bool) {}
func (NopCollector) RecordGoogleAPILatency(string, time.Duration) {}

// compile-time interface checks
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
