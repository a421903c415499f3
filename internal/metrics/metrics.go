// Package metrics Prometheus metrics của engine chuyển đổi địa chỉ
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tập metrics dùng chung. Con trỏ nil là hợp lệ và không ghi gì.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Chuyển đổi
	ConversionsTotal   *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec
	LowConfidenceTotal prometheus.Counter
	BatchItemsTotal    *prometheus.CounterVec
	BatchDuration      prometheus.Histogram

	// Tìm kiếm
	SearchesTotal  *prometheus.CounterVec
	SearchDuration prometheus.Histogram

	// Cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Snapshot
	SnapshotReloadsTotal *prometheus.CounterVec
	SnapshotUnits        *prometheus.GaugeVec
	CorrectionsTotal     *prometheus.CounterVec
}

// New tạo metrics trên một registry riêng (kèm Go/process collectors)
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_http_requests_total",
			Help: "Total HTTP requests processed by route, method, and status code",
		}, []string{"route", "method", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "address_http_request_duration_seconds",
			Help:    "HTTP request latency distribution in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),

		ConversionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_conversions_total",
			Help: "Conversions by direction, resolution level and outcome",
		}, []string{"direction", "level", "outcome"}),
		ConversionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "address_conversion_duration_seconds",
			Help:    "Conversion latency by direction",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"direction"}),
		LowConfidenceTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "address_conversion_low_confidence_total",
			Help: "Forward conversions whose default result is below the accuracy threshold",
		}),
		BatchItemsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_batch_items_total",
			Help: "Batch conversion items by outcome code",
		}, []string{"outcome"}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_batch_duration_seconds",
			Help:    "Duration of whole batch conversions",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),

		SearchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_searches_total",
			Help: "Searches by kind (search, suggest) and whether anything matched",
		}, []string{"kind", "matched"}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_search_duration_seconds",
			Help:    "Search latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),

		CacheHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_cache_hits_total",
			Help: "Cache hits by layer",
		}, []string{"layer"}),
		CacheMissesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_cache_misses_total",
			Help: "Cache misses by layer",
		}, []string{"layer"}),

		SnapshotReloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_snapshot_reloads_total",
			Help: "Snapshot reloads by outcome",
		}, []string{"outcome"}),
		SnapshotUnits: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "address_snapshot_rows",
			Help: "Rows per table in the current snapshot",
		}, []string{"table"}),
		CorrectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_corrections_total",
			Help: "Mapping corrections by outcome",
		}, []string{"outcome"}),
	}
}

// Registry registry chứa các metrics, dùng trong test
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler handler cho /metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP ghi nhận một request HTTP
func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
	}
}

// ObserveConversion ghi nhận một lần chuyển đổi
func (m *Metrics) ObserveConversion(direction, level, outcome string, d time.Duration) {
	if m != nil {
		m.ConversionsTotal.WithLabelValues(direction, level, outcome).Inc()
		m.ConversionDuration.WithLabelValues(direction).Observe(d.Seconds())
	}
}

// IncLowConfidence đếm kết quả độ tin cậy thấp
func (m *Metrics) IncLowConfidence() {
	if m != nil {
		m.LowConfidenceTotal.Inc()
	}
}

// ObserveBatch ghi nhận một batch và kết quả từng item
func (m *Metrics) ObserveBatch(outcomes map[string]int, d time.Duration) {
	if m != nil {
		for outcome, n := range outcomes {
			m.BatchItemsTotal.WithLabelValues(outcome).Add(float64(n))
		}
		m.BatchDuration.Observe(d.Seconds())
	}
}

// ObserveSearch ghi nhận một lần tìm kiếm
func (m *Metrics) ObserveSearch(kind string, matched bool, d time.Duration) {
	if m != nil {
		label := "false"
		if matched {
			label = "true"
		}
		m.SearchesTotal.WithLabelValues(kind, label).Inc()
		m.SearchDuration.Observe(d.Seconds())
	}
}

// CacheHit đếm cache hit theo tầng (l1, l2)
func (m *Metrics) CacheHit(layer string) {
	if m != nil {
		m.CacheHitsTotal.WithLabelValues(layer).Inc()
	}
}

// CacheMiss đếm cache miss theo tầng
func (m *Metrics) CacheMiss(layer string) {
	if m != nil {
		m.CacheMissesTotal.WithLabelValues(layer).Inc()
	}
}

// ObserveReload ghi nhận reload snapshot và số dòng từng bảng
func (m *Metrics) ObserveReload(outcome string, counts map[string]int) {
	if m != nil {
		m.SnapshotReloadsTotal.WithLabelValues(outcome).Inc()
		for table, n := range counts {
			m.SnapshotUnits.WithLabelValues(table).Set(float64(n))
		}
	}
}

// IncCorrection đếm correction theo kết quả
func (m *Metrics) IncCorrection(outcome string) {
	if m != nil {
		m.CorrectionsTotal.WithLabelValues(outcome).Inc()
	}
}
