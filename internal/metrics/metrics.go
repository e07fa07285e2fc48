package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	RunCount       prometheus.Counter
	EmailsChecked  prometheus.Counter
	VouchersFound  prometheus.Counter
	RowsAdded      prometheus.Counter
	RunErrors      prometheus.Counter
	ProcessingTime prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RunCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gyftr_sheet_sync_run_count",
			Help: "Total number of processing runs",
		}),
		EmailsChecked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gyftr_sheet_sync_emails_checked",
			Help: "Total number of emails scanned across runs",
		}),
		VouchersFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gyftr_sheet_sync_vouchers_found",
			Help: "Total number of vouchers extracted across runs",
		}),
		RowsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gyftr_sheet_sync_rows_added",
			Help: "Total number of sheet rows written across runs",
		}),
		RunErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gyftr_sheet_sync_run_errors",
			Help: "Total number of per-run errors recorded",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gyftr_sheet_sync_processing_duration_seconds",
			Help:    "Time spent on one processing run",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
