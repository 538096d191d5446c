package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "billing_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	invoiceGenerateTotal   *prometheus.CounterVec
	invoiceGenerateLatency *prometheus.HistogramVec
	invoiceFinalizeTotal   *prometheus.CounterVec
	invoiceExportTotal     *prometheus.CounterVec
	invoiceExportLatency   *prometheus.HistogramVec

	meterSkippedTotal *prometheus.CounterVec

	distributionTotal    *prometheus.CounterVec
	distributionFallback *prometheus.CounterVec

	tariffResolveTotal *prometheus.CounterVec

	batchTenantsTotal *prometheus.CounterVec
)

// Init registers billing metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		invoiceGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_generate_total",
				Help: "Total invoice generate operations by result",
			},
			[]string{"result"},
		)
		invoiceGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_generate_latency_seconds",
				Help:    "Invoice generate latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		invoiceFinalizeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_finalize_total",
				Help: "Total invoice finalize operations by result",
			},
			[]string{"result"},
		)
		invoiceExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_export_total",
				Help: "Total invoice export operations by format and result",
			},
			[]string{"format", "result"},
		)
		invoiceExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_export_latency_seconds",
				Help:    "Invoice export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		meterSkippedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "meter_skipped_total",
				Help: "Meters skipped during invoice generation by reason",
			},
			[]string{"reason"},
		)

		distributionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "distribution_total",
				Help: "Total shared cost distributions by method and result",
			},
			[]string{"method", "result"},
		)
		distributionFallback = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "distribution_fallback_total",
				Help: "Shared cost distributions that fell back to equal split, by reason",
			},
			[]string{"reason"},
		)

		tariffResolveTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "tariff_resolve_total",
				Help: "Total tariff resolutions by result",
			},
			[]string{"result"},
		)

		batchTenantsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_tenants_total",
				Help: "Tenants processed by batch billing runs, by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			invoiceGenerateTotal,
			invoiceGenerateLatency,
			invoiceFinalizeTotal,
			invoiceExportTotal,
			invoiceExportLatency,
			meterSkippedTotal,
			distributionTotal,
			distributionFallback,
			tariffResolveTotal,
			batchTenantsTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveInvoiceGenerate records generate latency and result.
func ObserveInvoiceGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if invoiceGenerateTotal != nil {
		invoiceGenerateTotal.WithLabelValues(result).Inc()
	}
	if invoiceGenerateLatency != nil {
		invoiceGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncInvoiceFinalize records a finalize outcome.
func IncInvoiceFinalize(result string) {
	if result == "" {
		result = resultSuccess
	}
	if invoiceFinalizeTotal != nil {
		invoiceFinalizeTotal.WithLabelValues(result).Inc()
	}
}

// ObserveInvoiceExport records export latency and result.
func ObserveInvoiceExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if invoiceExportTotal != nil {
		invoiceExportTotal.WithLabelValues(format, result).Inc()
	}
	if invoiceExportLatency != nil {
		invoiceExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncMeterSkipped counts a skipped meter.
func IncMeterSkipped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if meterSkippedTotal != nil {
		meterSkippedTotal.WithLabelValues(reason).Inc()
	}
}

// IncDistribution counts one distribution by method and result.
func IncDistribution(method, result string) {
	if method == "" {
		method = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if distributionTotal != nil {
		distributionTotal.WithLabelValues(method, result).Inc()
	}
}

// IncDistributionFallback counts a fallback to equal split.
func IncDistributionFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if distributionFallback != nil {
		distributionFallback.WithLabelValues(reason).Inc()
	}
}

// IncTariffResolve counts a tariff resolution outcome.
func IncTariffResolve(result string) {
	if result == "" {
		result = resultSuccess
	}
	if tariffResolveTotal != nil {
		tariffResolveTotal.WithLabelValues(result).Inc()
	}
}

// IncBatchTenant counts one tenant processed by a batch run.
func IncBatchTenant(result string) {
	if result == "" {
		result = resultSuccess
	}
	if batchTenantsTotal != nil {
		batchTenantsTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
