package application

import (
	"context"
	"errors"
	"log"
	"time"
)

// TenantError records one tenant's failure inside a batch run.
type TenantError struct {
	TenantID string
	Err      error
}

// BatchReport summarizes a batch billing run.
type BatchReport struct {
	Generated int
	Failed    []TenantError
	Chunks    int
}

// BatchRunner generates invoices for many tenants in fixed-size chunks.
// Per-tenant failures are collected, not fatal; a canceled context stops
// the run between tenants.
type BatchRunner struct {
	service   *BillingService
	chunkSize int
	logger    *log.Logger
	metrics   BatchMetrics
}

// BatchMetrics counts per-tenant batch outcomes.
type BatchMetrics interface {
	IncBatchTenant(result string)
}

// BatchOption configures optional runner dependencies.
type BatchOption func(*BatchRunner)

// WithBatchMetrics records per-tenant outcomes on the recorder.
func WithBatchMetrics(m BatchMetrics) BatchOption {
	return func(r *BatchRunner) { r.metrics = m }
}

// NewBatchRunner constructs a runner. A non-positive chunk size falls back
// to the service configuration.
func NewBatchRunner(service *BillingService, chunkSize int, logger *log.Logger, opts ...BatchOption) (*BatchRunner, error) {
	if service == nil {
		return nil, errors.New("batch runner: nil billing service")
	}
	if chunkSize <= 0 {
		chunkSize = service.config.BatchChunkSize
	}
	if chunkSize <= 0 {
		return nil, errors.New("batch runner: chunk size must be positive")
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &BatchRunner{service: service, chunkSize: chunkSize, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *BatchRunner) countTenant(result string) {
	if r.metrics != nil {
		r.metrics.IncBatchTenant(result)
	}
}

// Run bills every tenant for the period. Each chunk is processed in
// isolation: invoices committed in earlier chunks stay committed no matter
// what later chunks do.
func (r *BatchRunner) Run(ctx context.Context, tenantIDs []string, periodStart, periodEnd time.Time) (BatchReport, error) {
	var report BatchReport

	for offset := 0; offset < len(tenantIDs); offset += r.chunkSize {
		end := offset + r.chunkSize
		if end > len(tenantIDs) {
			end = len(tenantIDs)
		}
		chunk := tenantIDs[offset:end]
		report.Chunks++

		for _, tenantID := range chunk {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if _, err := r.service.GenerateInvoice(ctx, tenantID, periodStart, periodEnd); err != nil {
				r.logger.Printf("batch: tenant %s failed: %v", tenantID, err)
				report.Failed = append(report.Failed, TenantError{TenantID: tenantID, Err: err})
				r.countTenant("error")
				continue
			}
			report.Generated++
			r.countTenant("success")
		}
		r.logger.Printf("batch: chunk %d done, %d generated, %d failed so far",
			report.Chunks, report.Generated, len(report.Failed))
	}

	return report, nil
}
