package auth

import (
	"context"
	"errors"

	billing "utility-billing/internal/billing/domain"
)

var (
	// ErrTenantMismatch indicates the resource belongs to a different tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("resource not found")
)

// InvoiceTenantChecker validates invoice tenant ownership.
type InvoiceTenantChecker interface {
	EnsureInvoiceTenant(ctx context.Context, tenantID, invoiceID string) error
}

// InvoiceChecker checks invoice ownership against the invoice store.
type InvoiceChecker struct {
	invoices billing.InvoiceRepository
}

// NewInvoiceChecker constructs an InvoiceChecker.
func NewInvoiceChecker(invoices billing.InvoiceRepository) *InvoiceChecker {
	if invoices == nil {
		return nil
	}
	return &InvoiceChecker{invoices: invoices}
}

// EnsureInvoiceTenant verifies the invoice belongs to the tenant.
func (c *InvoiceChecker) EnsureInvoiceTenant(ctx context.Context, tenantID, invoiceID string) error {
	if c == nil || c.invoices == nil {
		return nil
	}
	if tenantID == "" || invoiceID == "" {
		return nil
	}
	invoice, err := c.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, billing.ErrInvoiceNotFound) {
			return ErrNotFound
		}
		return err
	}
	if invoice.TenantID != tenantID {
		return ErrTenantMismatch
	}
	return nil
}
