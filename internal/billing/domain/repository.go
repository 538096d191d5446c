package billing

import (
	"context"
	"time"
)

// Tenant links a renter to the property and building billed for them.
type Tenant struct {
	ID         string
	PropertyID string
	BuildingID string
}

// TenantRepository loads tenants.
type TenantRepository interface {
	FindByID(ctx context.Context, tenantID string) (*Tenant, error)
}

// MeterRepository loads the meters installed at a property.
type MeterRepository interface {
	ListByProperty(ctx context.Context, propertyID string) ([]Meter, error)
}

// ReadingRepository loads meter readings. FindAtOrBefore returns the latest
// reading dated at or before the given date for the meter and zone (empty
// zone means readings without a zone); nil with no error when none exists.
type ReadingRepository interface {
	FindAtOrBefore(ctx context.Context, meterID, zone string, date time.Time) (*MeterReading, error)
	ZonesWithReadingsInRange(ctx context.Context, meterID string, start, end time.Time) ([]string, error)
}

// InvoiceRepository persists invoices. CreateWithItems writes the invoice
// and all its items atomically.
type InvoiceRepository interface {
	CreateWithItems(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, invoiceID string) (*Invoice, error)
	UpdateStatus(ctx context.Context, invoice *Invoice) error
	CountByStatus(ctx context.Context, status string) (int, error)
}
