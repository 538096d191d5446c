package memory

import (
	"context"
	"sync"
	"time"

	billing "utility-billing/internal/billing/domain"
)

// TenantRepository is an in-memory repository for tenants.
type TenantRepository struct {
	mu      sync.RWMutex
	tenants map[string]billing.Tenant
}

// NewTenantRepository constructs a repository.
func NewTenantRepository() *TenantRepository {
	return &TenantRepository{tenants: make(map[string]billing.Tenant)}
}

// Add registers a tenant.
func (r *TenantRepository) Add(t billing.Tenant) {
	r.mu.Lock()
	r.tenants[t.ID] = t
	r.mu.Unlock()
}

// FindByID loads a tenant.
func (r *TenantRepository) FindByID(ctx context.Context, tenantID string) (*billing.Tenant, error) {
	_ = ctx
	r.mu.RLock()
	t, ok := r.tenants[tenantID]
	r.mu.RUnlock()
	if !ok {
		return nil, billing.ErrTenantNotFound
	}
	copy := t
	return &copy, nil
}

// MeterRepository is an in-memory repository for meters.
type MeterRepository struct {
	mu     sync.RWMutex
	meters map[string][]billing.Meter // keyed by property id
}

// NewMeterRepository constructs a repository.
func NewMeterRepository() *MeterRepository {
	return &MeterRepository{meters: make(map[string][]billing.Meter)}
}

// Add registers a meter under its property.
func (r *MeterRepository) Add(m billing.Meter) {
	r.mu.Lock()
	r.meters[m.PropertyID] = append(r.meters[m.PropertyID], m)
	r.mu.Unlock()
}

// ListByProperty returns copies of the property's meters.
func (r *MeterRepository) ListByProperty(ctx context.Context, propertyID string) ([]billing.Meter, error) {
	_ = ctx
	r.mu.RLock()
	out := append([]billing.Meter(nil), r.meters[propertyID]...)
	r.mu.RUnlock()
	return out, nil
}

// ReadingRepository is an in-memory repository for meter readings.
type ReadingRepository struct {
	mu       sync.RWMutex
	readings map[string][]billing.MeterReading // keyed by meter id
}

// NewReadingRepository constructs a repository.
func NewReadingRepository() *ReadingRepository {
	return &ReadingRepository{readings: make(map[string][]billing.MeterReading)}
}

// Add appends a reading.
func (r *ReadingRepository) Add(reading billing.MeterReading) {
	r.mu.Lock()
	r.readings[reading.MeterID] = append(r.readings[reading.MeterID], reading)
	r.mu.Unlock()
}

// FindAtOrBefore returns the latest reading for the meter and zone dated at
// or before the date, ordering same-day readings by id.
func (r *ReadingRepository) FindAtOrBefore(ctx context.Context, meterID, zone string, date time.Time) (*billing.MeterReading, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *billing.MeterReading
	for i := range r.readings[meterID] {
		reading := r.readings[meterID][i]
		if reading.Zone != zone || reading.ReadingDate.After(date) {
			continue
		}
		if best == nil || best.Before(reading) {
			copy := reading
			best = &copy
		}
	}
	return best, nil
}

// ZonesWithReadingsInRange returns the distinct zones with readings inside
// [start, end], in first-seen order.
func (r *ReadingRepository) ZonesWithReadingsInRange(ctx context.Context, meterID string, start, end time.Time) ([]string, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var zones []string
	for _, reading := range r.readings[meterID] {
		if reading.Zone == "" || reading.ReadingDate.Before(start) || reading.ReadingDate.After(end) {
			continue
		}
		if !seen[reading.Zone] {
			seen[reading.Zone] = true
			zones = append(zones, reading.Zone)
		}
	}
	return zones, nil
}

// InvoiceRepository is an in-memory repository for invoices.
type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices map[string]*billing.Invoice

	// FailCreate forces CreateWithItems to return this error, for tests.
	FailCreate error
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{invoices: make(map[string]*billing.Invoice)}
}

// CreateWithItems stores the invoice and its items atomically.
func (r *InvoiceRepository) CreateWithItems(ctx context.Context, invoice *billing.Invoice) error {
	_ = ctx
	if invoice == nil {
		return billing.ErrNilInvoice
	}
	if r.FailCreate != nil {
		return r.FailCreate
	}
	r.mu.Lock()
	r.invoices[invoice.ID] = invoice.Clone()
	r.mu.Unlock()
	return nil
}

// FindByID loads an invoice copy.
func (r *InvoiceRepository) FindByID(ctx context.Context, invoiceID string) (*billing.Invoice, error) {
	_ = ctx
	r.mu.RLock()
	invoice := r.invoices[invoiceID]
	r.mu.RUnlock()
	if invoice == nil {
		return nil, billing.ErrInvoiceNotFound
	}
	return invoice.Clone(), nil
}

// UpdateStatus overwrites the stored invoice.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, invoice *billing.Invoice) error {
	_ = ctx
	if invoice == nil {
		return billing.ErrNilInvoice
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[invoice.ID]; !ok {
		return billing.ErrInvoiceNotFound
	}
	r.invoices[invoice.ID] = invoice.Clone()
	return nil
}

// CountByStatus counts stored invoices with the given status.
func (r *InvoiceRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, invoice := range r.invoices {
		if invoice.Status == status {
			count++
		}
	}
	return count, nil
}
