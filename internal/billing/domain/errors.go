package billing

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPeriod is returned when a billing period does not start before it ends.
	ErrInvalidPeriod = errors.New("billing: period start must be before period end")
	// ErrNoProperty is returned when a tenant has no associated property.
	ErrNoProperty = errors.New("billing: tenant has no associated property")
	// ErrNoMeters is returned when a property has no meters to bill.
	ErrNoMeters = errors.New("billing: property has no meters")
	// ErrInvoiceNotFound is returned when an invoice id resolves to nothing.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	// ErrInvoiceImmutable is returned on any mutation of a finalized or paid invoice.
	ErrInvoiceImmutable = errors.New("billing: invoice is finalized and immutable")
	// ErrNilInvoice is returned when persisting a nil invoice.
	ErrNilInvoice = errors.New("billing: nil invoice")
	// ErrTenantNotFound is returned when a tenant id resolves to nothing.
	ErrTenantNotFound = errors.New("billing: tenant not found")
)

// MissingReadingError reports a meter without a usable boundary reading.
type MissingReadingError struct {
	MeterID string
	Zone    string
	At      time.Time
}

func (e *MissingReadingError) Error() string {
	if e.Zone != "" {
		return fmt.Sprintf("billing: meter %s zone %s has no reading at or before %s", e.MeterID, e.Zone, e.At.Format("2006-01-02"))
	}
	return fmt.Sprintf("billing: meter %s has no reading at or before %s", e.MeterID, e.At.Format("2006-01-02"))
}

// ItemValidationError reports why an invoice could not be finalized.
type ItemValidationError struct {
	InvoiceID string
	Problems  []string
}

func (e *ItemValidationError) Error() string {
	return fmt.Sprintf("billing: invoice %s failed item validation: %d problem(s)", e.InvoiceID, len(e.Problems))
}
