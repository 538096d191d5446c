package billing

import (
	"fmt"
	"math"
	"time"

	tariff "utility-billing/internal/tariff/domain"
)

// Invoice statuses. A draft invoice is mutable; finalizing freezes it.
const (
	StatusDraft     = "DRAFT"
	StatusFinalized = "FINALIZED"
	StatusPaid      = "PAID"
)

// ReadingSnapshot freezes the inputs an invoice item was priced from, so
// later tariff or reading changes cannot alter an issued invoice.
type ReadingSnapshot struct {
	MeterID        string                `json:"meter_id,omitempty"`
	MeterSerial    string                `json:"meter_serial,omitempty"`
	StartReadingID string                `json:"start_reading_id,omitempty"`
	StartValue     float64               `json:"start_value,omitempty"`
	StartDate      string                `json:"start_date,omitempty"`
	EndReadingID   string                `json:"end_reading_id,omitempty"`
	EndValue       float64               `json:"end_value,omitempty"`
	EndDate        string                `json:"end_date,omitempty"`
	Zone           string                `json:"zone,omitempty"`
	TariffID       string                `json:"tariff_id,omitempty"`
	TariffName     string                `json:"tariff_name,omitempty"`
	TariffConfig   *tariff.Configuration `json:"tariff_configuration,omitempty"`
	FeeType        string                `json:"fee_type,omitempty"`
	Calculation    string                `json:"calculation_type,omitempty"`
	PropertyID     string                `json:"property_id,omitempty"`
	BuildingID     string                `json:"building_id,omitempty"`
}

// InvoiceItem is one billed line with its pricing snapshot.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	Description string
	Quantity    float64
	Unit        string
	UnitPrice   float64
	Total       float64
	Snapshot    ReadingSnapshot
}

// Invoice is one tenant's bill for a billing period.
type Invoice struct {
	ID          string
	TenantID    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	DueDate     time.Time
	TotalAmount float64
	Currency    string
	Status      string
	CreatedAt   time.Time
	FinalizedAt time.Time
	Items       []InvoiceItem
}

// Draft reports whether the invoice is still mutable.
func (inv *Invoice) Draft() bool { return inv.Status == StatusDraft }

// AddItem appends an item and accumulates the total. Finalized invoices
// reject mutation.
func (inv *Invoice) AddItem(item InvoiceItem) error {
	if !inv.Draft() {
		return ErrInvoiceImmutable
	}
	item.InvoiceID = inv.ID
	inv.Items = append(inv.Items, item)
	inv.TotalAmount = round2(inv.TotalAmount + item.Total)
	return nil
}

// Finalize validates every item and freezes the invoice. Validation
// problems are collected into a single *ItemValidationError.
func (inv *Invoice) Finalize(now time.Time) error {
	if !inv.Draft() {
		return ErrInvoiceImmutable
	}

	var problems []string
	for i, item := range inv.Items {
		if item.Description == "" {
			problems = append(problems, fmt.Sprintf("item %d: empty description", i))
		}
		if item.Quantity < 0 {
			problems = append(problems, fmt.Sprintf("item %d: negative quantity", i))
		}
		if item.UnitPrice < 0 {
			problems = append(problems, fmt.Sprintf("item %d: negative unit price", i))
		}
		if item.Total <= 0 {
			problems = append(problems, fmt.Sprintf("item %d: total must be positive", i))
		}
	}
	if len(problems) > 0 {
		return &ItemValidationError{InvoiceID: inv.ID, Problems: problems}
	}

	inv.Status = StatusFinalized
	inv.FinalizedAt = now
	return nil
}

// Clone returns a deep copy safe for concurrent readers.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	copied := *inv
	copied.Items = append([]InvoiceItem(nil), inv.Items...)
	return &copied
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round2 rounds a monetary amount to cents.
func Round2(v float64) float64 { return round2(v) }

// Round4 rounds a unit price to four decimals.
func Round4(v float64) float64 { return math.Round(v*10000) / 10000 }
