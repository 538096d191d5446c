package billing

import (
	"errors"
	"testing"
	"time"
)

func draftInvoice() *Invoice {
	return &Invoice{
		ID:       "inv-1",
		TenantID: "t-1",
		Status:   StatusDraft,
	}
}

func TestAddItem_AccumulatesTotal(t *testing.T) {
	inv := draftInvoice()
	if err := inv.AddItem(InvoiceItem{Description: "Electricity", Quantity: 50, UnitPrice: 2.0, Total: 100.0}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := inv.AddItem(InvoiceItem{Description: "Cold Water", Quantity: 3, UnitPrice: 2.2, Total: 6.6}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if inv.TotalAmount != 106.6 {
		t.Fatalf("expected total 106.6, got %v", inv.TotalAmount)
	}
	if inv.Items[0].InvoiceID != "inv-1" {
		t.Fatalf("expected item bound to invoice, got %q", inv.Items[0].InvoiceID)
	}
}

func TestFinalize_FreezesInvoice(t *testing.T) {
	inv := draftInvoice()
	if err := inv.AddItem(InvoiceItem{Description: "Electricity", Quantity: 50, UnitPrice: 2.0, Total: 100.0}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	now := time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)
	if err := inv.Finalize(now); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if inv.Status != StatusFinalized || !inv.FinalizedAt.Equal(now) {
		t.Fatalf("expected finalized at %v, got %s %v", now, inv.Status, inv.FinalizedAt)
	}

	if err := inv.AddItem(InvoiceItem{Description: "late", Total: 1}); !errors.Is(err, ErrInvoiceImmutable) {
		t.Fatalf("expected ErrInvoiceImmutable, got %v", err)
	}
	if err := inv.Finalize(now); !errors.Is(err, ErrInvoiceImmutable) {
		t.Fatalf("expected ErrInvoiceImmutable on double finalize, got %v", err)
	}
}

func TestFinalize_CollectsItemProblems(t *testing.T) {
	inv := draftInvoice()
	inv.Items = []InvoiceItem{
		{Description: "", Quantity: 1, UnitPrice: 1, Total: 1},
		{Description: "ok", Quantity: -1, UnitPrice: 1, Total: 1},
		{Description: "ok", Quantity: 1, UnitPrice: 1, Total: 0},
	}
	err := inv.Finalize(time.Now())
	var ive *ItemValidationError
	if !errors.As(err, &ive) {
		t.Fatalf("expected *ItemValidationError, got %v", err)
	}
	if len(ive.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", ive.Problems)
	}
	if inv.Status != StatusDraft {
		t.Fatalf("failed finalize must leave invoice draft, got %s", inv.Status)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	inv := draftInvoice()
	_ = inv.AddItem(InvoiceItem{Description: "Electricity", Quantity: 1, UnitPrice: 1, Total: 1})

	copied := inv.Clone()
	copied.Items[0].Description = "changed"
	copied.TotalAmount = 999

	if inv.Items[0].Description != "Electricity" || inv.TotalAmount == 999 {
		t.Fatal("clone mutation leaked into original")
	}
}

func TestNewBillingPeriod(t *testing.T) {
	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

	if _, err := NewBillingPeriod(start, end); err != nil {
		t.Fatalf("NewBillingPeriod: %v", err)
	}
	if _, err := NewBillingPeriod(end, start); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if _, err := NewBillingPeriod(start, start); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod for empty period, got %v", err)
	}
}

func TestMeterReading_Ordering(t *testing.T) {
	day := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	a := MeterReading{ID: "r-1", ReadingDate: day}
	b := MeterReading{ID: "r-2", ReadingDate: day}
	c := MeterReading{ID: "r-0", ReadingDate: day.AddDate(0, 0, 1)}

	if !a.Before(b) {
		t.Fatal("same-day readings must order by id")
	}
	if !b.Before(c) {
		t.Fatal("earlier date must order first regardless of id")
	}
}

func TestMeterType_ServiceMapping(t *testing.T) {
	cases := []struct {
		meter   MeterType
		service string
		unit    string
	}{
		{MeterElectricity, "electricity", "kWh"},
		{MeterWaterCold, "water", "m³"},
		{MeterWaterHot, "water", "m³"},
		{MeterHeating, "heating", "kWh"},
	}
	for _, tc := range cases {
		if got := string(tc.meter.ServiceType()); got != tc.service {
			t.Fatalf("%s: expected service %s, got %s", tc.meter, tc.service, got)
		}
		if got := tc.meter.Unit(); got != tc.unit {
			t.Fatalf("%s: expected unit %s, got %s", tc.meter, tc.unit, got)
		}
	}
}
