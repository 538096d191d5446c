package billing

import (
	"fmt"
	"time"
)

// BillingPeriod is a half-open [Start, End] date window for one invoice.
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// NewBillingPeriod validates that the period starts before it ends.
func NewBillingPeriod(start, end time.Time) (BillingPeriod, error) {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return BillingPeriod{}, ErrInvalidPeriod
	}
	return BillingPeriod{Start: start, End: end}, nil
}

// Label renders the period for metadata and descriptions.
func (p BillingPeriod) Label() string {
	return fmt.Sprintf("%s to %s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// Contains reports whether the date falls inside the period boundaries.
func (p BillingPeriod) Contains(date time.Time) bool {
	return !date.Before(p.Start) && !date.After(p.End)
}
