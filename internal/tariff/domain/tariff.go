package tariff

import "time"

// ServiceType identifies the utility service a provider bills for.
type ServiceType string

const (
	ServiceElectricity ServiceType = "electricity"
	ServiceWater       ServiceType = "water"
	ServiceHeating     ServiceType = "heating"
)

// Configuration type tags.
const (
	TypeFlatRate  = "flat_rate"
	TypeFlat      = "flat" // legacy tag, same semantics as flat_rate
	TypeTimeOfUse = "time_of_use"
)

// Provider supplies one utility service.
type Provider struct {
	ID          string
	Name        string
	ServiceType ServiceType
}

// ZoneRate is one time-of-use zone with its price. Start and End are
// "HH:MM" clock times; End at or before Start wraps midnight.
type ZoneRate struct {
	ID    string  `json:"id"`
	Start string  `json:"start"`
	End   string  `json:"end"`
	Rate  float64 `json:"rate"`
}

// Configuration is the priced rate structure of a tariff.
type Configuration struct {
	Type  string     `json:"type"`
	Rate  float64    `json:"rate,omitempty"`
	Zones []ZoneRate `json:"zones,omitempty"`
}

// HasUsableRate reports whether the configuration can price consumption on
// its own: a positive flat rate, or at least one time-of-use zone.
func (c Configuration) HasUsableRate() bool {
	switch c.Type {
	case TypeFlatRate, TypeFlat:
		return c.Rate > 0
	case TypeTimeOfUse:
		return len(c.Zones) > 0
	}
	return false
}

// Tariff is a priced configuration active over a time window for a provider.
type Tariff struct {
	ID            string
	ProviderID    string
	Name          string
	Configuration Configuration
	ActiveFrom    time.Time
	ActiveUntil   time.Time // zero = open-ended
}

// ActiveOn reports whether the tariff's activation window covers the date.
func (t *Tariff) ActiveOn(date time.Time) bool {
	if t == nil || t.ActiveFrom.IsZero() {
		return false
	}
	if t.ActiveFrom.After(date) {
		return false
	}
	if !t.ActiveUntil.IsZero() && t.ActiveUntil.Before(date) {
		return false
	}
	return true
}
