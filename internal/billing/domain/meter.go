package billing

import (
	"time"

	tariff "utility-billing/internal/tariff/domain"
)

// MeterType identifies what a meter measures.
type MeterType string

const (
	MeterElectricity MeterType = "electricity"
	MeterWaterCold   MeterType = "water_cold"
	MeterWaterHot    MeterType = "water_hot"
	MeterHeating     MeterType = "heating"
)

// ServiceType maps the meter type to the utility service it is billed under.
func (t MeterType) ServiceType() tariff.ServiceType {
	switch t {
	case MeterElectricity:
		return tariff.ServiceElectricity
	case MeterWaterCold, MeterWaterHot:
		return tariff.ServiceWater
	case MeterHeating:
		return tariff.ServiceHeating
	}
	return ""
}

// Unit returns the billing unit for the meter type.
func (t MeterType) Unit() string {
	switch t {
	case MeterWaterCold, MeterWaterHot:
		return "m³"
	default:
		return "kWh"
	}
}

// Label returns the human-readable item description base.
func (t MeterType) Label() string {
	switch t {
	case MeterElectricity:
		return "Electricity"
	case MeterWaterCold:
		return "Cold Water"
	case MeterWaterHot:
		return "Hot Water"
	case MeterHeating:
		return "Heating"
	}
	return string(t)
}

// IsWater reports whether the meter measures water.
func (t MeterType) IsWater() bool {
	return t == MeterWaterCold || t == MeterWaterHot
}

// Meter is an installed measuring device. Meters are immutable once
// registered.
type Meter struct {
	ID            string
	PropertyID    string
	SerialNumber  string
	Type          MeterType
	SupportsZones bool
}

// MeterReading is one recorded meter value. Readings are append-only;
// ordering is by (ReadingDate, ID) so same-day readings resolve
// deterministically. Zone is empty for single-zone meters.
type MeterReading struct {
	ID          string
	MeterID     string
	Zone        string
	Value       float64
	ReadingDate time.Time
}

// Before reports whether r orders before other under (ReadingDate, ID).
func (r MeterReading) Before(other MeterReading) bool {
	if !r.ReadingDate.Equal(other.ReadingDate) {
		return r.ReadingDate.Before(other.ReadingDate)
	}
	return r.ID < other.ID
}
