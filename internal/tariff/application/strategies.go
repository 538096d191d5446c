package application

import (
	"time"

	tariff "utility-billing/internal/tariff/domain"
)

// CalculationStrategy prices consumption under one tariff configuration type.
type CalculationStrategy interface {
	Supports(configurationType string) bool
	Calculate(config tariff.Configuration, consumption float64, at time.Time) float64
}

// FlatRateStrategy applies a single rate regardless of time of day. It
// accepts both the current "flat_rate" tag and the legacy "flat" tag still
// present in older provider configurations.
type FlatRateStrategy struct{}

// NewFlatRateStrategy constructs the strategy.
func NewFlatRateStrategy() *FlatRateStrategy { return &FlatRateStrategy{} }

// Supports reports whether the configuration type is flat.
func (s *FlatRateStrategy) Supports(configurationType string) bool {
	return configurationType == tariff.TypeFlatRate || configurationType == tariff.TypeFlat
}

// Calculate multiplies consumption by the flat rate.
func (s *FlatRateStrategy) Calculate(config tariff.Configuration, consumption float64, _ time.Time) float64 {
	return consumption * config.Rate
}

// TimeOfUseStrategy prices consumption by the zone covering the billing
// timestamp. Consumption outside any configured zone costs nothing.
type TimeOfUseStrategy struct{}

// NewTimeOfUseStrategy constructs the strategy.
func NewTimeOfUseStrategy() *TimeOfUseStrategy { return &TimeOfUseStrategy{} }

// Supports reports whether the configuration type is time_of_use.
func (s *TimeOfUseStrategy) Supports(configurationType string) bool {
	return configurationType == tariff.TypeTimeOfUse
}

// Calculate looks up the zone rate for the timestamp's minute of day.
func (s *TimeOfUseStrategy) Calculate(config tariff.Configuration, consumption float64, at time.Time) float64 {
	minute := at.Hour()*60 + at.Minute()
	rate, ok := tariff.RateAt(config.Zones, minute)
	if !ok {
		return 0
	}
	return consumption * rate
}

// DefaultStrategies returns the strategies registered in dispatch order.
func DefaultStrategies() []CalculationStrategy {
	return []CalculationStrategy{
		NewFlatRateStrategy(),
		NewTimeOfUseStrategy(),
	}
}
