package tariff

import "errors"

var (
	// ErrTariffNotFound is returned when no tariff is active for a provider and date.
	ErrTariffNotFound = errors.New("tariff: no active tariff found")
	// ErrProviderNotFound is returned when no provider serves a service type.
	ErrProviderNotFound = errors.New("tariff: provider not found")
	// ErrInvalidClock is returned when a zone boundary is not HH:MM.
	ErrInvalidClock = errors.New("tariff: invalid HH:MM time")
)
