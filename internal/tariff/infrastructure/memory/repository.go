package memory

import (
	"context"
	"sync"

	tariff "utility-billing/internal/tariff/domain"
)

// TariffRepository is an in-memory repository for tariffs and providers.
type TariffRepository struct {
	mu        sync.RWMutex
	tariffs   map[string][]tariff.Tariff // keyed by provider id
	providers map[tariff.ServiceType]tariff.Provider
}

// NewTariffRepository constructs a repository.
func NewTariffRepository() *TariffRepository {
	return &TariffRepository{
		tariffs:   make(map[string][]tariff.Tariff),
		providers: make(map[tariff.ServiceType]tariff.Provider),
	}
}

// AddProvider registers a provider for its service type.
func (r *TariffRepository) AddProvider(p tariff.Provider) {
	r.mu.Lock()
	r.providers[p.ServiceType] = p
	r.mu.Unlock()
}

// AddTariff registers a tariff under its provider.
func (r *TariffRepository) AddTariff(t tariff.Tariff) {
	r.mu.Lock()
	r.tariffs[t.ProviderID] = append(r.tariffs[t.ProviderID], t)
	r.mu.Unlock()
}

// ListByProvider returns copies of the provider's tariffs.
func (r *TariffRepository) ListByProvider(ctx context.Context, providerID string) ([]tariff.Tariff, error) {
	_ = ctx
	if providerID == "" {
		return nil, tariff.ErrProviderNotFound
	}

	r.mu.RLock()
	stored := r.tariffs[providerID]
	out := append([]tariff.Tariff(nil), stored...)
	r.mu.RUnlock()
	return out, nil
}

// FindProviderByService returns the provider serving the given utility.
func (r *TariffRepository) FindProviderByService(ctx context.Context, serviceType tariff.ServiceType) (*tariff.Provider, error) {
	_ = ctx

	r.mu.RLock()
	p, ok := r.providers[serviceType]
	r.mu.RUnlock()
	if !ok {
		return nil, tariff.ErrProviderNotFound
	}
	copy := p
	return &copy, nil
}
