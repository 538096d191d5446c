package application

import (
	"context"
	"errors"
	"log"
	"time"

	tariff "utility-billing/internal/tariff/domain"
)

// Cache stores resolved tariffs keyed by provider and billing date so a
// batch run resolves each provider once per day.
type Cache interface {
	Get(key string) (*tariff.Tariff, bool)
	Put(key string, value *tariff.Tariff)
}

// NoopCache disables caching.
type NoopCache struct{}

func (NoopCache) Get(string) (*tariff.Tariff, bool) { return nil, false }
func (NoopCache) Put(string, *tariff.Tariff)        {}

// Resolver finds the tariff active for a provider on a date and prices
// consumption through the registered calculation strategies.
type Resolver struct {
	repo       TariffLister
	cache      Cache
	strategies []CalculationStrategy
	logger     *log.Logger
	metrics    ResolverMetrics
}

// TariffLister is the storage dependency of the resolver.
type TariffLister interface {
	ListByProvider(ctx context.Context, providerID string) ([]tariff.Tariff, error)
}

// ResolverMetrics counts resolution outcomes.
type ResolverMetrics interface {
	IncTariffResolve(result string)
}

// ResolverOption configures optional resolver dependencies.
type ResolverOption func(*Resolver)

// WithResolverMetrics records resolution outcomes on the recorder.
func WithResolverMetrics(m ResolverMetrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver constructs a resolver. A nil cache disables caching; an empty
// strategy list falls back to the default set.
func NewResolver(repo TariffLister, cache Cache, strategies []CalculationStrategy, logger *log.Logger, opts ...ResolverOption) (*Resolver, error) {
	if repo == nil {
		return nil, errors.New("tariff resolver: nil repository")
	}
	if cache == nil {
		cache = NoopCache{}
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Resolver{
		repo:       repo,
		cache:      cache,
		strategies: strategies,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Resolver) countResolve(result string) {
	if r.metrics != nil {
		r.metrics.IncTariffResolve(result)
	}
}

// Resolve returns the tariff active for the provider on the given date.
// When several tariffs are active it picks the one with the latest
// activation date. It returns tariff.ErrTariffNotFound when none is active.
func (r *Resolver) Resolve(ctx context.Context, providerID string, date time.Time) (*tariff.Tariff, error) {
	if providerID == "" {
		r.countResolve("error")
		return nil, tariff.ErrProviderNotFound
	}

	key := providerID + "|" + date.Format("2006-01-02")
	if cached, ok := r.cache.Get(key); ok {
		r.countResolve("success")
		return cached, nil
	}

	candidates, err := r.repo.ListByProvider(ctx, providerID)
	if err != nil {
		r.countResolve("error")
		return nil, err
	}

	var best *tariff.Tariff
	for i := range candidates {
		candidate := &candidates[i]
		if !candidate.ActiveOn(date) {
			continue
		}
		if best == nil || candidate.ActiveFrom.After(best.ActiveFrom) {
			best = candidate
		}
	}
	if best == nil {
		r.countResolve("not_found")
		return nil, tariff.ErrTariffNotFound
	}

	resolved := *best
	r.cache.Put(key, &resolved)
	r.countResolve("success")
	return &resolved, nil
}

// CalculateCost prices consumption under the tariff's configuration using
// the first strategy that supports its type. An unsupported type yields a
// zero cost and a logged warning rather than an error, so one misconfigured
// provider cannot abort a billing run.
func (r *Resolver) CalculateCost(t *tariff.Tariff, consumption float64, at time.Time) float64 {
	if t == nil {
		return 0
	}
	for _, strategy := range r.strategies {
		if strategy.Supports(t.Configuration.Type) {
			return strategy.Calculate(t.Configuration, consumption, at)
		}
	}
	r.logger.Printf("tariff resolver: no strategy supports configuration type %q (tariff %s)", t.Configuration.Type, t.ID)
	return 0
}
