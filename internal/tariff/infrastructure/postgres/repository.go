package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	tariff "utility-billing/internal/tariff/domain"
)

const (
	defaultTariffTable   = "tariffs"
	defaultProviderTable = "service_providers"
)

// TariffRepository is a Postgres implementation for tariffs and providers.
// Tariff configurations are stored as JSONB.
type TariffRepository struct {
	db            *sql.DB
	tariffTable   string
	providerTable string
}

// NewTariffRepository constructs a repository with defaults.
func NewTariffRepository(db *sql.DB, opts ...RepositoryOption) *TariffRepository {
	repo := &TariffRepository{
		db:            db,
		tariffTable:   defaultTariffTable,
		providerTable: defaultProviderTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*TariffRepository)

// WithTariffTable overrides the default tariff table.
func WithTariffTable(table string) RepositoryOption {
	return func(repo *TariffRepository) {
		if table != "" {
			repo.tariffTable = table
		}
	}
}

// WithProviderTable overrides the default provider table.
func WithProviderTable(table string) RepositoryOption {
	return func(repo *TariffRepository) {
		if table != "" {
			repo.providerTable = table
		}
	}
}

// ListByProvider returns all tariffs configured for a provider.
func (r *TariffRepository) ListByProvider(ctx context.Context, providerID string) ([]tariff.Tariff, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff repo: nil db")
	}
	if providerID == "" {
		return nil, tariff.ErrProviderNotFound
	}

	query := fmt.Sprintf(`
SELECT id, provider_id, name, configuration, active_from, active_until
FROM %s
WHERE provider_id = $1
ORDER BY active_from`, r.tariffTable)

	rows, err := r.db.QueryContext(ctx, query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tariffs []tariff.Tariff
	for rows.Next() {
		var t tariff.Tariff
		var rawConfig []byte
		var activeUntil sql.NullTime
		if err := rows.Scan(&t.ID, &t.ProviderID, &t.Name, &rawConfig, &t.ActiveFrom, &activeUntil); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawConfig, &t.Configuration); err != nil {
			return nil, fmt.Errorf("tariff repo: decode configuration of %s: %w", t.ID, err)
		}
		if activeUntil.Valid {
			t.ActiveUntil = activeUntil.Time
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, rows.Err()
}

// FindProviderByService returns the provider serving the given utility.
func (r *TariffRepository) FindProviderByService(ctx context.Context, serviceType tariff.ServiceType) (*tariff.Provider, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, name, service_type
FROM %s
WHERE service_type = $1
LIMIT 1`, r.providerTable)

	var p tariff.Provider
	row := r.db.QueryRowContext(ctx, query, string(serviceType))
	if err := row.Scan(&p.ID, &p.Name, &p.ServiceType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tariff.ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SaveTariff upserts a tariff row.
func (r *TariffRepository) SaveTariff(ctx context.Context, t *tariff.Tariff) error {
	if r == nil || r.db == nil {
		return errors.New("tariff repo: nil db")
	}
	if t == nil || t.ID == "" {
		return errors.New("tariff repo: empty tariff")
	}

	rawConfig, err := json.Marshal(t.Configuration)
	if err != nil {
		return fmt.Errorf("tariff repo: encode configuration of %s: %w", t.ID, err)
	}

	var activeUntil any
	if !t.ActiveUntil.IsZero() {
		activeUntil = t.ActiveUntil.UTC()
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	provider_id,
	name,
	configuration,
	active_from,
	active_until
) VALUES (
	$1, $2, $3, $4, $5, $6
)
ON CONFLICT (id)
DO UPDATE SET
	name = EXCLUDED.name,
	configuration = EXCLUDED.configuration,
	active_from = EXCLUDED.active_from,
	active_until = EXCLUDED.active_until,
	updated_at = NOW()`, r.tariffTable)

	_, err = r.db.ExecContext(
		ctx,
		query,
		t.ID,
		t.ProviderID,
		t.Name,
		rawConfig,
		t.ActiveFrom.UTC(),
		activeUntil,
	)
	return err
}
