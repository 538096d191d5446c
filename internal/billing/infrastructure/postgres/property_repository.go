package postgres

import (
	"context"
	"database/sql"
	"errors"

	billing "utility-billing/internal/billing/domain"
	"utility-billing/internal/distribution"
)

// PropertyRepository loads the cost-bearing properties of a building along
// with the data the distribution methods need.
type PropertyRepository struct {
	db *sql.DB
}

// NewPropertyRepository constructs a repository.
func NewPropertyRepository(db *sql.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// ListByBuilding returns the building's properties with their area and the
// historical consumption aggregated from their meters.
func (r *PropertyRepository) ListByBuilding(ctx context.Context, buildingID string) ([]distribution.Property, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("property repo: nil db")
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, COALESCE(p.area_sqm, 0), COALESCE(SUM(c.consumption), 0)
FROM properties p
LEFT JOIN property_consumption c ON c.property_id = p.id
WHERE p.building_id = $1
GROUP BY p.id, p.area_sqm
ORDER BY p.id`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []distribution.Property
	for rows.Next() {
		var p distribution.Property
		if err := rows.Scan(&p.ID, &p.AreaSqm, &p.HistoricalConsumption); err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// CirculationCost returns the building's recorded hot water circulation
// cost for the period, zero when none is recorded.
func (r *PropertyRepository) CirculationCost(ctx context.Context, buildingID string, period billing.BillingPeriod) (float64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("property repo: nil db")
	}

	var cost float64
	row := r.db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(amount), 0)
FROM building_circulation_costs
WHERE building_id = $1 AND period_start >= $2 AND period_end <= $3`,
		buildingID, period.Start, period.End)
	if err := row.Scan(&cost); err != nil {
		return 0, err
	}
	return cost, nil
}
