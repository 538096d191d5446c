package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	billing "utility-billing/internal/billing/domain"
)

// MeteringRepository loads tenants, meters and readings.
type MeteringRepository struct {
	db *sql.DB
}

// NewMeteringRepository constructs a repository.
func NewMeteringRepository(db *sql.DB) *MeteringRepository {
	return &MeteringRepository{db: db}
}

// FindByID loads a tenant with its property and building links.
func (r *MeteringRepository) FindByID(ctx context.Context, tenantID string) (*billing.Tenant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("metering repo: nil db")
	}

	var t billing.Tenant
	var propertyID, buildingID sql.NullString
	row := r.db.QueryRowContext(ctx, `
SELECT t.id, t.property_id, p.building_id
FROM tenants t
LEFT JOIN properties p ON p.id = t.property_id
WHERE t.id = $1`, tenantID)
	if err := row.Scan(&t.ID, &propertyID, &buildingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrTenantNotFound
		}
		return nil, err
	}
	t.PropertyID = propertyID.String
	t.BuildingID = buildingID.String
	return &t, nil
}

// ListByProperty returns the meters installed at a property.
func (r *MeteringRepository) ListByProperty(ctx context.Context, propertyID string) ([]billing.Meter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("metering repo: nil db")
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, property_id, serial_number, type, supports_zones
FROM meters
WHERE property_id = $1
ORDER BY id`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []billing.Meter
	for rows.Next() {
		var m billing.Meter
		if err := rows.Scan(&m.ID, &m.PropertyID, &m.SerialNumber, &m.Type, &m.SupportsZones); err != nil {
			return nil, err
		}
		meters = append(meters, m)
	}
	return meters, rows.Err()
}

// FindAtOrBefore returns the latest reading at or before the date for the
// meter and zone. Same-day readings resolve by id, matching the domain
// ordering. An empty zone selects readings without a zone.
func (r *MeteringRepository) FindAtOrBefore(ctx context.Context, meterID, zone string, date time.Time) (*billing.MeterReading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("metering repo: nil db")
	}

	query := `
SELECT id, meter_id, COALESCE(zone, ''), value, reading_date
FROM meter_readings
WHERE meter_id = $1 AND reading_date <= $2 AND zone IS NULL
ORDER BY reading_date DESC, id DESC
LIMIT 1`
	args := []any{meterID, date}
	if zone != "" {
		query = `
SELECT id, meter_id, COALESCE(zone, ''), value, reading_date
FROM meter_readings
WHERE meter_id = $1 AND reading_date <= $2 AND zone = $3
ORDER BY reading_date DESC, id DESC
LIMIT 1`
		args = append(args, zone)
	}

	var reading billing.MeterReading
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&reading.ID, &reading.MeterID, &reading.Zone, &reading.Value, &reading.ReadingDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &reading, nil
}

// ZonesWithReadingsInRange returns the distinct zones with readings inside
// the period.
func (r *MeteringRepository) ZonesWithReadingsInRange(ctx context.Context, meterID string, start, end time.Time) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("metering repo: nil db")
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT zone
FROM meter_readings
WHERE meter_id = $1 AND reading_date BETWEEN $2 AND $3 AND zone IS NOT NULL
ORDER BY zone`, meterID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []string
	for rows.Next() {
		var zone string
		if err := rows.Scan(&zone); err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}
	return zones, rows.Err()
}

// InsertReading appends one reading. Readings are append-only.
func (r *MeteringRepository) InsertReading(ctx context.Context, reading billing.MeterReading) error {
	if r == nil || r.db == nil {
		return errors.New("metering repo: nil db")
	}

	var zone any
	if reading.Zone != "" {
		zone = reading.Zone
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO meter_readings (id, meter_id, zone, value, reading_date)
VALUES ($1,$2,$3,$4,$5)`,
		reading.ID, reading.MeterID, zone, reading.Value, reading.ReadingDate)
	return err
}
