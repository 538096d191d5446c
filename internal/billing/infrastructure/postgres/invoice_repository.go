package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	billing "utility-billing/internal/billing/domain"
)

// InvoiceRepository persists invoices and their items.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// CreateWithItems inserts the invoice and all its items in one transaction.
func (r *InvoiceRepository) CreateWithItems(ctx context.Context, invoice *billing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if invoice == nil {
		return billing.ErrNilInvoice
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO invoices (
	id, tenant_id, period_start, period_end, due_date,
	total_amount, currency, status, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`,
		invoice.ID, invoice.TenantID, invoice.PeriodStart, invoice.PeriodEnd, invoice.DueDate,
		invoice.TotalAmount, invoice.Currency, invoice.Status, invoice.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, item := range invoice.Items {
		snapshot, err := json.Marshal(item.Snapshot)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("invoice repo: encode snapshot of item %s: %w", item.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO invoice_items (
	id, invoice_id, description, quantity, unit, unit_price, total, reading_snapshot
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			item.ID, invoice.ID, item.Description, item.Quantity, item.Unit, item.UnitPrice, item.Total, snapshot)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// FindByID loads an invoice with its items.
func (r *InvoiceRepository) FindByID(ctx context.Context, invoiceID string) (*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}

	var invoice billing.Invoice
	var finalizedAt sql.NullTime
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, period_start, period_end, due_date,
	total_amount, currency, status, created_at, finalized_at
FROM invoices
WHERE id = $1`, invoiceID)
	err := row.Scan(
		&invoice.ID, &invoice.TenantID, &invoice.PeriodStart, &invoice.PeriodEnd, &invoice.DueDate,
		&invoice.TotalAmount, &invoice.Currency, &invoice.Status, &invoice.CreatedAt, &finalizedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, err
	}
	if finalizedAt.Valid {
		invoice.FinalizedAt = finalizedAt.Time
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, description, quantity, unit, unit_price, total, reading_snapshot
FROM invoice_items
WHERE invoice_id = $1
ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		item := billing.InvoiceItem{InvoiceID: invoice.ID}
		var snapshot []byte
		if err := rows.Scan(&item.ID, &item.Description, &item.Quantity, &item.Unit, &item.UnitPrice, &item.Total, &snapshot); err != nil {
			return nil, err
		}
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &item.Snapshot); err != nil {
				return nil, fmt.Errorf("invoice repo: decode snapshot of item %s: %w", item.ID, err)
			}
		}
		invoice.Items = append(invoice.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateStatus persists a status transition. Finalized rows are guarded in
// SQL so a stale in-memory copy cannot re-open a frozen invoice.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, invoice *billing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if invoice == nil {
		return billing.ErrNilInvoice
	}

	var finalizedAt any
	if !invoice.FinalizedAt.IsZero() {
		finalizedAt = invoice.FinalizedAt
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET status = $2, finalized_at = $3, total_amount = $4
WHERE id = $1 AND status = 'DRAFT'`,
		invoice.ID, invoice.Status, finalizedAt, invoice.TotalAmount)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrInvoiceImmutable
	}
	return nil
}

// CountByStatus counts invoices in a status, for the draft backlog gauge.
func (r *InvoiceRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("invoice repo: nil db")
	}
	var count int
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices WHERE status = $1`, status)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
