package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"utility-billing/internal/auth"
)

const timeLayout = time.RFC3339

// InvoicesHandler serves invoice listing queries straight from the
// database. Per-invoice detail lives on the billing interfaces handler.
type InvoicesHandler struct {
	db *sql.DB
}

// NewInvoicesHandler constructs a InvoicesHandler.
func NewInvoicesHandler(db *sql.DB) *InvoicesHandler {
	return &InvoicesHandler{db: db}
}

// ServeHTTP handles GET /api/v1/invoices.
func (h *InvoicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	filter, err := parseInvoiceFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := queryInvoices(r.Context(), h.db, filter)
	if err != nil {
		http.Error(w, "query invoices error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// ExportInvoicesCSVHandler serves invoice CSV exports.
type ExportInvoicesCSVHandler struct {
	db *sql.DB
}

// NewExportInvoicesCSVHandler constructs a ExportInvoicesCSVHandler.
func NewExportInvoicesCSVHandler(db *sql.DB) *ExportInvoicesCSVHandler {
	return &ExportInvoicesCSVHandler{db: db}
}

// ServeHTTP handles GET /api/v1/exports/invoices.csv.
func (h *ExportInvoicesCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	filter, err := parseInvoiceFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := queryInvoices(r.Context(), h.db, filter)
	if err != nil {
		http.Error(w, "query invoices error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"invoice_id",
		"tenant_id",
		"period_start",
		"period_end",
		"due_date",
		"total_amount",
		"currency",
		"status",
		"created_at",
		"finalized_at",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.ID,
			row.TenantID,
			row.PeriodStart.Format("2006-01-02"),
			row.PeriodEnd.Format("2006-01-02"),
			row.DueDate.Format("2006-01-02"),
			formatFloat(row.TotalAmount),
			row.Currency,
			row.Status,
			formatTime(row.CreatedAt),
			formatTimePtr(row.FinalizedAt),
		})
	}
	writer.Flush()
}

type invoiceFilter struct {
	tenantID string
	status   string
	from     time.Time
	to       time.Time
}

type invoiceRow struct {
	ID          string     `json:"invoice_id"`
	TenantID    string     `json:"tenant_id"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	DueDate     time.Time  `json:"due_date"`
	TotalAmount float64    `json:"total_amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	FinalizedAt *time.Time `json:"finalized_at"`
}

func parseInvoiceFilter(r *http.Request) (invoiceFilter, error) {
	filter := invoiceFilter{
		tenantID: auth.TenantIDFromContext(r.Context()),
		status:   r.URL.Query().Get("status"),
	}
	if filter.tenantID == "" {
		filter.tenantID = r.URL.Query().Get("tenant_id")
	}
	if filter.tenantID == "" {
		return invoiceFilter{}, errors.New("tenant_id is required")
	}
	switch filter.status {
	case "", "DRAFT", "FINALIZED", "PAID":
	default:
		return invoiceFilter{}, errors.New("status must be DRAFT, FINALIZED or PAID")
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		return invoiceFilter{}, err
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		return invoiceFilter{}, err
	}
	if !to.After(from) {
		return invoiceFilter{}, errors.New("to must be after from")
	}
	filter.from = from
	filter.to = to
	return filter, nil
}

func queryInvoices(ctx context.Context, db *sql.DB, filter invoiceFilter) ([]invoiceRow, error) {
	query := `
SELECT
	id,
	tenant_id,
	period_start,
	period_end,
	due_date,
	total_amount,
	currency,
	status,
	created_at,
	finalized_at
FROM invoices
WHERE tenant_id = $1
	AND period_start >= $2
	AND period_start < $3`
	args := []any{filter.tenantID, filter.from.UTC(), filter.to.UTC()}
	if filter.status != "" {
		query += `
	AND status = $4`
		args = append(args, filter.status)
	}
	query += `
ORDER BY period_start ASC, id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoiceRow
	for rows.Next() {
		var row invoiceRow
		var finalizedAt sql.NullTime
		if err := rows.Scan(
			&row.ID,
			&row.TenantID,
			&row.PeriodStart,
			&row.PeriodEnd,
			&row.DueDate,
			&row.TotalAmount,
			&row.Currency,
			&row.Status,
			&row.CreatedAt,
			&finalizedAt,
		); err != nil {
			return nil, err
		}
		row.PeriodStart = row.PeriodStart.UTC()
		row.PeriodEnd = row.PeriodEnd.UTC()
		row.DueDate = row.DueDate.UTC()
		row.CreatedAt = row.CreatedAt.UTC()
		if finalizedAt.Valid {
			t := finalizedAt.Time.UTC()
			row.FinalizedAt = &t
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", value)
		if err != nil {
			return time.Time{}, errors.New(key + " must be RFC3339 or 2006-01-02")
		}
	}
	return parsed.UTC(), nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
