package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"utility-billing/internal/audit"
	"utility-billing/internal/auth"
	"utility-billing/internal/billing/application"
	billing "utility-billing/internal/billing/domain"
	"utility-billing/internal/observability/metrics"
)

const dateLayout = "2006-01-02"

// InvoiceHandler handles invoice APIs.
type InvoiceHandler struct {
	service        *application.BillingService
	batch          *application.BatchRunner
	invoices       billing.InvoiceRepository
	invoiceChecker auth.InvoiceTenantChecker
	auditLogger    audit.Logger
}

// NewInvoiceHandler constructs a handler.
func NewInvoiceHandler(service *application.BillingService, batch *application.BatchRunner, invoices billing.InvoiceRepository, invoiceChecker auth.InvoiceTenantChecker, auditLogger audit.Logger) (*InvoiceHandler, error) {
	if service == nil {
		return nil, errors.New("invoice handler: nil service")
	}
	if invoices == nil {
		return nil, errors.New("invoice handler: nil invoice repository")
	}
	return &InvoiceHandler{
		service:        service,
		batch:          batch,
		invoices:       invoices,
		invoiceChecker: invoiceChecker,
		auditLogger:    auditLogger,
	}, nil
}

// ServeHTTP handles invoice routes under /api/v1/invoices.
func (h *InvoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/invoices/generate" && r.Method == http.MethodPost {
		h.handleGenerate(w, r)
		return
	}
	if path == "/api/v1/invoices/batch" && r.Method == http.MethodPost {
		h.handleBatch(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/invoices/") {
		rest := strings.TrimPrefix(path, "/api/v1/invoices/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *InvoiceHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID    string `json:"tenant_id"`
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID != "" && req.TenantID != "" && req.TenantID != tenantID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if req.TenantID == "" {
		req.TenantID = tenantID
	}
	start, err := parseDate(req.PeriodStart, "period_start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseDate(req.PeriodEnd, "period_end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := h.service.GenerateInvoice(r.Context(), req.TenantID, start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := map[string]any{
		"invoice_id":   inv.ID,
		"status":       inv.Status,
		"total_amount": inv.TotalAmount,
		"currency":     inv.Currency,
		"due_date":     inv.DueDate.Format(dateLayout),
		"item_count":   len(inv.Items),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
	h.logAudit(r, inv.ID, audit.ActionInvoiceGenerate, map[string]any{
		"tenant_id":    req.TenantID,
		"period_start": req.PeriodStart,
		"period_end":   req.PeriodEnd,
	})
}

func (h *InvoiceHandler) handleBatch(w http.ResponseWriter, r *http.Request) {
	if h.batch == nil {
		http.Error(w, "batch runner unavailable", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		TenantIDs   []string `json:"tenant_ids"`
		PeriodStart string   `json:"period_start"`
		PeriodEnd   string   `json:"period_end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.TenantIDs) == 0 {
		http.Error(w, "tenant_ids is required", http.StatusBadRequest)
		return
	}
	start, err := parseDate(req.PeriodStart, "period_start")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseDate(req.PeriodEnd, "period_end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.batch.Run(r.Context(), req.TenantIDs, start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	failed := make([]map[string]string, 0, len(report.Failed))
	for _, failure := range report.Failed {
		failed = append(failed, map[string]string{
			"tenant_id": failure.TenantID,
			"error":     failure.Err.Error(),
		})
	}
	resp := map[string]any{
		"generated": report.Generated,
		"chunks":    report.Chunks,
		"failed":    failed,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
	h.logAudit(r, "", audit.ActionBatchRun, map[string]any{
		"tenant_count": len(req.TenantIDs),
		"generated":    report.Generated,
		"failed":       len(report.Failed),
		"period_start": req.PeriodStart,
		"period_end":   req.PeriodEnd,
	})
}

func (h *InvoiceHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID != "" {
		if err := ensureInvoiceTenant(r, h.invoiceChecker, tenantID, id); err != nil {
			respondTenantError(w, err)
			return
		}
	}
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "finalize":
			if r.Method == http.MethodPost {
				h.handleFinalize(w, r, id)
				return
			}
		case "export.pdf":
			if r.Method == http.MethodGet {
				h.handleExportPDF(w, r, id)
				return
			}
		case "export.xlsx":
			if r.Method == http.MethodGet {
				h.handleExportXLSX(w, r, id)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *InvoiceHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := h.invoices.FindByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(invoiceResponse(inv))
}

func (h *InvoiceHandler) handleFinalize(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := h.service.FinalizeInvoice(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := map[string]any{
		"invoice_id":   inv.ID,
		"status":       inv.Status,
		"total_amount": inv.TotalAmount,
		"finalized_at": inv.FinalizedAt.Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
	h.logAudit(r, inv.ID, audit.ActionInvoiceFinalize, map[string]any{
		"status": inv.Status,
	})
}

func (h *InvoiceHandler) handleExportPDF(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveInvoiceExport("pdf", result, time.Since(start))
	}()

	inv, err := h.invoices.FindByID(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildInvoicePDF(inv)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export pdf error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, inv.ID, audit.ActionInvoiceExport, map[string]any{"format": "pdf"})
}

func (h *InvoiceHandler) handleExportXLSX(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveInvoiceExport("xlsx", result, time.Since(start))
	}()

	inv, err := h.invoices.FindByID(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	data, err := BuildInvoiceXLSX(inv)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, inv.ID, audit.ActionInvoiceExport, map[string]any{"format": "xlsx"})
}

func invoiceResponse(inv *billing.Invoice) map[string]any {
	items := make([]map[string]any, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, map[string]any{
			"id":          item.ID,
			"description": item.Description,
			"quantity":    item.Quantity,
			"unit":        item.Unit,
			"unit_price":  item.UnitPrice,
			"total":       item.Total,
			"snapshot":    item.Snapshot,
		})
	}
	resp := map[string]any{
		"invoice_id":   inv.ID,
		"tenant_id":    inv.TenantID,
		"period_start": inv.PeriodStart.Format(dateLayout),
		"period_end":   inv.PeriodEnd.Format(dateLayout),
		"due_date":     inv.DueDate.Format(dateLayout),
		"total_amount": inv.TotalAmount,
		"currency":     inv.Currency,
		"status":       inv.Status,
		"created_at":   inv.CreatedAt.Format(time.RFC3339),
		"items":        items,
	}
	if !inv.FinalizedAt.IsZero() {
		resp["finalized_at"] = inv.FinalizedAt.Format(time.RFC3339)
	}
	return resp
}

func (h *InvoiceHandler) logAudit(r *http.Request, invoiceID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		ID:           audit.NewID(),
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "invoice",
		ResourceID:   invoiceID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func ensureInvoiceTenant(r *http.Request, checker auth.InvoiceTenantChecker, tenantID, invoiceID string) error {
	if checker == nil || tenantID == "" || invoiceID == "" {
		return nil
	}
	return checker.EnsureInvoiceTenant(r.Context(), tenantID, invoiceID)
}

func parseDate(value, key string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be formatted as 2006-01-02")
	}
	return parsed.UTC(), nil
}

func respondTenantError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, auth.ErrTenantMismatch) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if errors.Is(err, auth.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "tenant check failed", http.StatusInternalServerError)
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, billing.ErrInvoiceNotFound) || errors.Is(err, billing.ErrTenantNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, billing.ErrInvoiceImmutable) {
		http.Error(w, "invoice is immutable", http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}
