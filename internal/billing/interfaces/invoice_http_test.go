package interfaces

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"utility-billing/internal/auth"
	"utility-billing/internal/billing/application"
	billing "utility-billing/internal/billing/domain"
	billingmem "utility-billing/internal/billing/infrastructure/memory"
	tariffapp "utility-billing/internal/tariff/application"
	tariff "utility-billing/internal/tariff/domain"
	tariffmem "utility-billing/internal/tariff/infrastructure/memory"
)

type seqIDs struct {
	next int
}

func (g *seqIDs) NewID() string {
	g.next++
	return fmt.Sprintf("id-%04d", g.next)
}

type handlerFixture struct {
	tenants  *billingmem.TenantRepository
	meters   *billingmem.MeterRepository
	readings *billingmem.ReadingRepository
	invoices *billingmem.InvoiceRepository
	tariffs  *tariffmem.TariffRepository
	handler  *InvoiceHandler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	tenants := billingmem.NewTenantRepository()
	meters := billingmem.NewMeterRepository()
	readings := billingmem.NewReadingRepository()
	invoices := billingmem.NewInvoiceRepository()
	tariffs := tariffmem.NewTariffRepository()

	logger := log.New(io.Discard, "", 0)
	resolver, err := tariffapp.NewResolver(tariffs, nil, nil, logger)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	config := application.Config{
		Currency:       "EUR",
		DueDays:        14,
		BatchChunkSize: 2,
		Water:          application.WaterRates{SupplyRate: 0.97, SewageRate: 1.23, FixedFee: 0.85},
	}
	service, err := application.NewBillingService(
		tenants, meters, readings, invoices, tariffs, resolver, &seqIDs{}, config,
		application.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new billing service: %v", err)
	}
	batch, err := application.NewBatchRunner(service, 2, logger)
	if err != nil {
		t.Fatalf("new batch runner: %v", err)
	}
	handler, err := NewInvoiceHandler(service, batch, invoices, auth.NewInvoiceChecker(invoices), nil)
	if err != nil {
		t.Fatalf("new invoice handler: %v", err)
	}
	return &handlerFixture{
		tenants:  tenants,
		meters:   meters,
		readings: readings,
		invoices: invoices,
		tariffs:  tariffs,
		handler:  handler,
	}
}

func (f *handlerFixture) seedElectricity(t *testing.T, tenantID string) {
	t.Helper()
	f.tenants.Add(billing.Tenant{ID: tenantID, PropertyID: "prop-" + tenantID})
	f.meters.Add(billing.Meter{
		ID:         "meter-" + tenantID,
		PropertyID: "prop-" + tenantID,
		Type:       billing.MeterElectricity,
	})
	f.readings.Add(billing.MeterReading{
		ID:          "r1-" + tenantID,
		MeterID:     "meter-" + tenantID,
		Value:       100,
		ReadingDate: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	f.readings.Add(billing.MeterReading{
		ID:          "r2-" + tenantID,
		MeterID:     "meter-" + tenantID,
		Value:       150,
		ReadingDate: time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
	})
	f.tariffs.AddProvider(tariff.Provider{ID: "prov-el", Name: "Grid Co", ServiceType: tariff.ServiceElectricity})
	f.tariffs.AddTariff(tariff.Tariff{
		ID:            "tarif-flat",
		ProviderID:    "prov-el",
		Name:          "Standard Flat",
		Configuration: tariff.Configuration{Type: "flat_rate", Rate: 2.0},
		ActiveFrom:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
}

func identityRequest(method, target, tenantID string, role auth.Role, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if tenantID != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), tenantID, role, "user-1"))
	}
	return req
}

func TestInvoiceHandler_GenerateAndGet(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedElectricity(t, "tenant-a")

	req := identityRequest(http.MethodPost, "/api/v1/invoices/generate", "tenant-a", auth.RoleOperator, map[string]any{
		"tenant_id":    "tenant-a",
		"period_start": "2024-06-01",
		"period_end":   "2024-06-30",
	})
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		InvoiceID   string  `json:"invoice_id"`
		Status      string  `json:"status"`
		TotalAmount float64 `json:"total_amount"`
		ItemCount   int     `json:"item_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != billing.StatusDraft {
		t.Fatalf("expected draft invoice, got %q", resp.Status)
	}
	if resp.TotalAmount != 100.0 {
		t.Fatalf("expected total 100.0, got %v", resp.TotalAmount)
	}
	if resp.ItemCount != 1 {
		t.Fatalf("expected one item, got %d", resp.ItemCount)
	}

	getReq := identityRequest(http.MethodGet, "/api/v1/invoices/"+resp.InvoiceID, "tenant-a", auth.RoleViewer, nil)
	getRec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", getRec.Code)
	}
	if !strings.Contains(getRec.Body.String(), `"tenant_id":"tenant-a"`) {
		t.Fatalf("expected tenant in response, got %s", getRec.Body.String())
	}
}

func TestInvoiceHandler_GenerateRejectsForeignTenant(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedElectricity(t, "tenant-a")

	req := identityRequest(http.MethodPost, "/api/v1/invoices/generate", "tenant-b", auth.RoleOperator, map[string]any{
		"tenant_id":    "tenant-a",
		"period_start": "2024-06-01",
		"period_end":   "2024-06-30",
	})
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestInvoiceHandler_GenerateInvalidPeriod(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedElectricity(t, "tenant-a")

	req := identityRequest(http.MethodPost, "/api/v1/invoices/generate", "tenant-a", auth.RoleOperator, map[string]any{
		"tenant_id":    "tenant-a",
		"period_start": "2024-06-30",
		"period_end":   "2024-06-01",
	})
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInvoiceHandler_GetUnknownInvoice(t *testing.T) {
	fixture := newHandlerFixture(t)

	req := identityRequest(http.MethodGet, "/api/v1/invoices/missing", "", auth.RoleViewer, nil)
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInvoiceHandler_TenantIsolation(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedElectricity(t, "tenant-a")
	invoiceID := generateInvoice(t, fixture, "tenant-a")

	req := identityRequest(http.MethodGet, "/api/v1/invoices/"+invoiceID, "tenant-b", auth.RoleViewer, nil)
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign tenant, got %d", rec.Code)
	}
}

func TestInvoiceHandler_FinalizeThenConflict(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedElectricity(t, "tenant-a")
	invoiceID := generateInvoice(t, fixture, "tenant-a")

	req := identityRequest(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/finalize", "tenant-a", auth.RoleOperator, nil)
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), billing.StatusFinalized) {
		t.Fatalf("expected finalized status, got %s", rec.Body.String())
	}

	again := identityRequest(http.MethodPost, "/api/v1/invoices/"+invoiceID+"/finalize", "tenant-a", auth.RoleOperator, nil)
	againRec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(againRec, again)
	if againRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double finalize, got %d", againRec.Code)
	}
}

func TestInvoiceHandler_ExportPDFAndXLSX(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedElectricity(t, "tenant-a")
	invoiceID := generateInvoice(t, fixture, "tenant-a")

	pdfReq := identityRequest(http.MethodGet, "/api/v1/invoices/"+invoiceID+"/export.pdf", "tenant-a", auth.RoleAdmin, nil)
	pdfRec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(pdfRec, pdfReq)
	if pdfRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", pdfRec.Code)
	}
	if got := pdfRec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected pdf content type, got %q", got)
	}
	if pdfRec.Body.Len() == 0 {
		t.Fatal("expected pdf bytes")
	}

	xlsxReq := identityRequest(http.MethodGet, "/api/v1/invoices/"+invoiceID+"/export.xlsx", "tenant-a", auth.RoleAdmin, nil)
	xlsxRec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(xlsxRec, xlsxReq)
	if xlsxRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", xlsxRec.Code)
	}
	if xlsxRec.Body.Len() == 0 {
		t.Fatal("expected xlsx bytes")
	}
}

func TestInvoiceHandler_Batch(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedElectricity(t, "tenant-a")
	fixture.seedElectricity(t, "tenant-b")
	// tenant-bad exists but has no meters, so generation fails for it.
	fixture.tenants.Add(billing.Tenant{ID: "tenant-bad", PropertyID: "prop-bad"})

	req := identityRequest(http.MethodPost, "/api/v1/invoices/batch", "", auth.RoleAdmin, map[string]any{
		"tenant_ids":   []string{"tenant-a", "tenant-b", "tenant-bad"},
		"period_start": "2024-06-01",
		"period_end":   "2024-06-30",
	})
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Generated int `json:"generated"`
		Chunks    int `json:"chunks"`
		Failed    []struct {
			TenantID string `json:"tenant_id"`
		} `json:"failed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Generated != 2 {
		t.Fatalf("expected 2 generated, got %d", resp.Generated)
	}
	if len(resp.Failed) != 1 || resp.Failed[0].TenantID != "tenant-bad" {
		t.Fatalf("expected tenant-bad failure, got %+v", resp.Failed)
	}
	if resp.Chunks != 2 {
		t.Fatalf("expected 2 chunks, got %d", resp.Chunks)
	}
}

func TestInvoiceHandler_BatchRequiresTenants(t *testing.T) {
	fixture := newHandlerFixture(t)

	req := identityRequest(http.MethodPost, "/api/v1/invoices/batch", "", auth.RoleAdmin, map[string]any{
		"tenant_ids":   []string{},
		"period_start": "2024-06-01",
		"period_end":   "2024-06-30",
	})
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func generateInvoice(t *testing.T, fixture *handlerFixture, tenantID string) string {
	t.Helper()
	req := identityRequest(http.MethodPost, "/api/v1/invoices/generate", tenantID, auth.RoleOperator, map[string]any{
		"tenant_id":    tenantID,
		"period_start": "2024-06-01",
		"period_end":   "2024-06-30",
	})
	rec := httptest.NewRecorder()
	fixture.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate invoice: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		InvoiceID string `json:"invoice_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.InvoiceID
}
