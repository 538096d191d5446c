package interfaces

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"utility-billing/internal/auth"
	"utility-billing/internal/distribution"
	"utility-billing/internal/formula"
)

func mustDistributionHandler(t *testing.T) *DistributionHandler {
	t.Helper()
	distributor, err := distribution.NewDistributor(formula.NewEvaluator(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new distributor: %v", err)
	}
	handler, err := NewDistributionHandler(distributor, nil)
	if err != nil {
		t.Fatalf("new distribution handler: %v", err)
	}
	return handler
}

func TestDistributionHandler_EqualPreview(t *testing.T) {
	handler := mustDistributionHandler(t)

	req := identityRequest(http.MethodPost, "/api/v1/distributions/preview", "tenant-a", auth.RoleOperator, map[string]any{
		"service": map[string]any{
			"name":   "cleaning",
			"method": "equal",
		},
		"properties": []map[string]any{
			{"id": "p1"},
			{"id": "p2"},
		},
		"total_cost":   100.0,
		"period_label": "2024-06-01 to 2024-06-30",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Shares    map[string]float64 `json:"shares"`
		TotalCost float64            `json:"total_cost"`
		Metadata  map[string]any     `json:"metadata"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Shares["p1"] != 50.0 || resp.Shares["p2"] != 50.0 {
		t.Fatalf("expected equal split, got %v", resp.Shares)
	}
	if resp.Metadata["method"] != "equal" {
		t.Fatalf("expected equal method metadata, got %v", resp.Metadata)
	}
}

func TestDistributionHandler_ValidationProblems(t *testing.T) {
	handler := mustDistributionHandler(t)

	req := identityRequest(http.MethodPost, "/api/v1/distributions/preview", "tenant-a", auth.RoleOperator, map[string]any{
		"service": map[string]any{
			"name":   "heating shared",
			"method": "area",
		},
		"properties": []map[string]any{
			{"id": "p1", "area_sqm": 50.0},
			{"id": "p2"},
		},
		"total_cost": 100.0,
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Errors) != 1 {
		t.Fatalf("expected one problem, got %v", resp.Errors)
	}
}

func TestDistributionHandler_MethodNotAllowed(t *testing.T) {
	handler := mustDistributionHandler(t)

	req := identityRequest(http.MethodGet, "/api/v1/distributions/preview", "tenant-a", auth.RoleOperator, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestDistributionHandler_InvalidJSON(t *testing.T) {
	handler := mustDistributionHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/distributions/preview", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
