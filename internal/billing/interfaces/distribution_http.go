package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"utility-billing/internal/audit"
	"utility-billing/internal/auth"
	"utility-billing/internal/distribution"
	"utility-billing/internal/observability/metrics"
)

// DistributionHandler previews shared service cost splits without
// persisting anything.
type DistributionHandler struct {
	distributor *distribution.Distributor
	auditLogger audit.Logger
}

// NewDistributionHandler constructs a handler.
func NewDistributionHandler(distributor *distribution.Distributor, auditLogger audit.Logger) (*DistributionHandler, error) {
	if distributor == nil {
		return nil, errors.New("distribution handler: nil distributor")
	}
	return &DistributionHandler{distributor: distributor, auditLogger: auditLogger}, nil
}

// ServeHTTP handles POST /api/v1/distributions/preview.
func (h *DistributionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/distributions/preview" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Service struct {
			Name     string `json:"name"`
			Method   string `json:"method"`
			Formula  string `json:"formula"`
			AreaType string `json:"area_type"`
		} `json:"service"`
		Properties []struct {
			ID                    string  `json:"id"`
			AreaSqm               float64 `json:"area_sqm"`
			HistoricalConsumption float64 `json:"historical_consumption"`
		} `json:"properties"`
		TotalCost   float64 `json:"total_cost"`
		PeriodLabel string  `json:"period_label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	config := distribution.ServiceConfiguration{
		Name:     req.Service.Name,
		Method:   distribution.Method(req.Service.Method),
		Formula:  req.Service.Formula,
		AreaType: req.Service.AreaType,
	}
	properties := make([]distribution.Property, 0, len(req.Properties))
	for _, property := range req.Properties {
		properties = append(properties, distribution.Property{
			ID:                    property.ID,
			AreaSqm:               property.AreaSqm,
			HistoricalConsumption: property.HistoricalConsumption,
		})
	}

	result, err := h.distributor.Distribute(config, properties, req.TotalCost, req.PeriodLabel)
	if err != nil {
		metrics.IncDistribution(string(config.Method), metrics.ResultError)
		var validation *distribution.ValidationError
		if errors.As(err, &validation) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": validation.Problems})
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.IncDistribution(string(config.Method), metrics.ResultSuccess)
	if reason := result.FallbackReason(); reason != "" {
		metrics.IncDistributionFallback(reason)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"shares":     result.Shares,
		"total_cost": result.TotalCost,
		"metadata":   result.Metadata,
	})
	h.logAudit(r, req.Service.Name, map[string]any{
		"method":         req.Service.Method,
		"total_cost":     req.TotalCost,
		"property_count": len(req.Properties),
	})
}

func (h *DistributionHandler) logAudit(r *http.Request, serviceName string, meta map[string]any) {
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
		Action:       audit.ActionDistributionPreview,
		ResourceType: "shared_service",
		ResourceID:   serviceName,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
