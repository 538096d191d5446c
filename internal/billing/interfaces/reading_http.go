package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"utility-billing/internal/billing/application"
	billing "utility-billing/internal/billing/domain"
)

// ReadingInserter persists ingested meter readings.
type ReadingInserter interface {
	InsertReading(ctx context.Context, reading billing.MeterReading) error
}

// ReadingHandler ingests meter readings. Signature verification happens in
// middleware before the request reaches this handler.
type ReadingHandler struct {
	readings ReadingInserter
	ids      application.IDGenerator
}

// NewReadingHandler constructs a handler.
func NewReadingHandler(readings ReadingInserter, ids application.IDGenerator) (*ReadingHandler, error) {
	if readings == nil {
		return nil, errors.New("reading handler: nil reading store")
	}
	if ids == nil {
		return nil, errors.New("reading handler: nil id generator")
	}
	return &ReadingHandler{readings: readings, ids: ids}, nil
}

// ServeHTTP handles POST /api/v1/readings.
func (h *ReadingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		MeterID     string  `json:"meter_id"`
		Zone        string  `json:"zone"`
		Value       float64 `json:"value"`
		ReadingDate string  `json:"reading_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.MeterID == "" {
		http.Error(w, "meter_id is required", http.StatusBadRequest)
		return
	}
	if req.Value < 0 {
		http.Error(w, "value must not be negative", http.StatusBadRequest)
		return
	}
	readingDate, err := parseReadingDate(req.ReadingDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reading := billing.MeterReading{
		ID:          h.ids.NewID(),
		MeterID:     req.MeterID,
		Zone:        req.Zone,
		Value:       req.Value,
		ReadingDate: readingDate,
	}
	if err := h.readings.InsertReading(r.Context(), reading); err != nil {
		http.Error(w, "store reading error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"reading_id":   reading.ID,
		"meter_id":     reading.MeterID,
		"reading_date": reading.ReadingDate.Format(dateLayout),
	})
}

func parseReadingDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("reading_date is required")
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New("reading_date must be RFC3339 or 2006-01-02")
	}
	return parsed.UTC(), nil
}
