package application

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	tariff "utility-billing/internal/tariff/domain"
)

type stubLister struct {
	tariffs []tariff.Tariff
	err     error
	calls   int
}

func (s *stubLister) ListByProvider(_ context.Context, _ string) ([]tariff.Tariff, error) {
	s.calls++
	return s.tariffs, s.err
}

type mapCache struct {
	entries map[string]*tariff.Tariff
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]*tariff.Tariff{}} }

func (c *mapCache) Get(key string) (*tariff.Tariff, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Put(key string, value *tariff.Tariff) { c.entries[key] = value }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustResolver(t *testing.T, lister TariffLister, cache Cache) *Resolver {
	t.Helper()
	r, err := NewResolver(lister, cache, nil, log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestResolve_PicksLatestActivation(t *testing.T) {
	lister := &stubLister{tariffs: []tariff.Tariff{
		{ID: "t-2023", ProviderID: "p1", ActiveFrom: day(2023, time.January, 1)},
		{ID: "t-2024", ProviderID: "p1", ActiveFrom: day(2024, time.January, 1)},
	}}
	r := mustResolver(t, lister, nil)

	got, err := r.Resolve(context.Background(), "p1", day(2024, time.June, 15))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != "t-2024" {
		t.Fatalf("expected t-2024, got %s", got.ID)
	}
}

func TestResolve_DateBeforeOnlyTariff(t *testing.T) {
	lister := &stubLister{tariffs: []tariff.Tariff{
		{ID: "t-2024", ProviderID: "p1", ActiveFrom: day(2024, time.January, 1)},
	}}
	r := mustResolver(t, lister, nil)

	_, err := r.Resolve(context.Background(), "p1", day(2023, time.June, 15))
	if !errors.Is(err, tariff.ErrTariffNotFound) {
		t.Fatalf("expected ErrTariffNotFound, got %v", err)
	}
}

func TestResolve_ExpiredWindow(t *testing.T) {
	lister := &stubLister{tariffs: []tariff.Tariff{
		{
			ID:          "t-old",
			ProviderID:  "p1",
			ActiveFrom:  day(2022, time.January, 1),
			ActiveUntil: day(2022, time.December, 31),
		},
	}}
	r := mustResolver(t, lister, nil)

	_, err := r.Resolve(context.Background(), "p1", day(2024, time.June, 15))
	if !errors.Is(err, tariff.ErrTariffNotFound) {
		t.Fatalf("expected ErrTariffNotFound, got %v", err)
	}
}

func TestResolve_CachesPerProviderAndDate(t *testing.T) {
	lister := &stubLister{tariffs: []tariff.Tariff{
		{ID: "t1", ProviderID: "p1", ActiveFrom: day(2024, time.January, 1)},
	}}
	r := mustResolver(t, lister, newMapCache())

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(context.Background(), "p1", day(2024, time.June, 15)); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if lister.calls != 1 {
		t.Fatalf("expected one repository call, got %d", lister.calls)
	}

	// A different date misses the cache.
	if _, err := r.Resolve(context.Background(), "p1", day(2024, time.June, 16)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if lister.calls != 2 {
		t.Fatalf("expected two repository calls, got %d", lister.calls)
	}
}

func TestResolve_RepositoryError(t *testing.T) {
	wantErr := errors.New("storage down")
	r := mustResolver(t, &stubLister{err: wantErr}, nil)

	_, err := r.Resolve(context.Background(), "p1", day(2024, time.June, 15))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestResolve_EmptyProviderID(t *testing.T) {
	r := mustResolver(t, &stubLister{}, nil)
	if _, err := r.Resolve(context.Background(), "", day(2024, time.June, 15)); !errors.Is(err, tariff.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestCalculateCost_FlatRate(t *testing.T) {
	r := mustResolver(t, &stubLister{}, nil)
	tr := &tariff.Tariff{Configuration: tariff.Configuration{Type: tariff.TypeFlatRate, Rate: 0.15}}

	got := r.CalculateCost(tr, 100, day(2024, time.June, 15))
	if got != 15.0 {
		t.Fatalf("expected 15.0, got %v", got)
	}
}

func TestCalculateCost_LegacyFlatTag(t *testing.T) {
	r := mustResolver(t, &stubLister{}, nil)
	tr := &tariff.Tariff{Configuration: tariff.Configuration{Type: tariff.TypeFlat, Rate: 0.15}}

	if got := r.CalculateCost(tr, 100, day(2024, time.June, 15)); got != 15.0 {
		t.Fatalf("expected 15.0, got %v", got)
	}
}

func TestCalculateCost_TimeOfUse(t *testing.T) {
	r := mustResolver(t, &stubLister{}, nil)
	tr := &tariff.Tariff{Configuration: tariff.Configuration{
		Type: tariff.TypeTimeOfUse,
		Zones: []tariff.ZoneRate{
			{ID: "day", Start: "07:00", End: "23:00", Rate: 0.20},
			{ID: "night", Start: "23:00", End: "07:00", Rate: 0.10},
		},
	}}

	afternoon := time.Date(2024, time.June, 15, 14, 0, 0, 0, time.UTC)
	if got := r.CalculateCost(tr, 100, afternoon); got != 20.0 {
		t.Fatalf("afternoon: expected 20.0, got %v", got)
	}

	smallHours := time.Date(2024, time.June, 15, 2, 30, 0, 0, time.UTC)
	if got := r.CalculateCost(tr, 100, smallHours); got != 10.0 {
		t.Fatalf("small hours: expected 10.0, got %v", got)
	}
}

func TestCalculateCost_UnsupportedTypeLogsAndReturnsZero(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewResolver(&stubLister{}, nil, nil, log.New(&buf, "", 0))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	tr := &tariff.Tariff{ID: "t1", Configuration: tariff.Configuration{Type: "progressive"}}

	if got := r.CalculateCost(tr, 100, day(2024, time.June, 15)); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if !strings.Contains(buf.String(), "progressive") {
		t.Fatalf("expected a warning naming the type, got %q", buf.String())
	}
}

func TestNewResolver_NilRepository(t *testing.T) {
	if _, err := NewResolver(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}

type countingResolverMetrics struct {
	results map[string]int
}

func (m *countingResolverMetrics) IncTariffResolve(result string) {
	if m.results == nil {
		m.results = map[string]int{}
	}
	m.results[result]++
}

func TestResolve_CountsOutcomes(t *testing.T) {
	lister := &stubLister{tariffs: []tariff.Tariff{
		{ID: "t-1", ProviderID: "p1", ActiveFrom: day(2024, time.January, 1)},
	}}
	recorder := &countingResolverMetrics{}
	r, err := NewResolver(lister, newMapCache(), nil, log.New(&bytes.Buffer{}, "", 0),
		WithResolverMetrics(recorder))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	// First resolve hits storage, second the cache; both count as success.
	for i := 0; i < 2; i++ {
		if _, err := r.Resolve(context.Background(), "p1", day(2024, time.June, 15)); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if _, err := r.Resolve(context.Background(), "p1", day(2023, time.June, 15)); !errors.Is(err, tariff.ErrTariffNotFound) {
		t.Fatalf("expected ErrTariffNotFound, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), "", day(2024, time.June, 15)); !errors.Is(err, tariff.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}

	if recorder.results["success"] != 2 {
		t.Fatalf("expected 2 successes, got %d", recorder.results["success"])
	}
	if recorder.results["not_found"] != 1 {
		t.Fatalf("expected 1 not_found, got %d", recorder.results["not_found"])
	}
	if recorder.results["error"] != 1 {
		t.Fatalf("expected 1 error, got %d", recorder.results["error"])
	}
}
