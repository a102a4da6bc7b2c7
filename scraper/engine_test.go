package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/models"
)

type stubFetcher struct {
	body string
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.body, f.err
}

type recordingArchiver struct {
	sourceName string
	url        string
	body       string
	err        error
}

func (a *recordingArchiver) Archive(ctx context.Context, sourceName, url, body string) error {
	a.sourceName = sourceName
	a.url = url
	a.body = body
	return a.err
}

func engineConfig(t *testing.T) *config.SourceConfig {
	t.Helper()
	src := selectorConfig()
	src.BuildingInfo = models.BuildingInfo{Name: "The Eugene"}
	src.Transformers = map[string]string{
		"availability_date": "transform_date",
	}
	if err := src.Validate(); err != nil {
		t.Fatalf("config validation failed: %v", err)
	}
	return src
}

func TestEngineScrape_SelectorPage(t *testing.T) {
	cfg := engineConfig(t)
	fetcher := &stubFetcher{body: loadFixture(t, "selector_page.html")}
	engine := NewEngine(cfg, fetcher)

	units, err := engine.Scrape(context.Background(), nil)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}

	first := units[0]
	if first.UnitNumber != "12A" {
		t.Fatalf("unexpected unit number %q", first.UnitNumber)
	}
	if first.Floor != 12 {
		t.Fatalf("expected floor 12, got %d", first.Floor)
	}
	if first.Bedrooms != 2 || first.Bathrooms != 2 {
		t.Fatalf("expected 2/2 bed/bath, got %v/%v", first.Bedrooms, first.Bathrooms)
	}
	if first.PriceCents != 545000 {
		t.Fatalf("expected 545000 cents, got %d", first.PriceCents)
	}
	if first.AreaSqFt != 1025 {
		t.Fatalf("expected 1025 sqft, got %d", first.AreaSqFt)
	}
	if first.ApartmentType != "2B2B" {
		t.Fatalf("expected 2B2B, got %q", first.ApartmentType)
	}
	if first.LeaseTermMonths != 12 {
		t.Fatalf("expected default 12 month lease, got %d", first.LeaseTermMonths)
	}
	if first.AvailabilityDate == nil {
		t.Fatalf("expected availability date")
	}
	want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	if !first.AvailabilityDate.Equal(want) {
		t.Fatalf("expected %v, got %v", want, first.AvailabilityDate)
	}
	if !first.Features["dishwasher"] || !first.Features["balcony"] {
		t.Fatalf("unexpected features %v", first.Features)
	}

	studio := units[1]
	if studio.UnitNumber != "3F" {
		t.Fatalf("unexpected unit number %q", studio.UnitNumber)
	}
	if studio.Floor != 3 {
		t.Fatalf("expected floor 3, got %d", studio.Floor)
	}
	if studio.Bedrooms != 0 {
		t.Fatalf("expected studio bedrooms 0, got %v", studio.Bedrooms)
	}
	if studio.Bathrooms != 1 {
		t.Fatalf("expected fallback bathroom 1, got %v", studio.Bathrooms)
	}
	if studio.ApartmentType != "Studio" {
		t.Fatalf("expected Studio, got %q", studio.ApartmentType)
	}
	if studio.AvailabilityDate != nil {
		t.Fatalf("expected no availability date, got %v", studio.AvailabilityDate)
	}
}

func TestEngineScrape_FetchError(t *testing.T) {
	cfg := engineConfig(t)
	engine := NewEngine(cfg, &stubFetcher{err: &FetchError{URL: cfg.URL, Reason: "request failed"}})

	if _, err := engine.Scrape(context.Background(), nil); err == nil {
		t.Fatalf("expected fetch error to propagate")
	}
}

func TestEngineScrape_ArchiverBestEffort(t *testing.T) {
	cfg := engineConfig(t)
	fetcher := &stubFetcher{body: loadFixture(t, "selector_page.html")}
	engine := NewEngine(cfg, fetcher)

	archiver := &recordingArchiver{err: errors.New("bucket offline")}

	units, err := engine.Scrape(context.Background(), archiver)
	if err != nil {
		t.Fatalf("archiver failure must not fail the scrape: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if archiver.sourceName != cfg.Name {
		t.Fatalf("expected archive call for %q, got %q", cfg.Name, archiver.sourceName)
	}
	if archiver.body == "" {
		t.Fatalf("expected archived body")
	}
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	cfg := engineConfig(t)
	engine := NewEngine(cfg, &stubFetcher{})

	raw := models.RawUnit{
		"unit_number": "Residence 9C",
		"bedrooms":    "1 Bedroom",
		"bathrooms":   "1 Bathroom",
		// price missing
	}
	_, err := engine.Normalize(raw)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != "price" {
		t.Fatalf("expected missing price, got %v", verr.Missing)
	}
}

func TestNormalize_DropsBadUnitsKeepsGood(t *testing.T) {
	cfg := engineConfig(t)
	body := `<div class="unit-card">
		<span class="unit-card__name">Residence 5D</span>
		<span class="unit-card__type">1 Bedroom | 1 Bathroom</span>
	</div>
	<div class="unit-card">
		<span class="unit-card__name">Residence 6E</span>
		<span class="unit-card__type">1 Bedroom | 1 Bathroom</span>
		<span class="unit-card__price">$4,000</span>
	</div>`
	engine := NewEngine(cfg, &stubFetcher{body: body})

	units, err := engine.Scrape(context.Background(), nil)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 surviving unit, got %d", len(units))
	}
	if units[0].UnitNumber != "6E" {
		t.Fatalf("expected unit 6E, got %q", units[0].UnitNumber)
	}
}
