package scraper

import (
	"context"
	"log"
	"time"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/models"
	"github.com/EV9H/renter-x-backend/transform"
)

// requiredFields must be present and non-empty on a raw record before it
// is allowed anywhere near storage.
var requiredFields = []string{"unit_number", "bedrooms", "bathrooms", "price"}

// Archiver receives the raw body of every successful fetch. Archiving is
// best-effort; failures are logged and never fail a scrape.
type Archiver interface {
	Archive(ctx context.Context, sourceName, url, body string) error
}

// Engine runs the extraction pipeline for one configured source:
// fetch, parse, per-field transform, required-field validation. An
// Engine holds no per-run state, so overlapping runs may share one.
type Engine struct {
	cfg     *config.SourceConfig
	fetcher Fetcher
}

func NewEngine(cfg *config.SourceConfig, fetcher Fetcher) *Engine {
	return &Engine{cfg: cfg, fetcher: fetcher}
}

// Scrape produces the normalized unit list for the source. Fetch and
// whole-page parse failures are returned to the caller; individual bad
// units are dropped and logged. A nil archiver disables page archiving.
func (e *Engine) Scrape(ctx context.Context, archiver Archiver) ([]models.ScrapedUnit, error) {
	body, err := e.fetcher.Fetch(ctx, e.cfg.URL)
	if err != nil {
		return nil, err
	}

	if archiver != nil {
		if err := archiver.Archive(ctx, e.cfg.Name, e.cfg.URL, body); err != nil {
			log.Printf("[%s] Warning: snapshot archive failed: %v", e.cfg.Name, err)
		}
	}

	rawUnits, err := ParseUnits(body, e.cfg)
	if err != nil {
		return nil, err
	}

	var units []models.ScrapedUnit
	for _, raw := range rawUnits {
		unit, err := e.Normalize(raw)
		if err != nil {
			log.Printf("[%s] Warning: dropping unit: %v", e.cfg.Name, err)
			continue
		}
		units = append(units, *unit)
	}

	log.Printf("[%s] Normalized %d/%d units", e.cfg.Name, len(units), len(rawUnits))
	return units, nil
}

// Normalize applies the configured transformer to each raw field and
// assembles a typed unit. Records missing any required raw field are
// rejected with a ValidationError.
func (e *Engine) Normalize(raw models.RawUnit) (*models.ScrapedUnit, error) {
	var missing []string
	for _, field := range requiredFields {
		if raw[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{UnitNumber: raw["unit_number"], Missing: missing}
	}

	unit := &models.ScrapedUnit{LeaseTermMonths: 12}

	for field, kind := range e.cfg.TransformerKinds {
		rawVal, ok := raw[field]
		if !ok {
			continue
		}
		e.assign(unit, field, transform.Apply(kind, rawVal))
	}

	if unit.UnitNumber == "" {
		unit.UnitNumber = transform.UnitNumber(raw["unit_number"])
	}
	if rawFeatures, ok := raw["features"]; ok && len(unit.Features) == 0 {
		unit.Features = transform.Features(rawFeatures)
	}

	unit.Floor = transform.FloorFromUnitNumber(unit.UnitNumber)
	unit.ApartmentType = transform.ApartmentType(unit.Bedrooms)

	return unit, nil
}

func (e *Engine) assign(unit *models.ScrapedUnit, field string, val any) {
	switch field {
	case "unit_number":
		if s, ok := val.(string); ok {
			unit.UnitNumber = s
		}
	case "bedrooms":
		if f, ok := val.(float64); ok {
			unit.Bedrooms = f
		}
	case "bathrooms":
		if f, ok := val.(float64); ok {
			unit.Bathrooms = f
		}
	case "price":
		if c, ok := val.(int64); ok {
			unit.PriceCents = c
		}
	case "area_sqft":
		if n, ok := val.(int); ok {
			unit.AreaSqFt = n
		}
	case "availability_date":
		if t, ok := val.(*time.Time); ok {
			unit.AvailabilityDate = t
		}
	}
}
