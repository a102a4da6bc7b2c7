package models

import (
	"encoding/json"
	"time"
)

// RawUnit is the untyped field map extracted from one listing element.
// Produced by the parser, consumed immediately by the engine.
type RawUnit map[string]string

// ScrapedUnit is a typed, validated unit record ready for reconciliation
type ScrapedUnit struct {
	UnitNumber       string          `json:"unit_number"`
	Floor            int             `json:"floor"`
	Bedrooms         float64         `json:"bedrooms"`
	Bathrooms        float64         `json:"bathrooms"`
	AreaSqFt         int             `json:"area_sqft"`
	PriceCents       int64           `json:"price_cents"`
	ApartmentType    string          `json:"apartment_type"`
	Features         map[string]bool `json:"features,omitempty"`
	AvailabilityDate *time.Time      `json:"availability_date,omitempty"`
	LeaseTermMonths  int             `json:"lease_term_months"`
}

// FeaturesJSON renders the feature flags for a JSONB column. Nil when
// the unit carries no features.
func (u *ScrapedUnit) FeaturesJSON() (json.RawMessage, error) {
	if len(u.Features) == 0 {
		return nil, nil
	}
	return json.Marshal(u.Features)
}
