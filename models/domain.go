package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Building represents a physical apartment building (permanent)
type Building struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	Address    string          `json:"address" db:"address"`
	PostalCode string          `json:"postal_code" db:"postal_code"`
	City       string          `json:"city" db:"city"`
	State      string          `json:"state" db:"state"`
	Website    string          `json:"website" db:"website"`
	Amenities  json.RawMessage `json:"amenities" db:"amenities"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// BuildingInfo is the per-source building metadata used to resolve or
// create the owning building
type BuildingInfo struct {
	Name       string `yaml:"name"`
	Address    string `yaml:"address"`
	PostalCode string `yaml:"postal_code"`
	City       string `yaml:"city"`
	State      string `yaml:"state"`
	Website    string `yaml:"website"`
}

// Apartment represents one rentable unit within a building. Unit numbers
// are unique within a building.
type Apartment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	BuildingID    uuid.UUID       `json:"building_id" db:"building_id"`
	UnitNumber    string          `json:"unit_number" db:"unit_number"`
	Floor         int             `json:"floor" db:"floor"`
	Bedrooms      float64         `json:"bedrooms" db:"bedrooms"`   // 0 for studio, half increments allowed
	Bathrooms     float64         `json:"bathrooms" db:"bathrooms"` // half baths allowed
	AreaSqFt      int             `json:"area_sqft" db:"area_sqft"`
	ApartmentType string          `json:"apartment_type" db:"apartment_type"` // "Studio", "1B1B", "2B2B"
	Status        string          `json:"status" db:"status"`
	Features      json.RawMessage `json:"features" db:"features"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Apartment status
const (
	ApartmentStatusAvailable   = "available"
	ApartmentStatusPending     = "pending"
	ApartmentStatusLeased      = "leased"
	ApartmentStatusUnavailable = "unavailable"
)

// PriceRow is one entry in a unit's append-only price history. Amounts
// are whole cents so the current-price comparison is exact.
type PriceRow struct {
	ID              int64     `json:"id" db:"id"`
	ApartmentID     uuid.UUID `json:"apartment_id" db:"apartment_id"`
	PriceCents      int64     `json:"price_cents" db:"price_cents"`
	StartDate       time.Time `json:"start_date" db:"start_date"`
	LeaseTermMonths int       `json:"lease_term_months" db:"lease_term_months"`
	IsSpecialOffer  bool      `json:"is_special_offer" db:"is_special_offer"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// PriceChange records a detected price movement for a unit
type PriceChange struct {
	ID            int64     `json:"id" db:"id"`
	ApartmentID   uuid.UUID `json:"apartment_id" db:"apartment_id"`
	OldPriceCents int64     `json:"old_price_cents" db:"old_price_cents"`
	NewPriceCents int64     `json:"new_price_cents" db:"new_price_cents"`
	DetectedAt    time.Time `json:"detected_at" db:"detected_at"`
	RunID         int64     `json:"run_id" db:"run_id"`
}

// Source is one external listing page/site being scraped
type Source struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	BaseURL   string    `json:"base_url" db:"base_url"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
