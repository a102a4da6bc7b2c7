package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/EV9H/renter-x-backend/models"
)

// UnitWriter holds the per-unit mutations used by reconciliation. The
// same operations are available directly on a Store and inside a
// unit-scoped transaction via WithUnitTx.
type UnitWriter interface {
	// UpsertApartment looks up or creates the apartment row for
	// (building, unit number). Defaults apply only on creation.
	UpsertApartment(ctx context.Context, buildingID uuid.UUID, unitNumber string, defaults *models.ScrapedUnit) (*models.Apartment, bool, error)

	// GetLatestPrice returns the current price row: latest start date,
	// ties broken by latest creation time. Nil when no history exists.
	GetLatestPrice(ctx context.Context, apartmentID uuid.UUID) (*models.PriceRow, error)

	AppendPrice(ctx context.Context, apartmentID uuid.UUID, priceCents int64, startDate time.Time, leaseTermMonths int) (*models.PriceRow, error)

	RecordPriceChange(ctx context.Context, apartmentID uuid.UUID, oldPriceCents, newPriceCents int64, runID int64) error
}

// Store is the persistence contract consumed by the scrape/reconcile
// pipeline. Implemented by PostgresStore; tests use an in-memory fake.
type Store interface {
	UnitWriter

	GetOrCreateSource(ctx context.Context, name, baseURL string) (*models.Source, error)

	CreateScrapingRun(ctx context.Context, run *models.ScrapingRun) error
	UpdateScrapingRun(ctx context.Context, run *models.ScrapingRun) error

	GetOrCreateBuilding(ctx context.Context, info models.BuildingInfo) (*models.Building, error)

	// GetStoredUnitNumbers returns the unit numbers currently known for
	// a building, regardless of status.
	GetStoredUnitNumbers(ctx context.Context, buildingID uuid.UUID) (map[string]struct{}, error)

	// MarkUnavailable transitions the named units to unavailable, but
	// only those currently available. Returns the number transitioned.
	MarkUnavailable(ctx context.Context, buildingID uuid.UUID, unitNumbers []string) (int, error)

	// WithUnitTx runs fn inside a transaction scoped to a single unit's
	// mutations, so one unit's failure cannot corrupt another's state.
	WithUnitTx(ctx context.Context, fn func(UnitWriter) error) error
}
