package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EV9H/renter-x-backend/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
	unitWriter
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the per-unit
// mutations run identically inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool, unitWriter: unitWriter{q: pool}}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		base_url TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS buildings (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		amenities JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS apartments (
		id UUID PRIMARY KEY,
		building_id UUID NOT NULL REFERENCES buildings(id),
		unit_number TEXT NOT NULL,
		floor INTEGER NOT NULL DEFAULT 1,
		bedrooms DOUBLE PRECISION NOT NULL DEFAULT 0,
		bathrooms DOUBLE PRECISION NOT NULL DEFAULT 1,
		area_sqft INTEGER NOT NULL DEFAULT 0,
		apartment_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'available',
		features JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (building_id, unit_number)
	);

	CREATE TABLE IF NOT EXISTS apartment_prices (
		id BIGSERIAL PRIMARY KEY,
		apartment_id UUID NOT NULL REFERENCES apartments(id),
		price_cents BIGINT NOT NULL,
		start_date DATE NOT NULL,
		lease_term_months INTEGER NOT NULL DEFAULT 12,
		is_special_offer BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS price_changes (
		id BIGSERIAL PRIMARY KEY,
		apartment_id UUID NOT NULL REFERENCES apartments(id),
		old_price_cents BIGINT NOT NULL,
		new_price_cents BIGINT NOT NULL,
		detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		run_id BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scraping_runs (
		id BIGSERIAL PRIMARY KEY,
		source_id BIGINT NOT NULL REFERENCES sources(id),
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		items_processed INTEGER NOT NULL DEFAULT 0,
		items_created INTEGER NOT NULL DEFAULT 0,
		items_updated INTEGER NOT NULL DEFAULT 0,
		items_errored INTEGER NOT NULL DEFAULT 0,
		error_log TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_apartments_building ON apartments(building_id, unit_number);
	CREATE INDEX IF NOT EXISTS idx_prices_apartment ON apartment_prices(apartment_id, start_date DESC, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_price_changes_apartment ON price_changes(apartment_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_runs_source ON scraping_runs(source_id, started_at DESC);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Sources
// =============================================================================

func (s *PostgresStore) GetOrCreateSource(ctx context.Context, name, baseURL string) (*models.Source, error) {
	query := `
		SELECT id, name, base_url, is_active, created_at, updated_at
		FROM sources WHERE name = $1`

	var src models.Source
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&src.ID, &src.Name, &src.BaseURL, &src.IsActive, &src.CreatedAt, &src.UpdatedAt,
	)
	if err == nil {
		return &src, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	insert := `
		INSERT INTO sources (name, base_url)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET base_url = EXCLUDED.base_url, updated_at = NOW()
		RETURNING id, name, base_url, is_active, created_at, updated_at`

	err = s.pool.QueryRow(ctx, insert, name, baseURL).Scan(
		&src.ID, &src.Name, &src.BaseURL, &src.IsActive, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// =============================================================================
// Scraping Runs
// =============================================================================

func (s *PostgresStore) CreateScrapingRun(ctx context.Context, run *models.ScrapingRun) error {
	query := `
		INSERT INTO scraping_runs (source_id, started_at, status, items_processed, items_created, items_updated, items_errored, error_log)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		run.SourceID, run.StartedAt, run.Status, run.ItemsProcessed, run.ItemsCreated, run.ItemsUpdated, run.ItemsErrored, run.ErrorLog,
	).Scan(&run.ID)
}

func (s *PostgresStore) UpdateScrapingRun(ctx context.Context, run *models.ScrapingRun) error {
	query := `
		UPDATE scraping_runs SET
			finished_at = $2, status = $3, items_processed = $4, items_created = $5,
			items_updated = $6, items_errored = $7, error_log = $8
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.FinishedAt, run.Status, run.ItemsProcessed, run.ItemsCreated, run.ItemsUpdated, run.ItemsErrored, run.ErrorLog,
	)
	return err
}

// =============================================================================
// Buildings
// =============================================================================

func (s *PostgresStore) GetOrCreateBuilding(ctx context.Context, info models.BuildingInfo) (*models.Building, error) {
	query := `
		SELECT id, name, address, postal_code, city, state, website, amenities, created_at, updated_at
		FROM buildings WHERE name = $1`

	var b models.Building
	err := s.pool.QueryRow(ctx, query, info.Name).Scan(
		&b.ID, &b.Name, &b.Address, &b.PostalCode, &b.City, &b.State, &b.Website, &b.Amenities, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == nil {
		return &b, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	insert := `
		INSERT INTO buildings (id, name, address, postal_code, city, state, website)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			address = COALESCE(NULLIF(EXCLUDED.address, ''), buildings.address),
			postal_code = COALESCE(NULLIF(EXCLUDED.postal_code, ''), buildings.postal_code),
			city = COALESCE(NULLIF(EXCLUDED.city, ''), buildings.city),
			state = COALESCE(NULLIF(EXCLUDED.state, ''), buildings.state),
			website = COALESCE(NULLIF(EXCLUDED.website, ''), buildings.website),
			updated_at = NOW()
		RETURNING id, name, address, postal_code, city, state, website, amenities, created_at, updated_at`

	err = s.pool.QueryRow(ctx, insert,
		uuid.New(), info.Name, info.Address, info.PostalCode, info.City, info.State, info.Website,
	).Scan(
		&b.ID, &b.Name, &b.Address, &b.PostalCode, &b.City, &b.State, &b.Website, &b.Amenities, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// =============================================================================
// Apartments
// =============================================================================

func (s *PostgresStore) GetStoredUnitNumbers(ctx context.Context, buildingID uuid.UUID) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT unit_number FROM apartments WHERE building_id = $1`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := make(map[string]struct{})
	for rows.Next() {
		var unitNumber string
		if err := rows.Scan(&unitNumber); err != nil {
			return nil, err
		}
		units[unitNumber] = struct{}{}
	}
	return units, rows.Err()
}

func (s *PostgresStore) MarkUnavailable(ctx context.Context, buildingID uuid.UUID, unitNumbers []string) (int, error) {
	if len(unitNumbers) == 0 {
		return 0, nil
	}

	query := `
		UPDATE apartments SET status = $3, updated_at = NOW()
		WHERE building_id = $1 AND unit_number = ANY($2) AND status = $4`

	tag, err := s.pool.Exec(ctx, query, buildingID, unitNumbers, models.ApartmentStatusUnavailable, models.ApartmentStatusAvailable)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) WithUnitTx(ctx context.Context, fn func(UnitWriter) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&unitWriter{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// =============================================================================
// Unit-scoped writes
// =============================================================================

type unitWriter struct {
	q querier
}

func (w *unitWriter) UpsertApartment(ctx context.Context, buildingID uuid.UUID, unitNumber string, defaults *models.ScrapedUnit) (*models.Apartment, bool, error) {
	query := `
		SELECT id, building_id, unit_number, floor, bedrooms, bathrooms, area_sqft, apartment_type, status, features, created_at, updated_at
		FROM apartments WHERE building_id = $1 AND unit_number = $2`

	var a models.Apartment
	err := w.q.QueryRow(ctx, query, buildingID, unitNumber).Scan(
		&a.ID, &a.BuildingID, &a.UnitNumber, &a.Floor, &a.Bedrooms, &a.Bathrooms, &a.AreaSqFt,
		&a.ApartmentType, &a.Status, &a.Features, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == nil {
		// A unit seen again after disappearing is back on the market.
		if a.Status != models.ApartmentStatusAvailable {
			_, err = w.q.Exec(ctx,
				`UPDATE apartments SET status = $2, updated_at = NOW() WHERE id = $1`,
				a.ID, models.ApartmentStatusAvailable)
			if err != nil {
				return nil, false, err
			}
			a.Status = models.ApartmentStatusAvailable
		}
		return &a, false, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, err
	}

	features, err := defaults.FeaturesJSON()
	if err != nil {
		return nil, false, err
	}

	insert := `
		INSERT INTO apartments (id, building_id, unit_number, floor, bedrooms, bathrooms, area_sqft, apartment_type, status, features)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, building_id, unit_number, floor, bedrooms, bathrooms, area_sqft, apartment_type, status, features, created_at, updated_at`

	err = w.q.QueryRow(ctx, insert,
		uuid.New(), buildingID, unitNumber, defaults.Floor, defaults.Bedrooms, defaults.Bathrooms,
		defaults.AreaSqFt, defaults.ApartmentType, models.ApartmentStatusAvailable, features,
	).Scan(
		&a.ID, &a.BuildingID, &a.UnitNumber, &a.Floor, &a.Bedrooms, &a.Bathrooms, &a.AreaSqFt,
		&a.ApartmentType, &a.Status, &a.Features, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

func (w *unitWriter) GetLatestPrice(ctx context.Context, apartmentID uuid.UUID) (*models.PriceRow, error) {
	query := `
		SELECT id, apartment_id, price_cents, start_date, lease_term_months, is_special_offer, created_at
		FROM apartment_prices
		WHERE apartment_id = $1
		ORDER BY start_date DESC, created_at DESC
		LIMIT 1`

	var p models.PriceRow
	err := w.q.QueryRow(ctx, query, apartmentID).Scan(
		&p.ID, &p.ApartmentID, &p.PriceCents, &p.StartDate, &p.LeaseTermMonths, &p.IsSpecialOffer, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (w *unitWriter) AppendPrice(ctx context.Context, apartmentID uuid.UUID, priceCents int64, startDate time.Time, leaseTermMonths int) (*models.PriceRow, error) {
	query := `
		INSERT INTO apartment_prices (apartment_id, price_cents, start_date, lease_term_months)
		VALUES ($1, $2, $3, $4)
		RETURNING id, apartment_id, price_cents, start_date, lease_term_months, is_special_offer, created_at`

	var p models.PriceRow
	err := w.q.QueryRow(ctx, query, apartmentID, priceCents, startDate, leaseTermMonths).Scan(
		&p.ID, &p.ApartmentID, &p.PriceCents, &p.StartDate, &p.LeaseTermMonths, &p.IsSpecialOffer, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (w *unitWriter) RecordPriceChange(ctx context.Context, apartmentID uuid.UUID, oldPriceCents, newPriceCents int64, runID int64) error {
	query := `
		INSERT INTO price_changes (apartment_id, old_price_cents, new_price_cents, detected_at, run_id)
		VALUES ($1, $2, $3, NOW(), $4)`

	_, err := w.q.Exec(ctx, query, apartmentID, oldPriceCents, newPriceCents, runID)
	return err
}
