package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/EV9H/renter-x-backend/models"
	"github.com/EV9H/renter-x-backend/storage"
)

// ReconcileStats summarizes what one reconciliation pass did to the
// inventory of a building.
type ReconcileStats struct {
	Processed    int
	Created      int
	Updated      int
	Errored      int
	PriceChanges int
	UnitsRemoved int
}

// Reconciler folds a scraped unit list into the stored inventory:
// upserts apartments, appends price history on movement, and marks
// units that vanished from the page as unavailable. Running it twice on
// the same input leaves the database unchanged the second time.
type Reconciler struct {
	store storage.Store
}

func NewReconciler(store storage.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile applies one scrape result for a building. Each unit is
// processed in its own transaction, so one bad unit cannot poison the
// rest of the batch.
func (r *Reconciler) Reconcile(ctx context.Context, sourceName string, building *models.Building, units []models.ScrapedUnit, runID int64) (*ReconcileStats, error) {
	stats := &ReconcileStats{Processed: len(units)}

	scraped := make(map[string]struct{}, len(units))
	for i := range units {
		unit := &units[i]
		scraped[unit.UnitNumber] = struct{}{}

		err := r.store.WithUnitTx(ctx, func(w storage.UnitWriter) error {
			return r.reconcileUnit(ctx, w, building, unit, runID, stats)
		})
		if err != nil {
			log.Printf("[%s] Error reconciling unit %s: %v", sourceName, unit.UnitNumber, err)
			stats.Errored++
		}
	}

	removed, err := r.retireMissingUnits(ctx, building, scraped)
	if err != nil {
		return stats, fmt.Errorf("retire missing units: %w", err)
	}
	stats.UnitsRemoved = removed

	log.Printf("[%s] Reconciled %d units: %d created, %d updated, %d errored, %d price changes, %d removed",
		sourceName, stats.Processed, stats.Created, stats.Updated, stats.Errored, stats.PriceChanges, stats.UnitsRemoved)
	return stats, nil
}

func (r *Reconciler) reconcileUnit(ctx context.Context, w storage.UnitWriter, building *models.Building, unit *models.ScrapedUnit, runID int64, stats *ReconcileStats) error {
	apartment, created, err := w.UpsertApartment(ctx, building.ID, unit.UnitNumber, unit)
	if err != nil {
		return fmt.Errorf("upsert apartment: %w", err)
	}
	if created {
		stats.Created++
	} else {
		stats.Updated++
	}

	latest, err := w.GetLatestPrice(ctx, apartment.ID)
	if err != nil {
		return fmt.Errorf("get latest price: %w", err)
	}

	// Same price as the current row means nothing to record
	if latest != nil && latest.PriceCents == unit.PriceCents {
		return nil
	}

	// Rows are always dated the scrape day. Dating them with a scraped
	// availability date could place a new row behind the current one,
	// which would make reruns on identical input append forever.
	if _, err := w.AppendPrice(ctx, apartment.ID, unit.PriceCents, todayUTC(), unit.LeaseTermMonths); err != nil {
		return fmt.Errorf("append price: %w", err)
	}

	if latest != nil {
		if err := w.RecordPriceChange(ctx, apartment.ID, latest.PriceCents, unit.PriceCents, runID); err != nil {
			return fmt.Errorf("record price change: %w", err)
		}
		stats.PriceChanges++
	}

	return nil
}

// retireMissingUnits marks every stored unit absent from the scrape as
// unavailable. Units already leased or pending keep their status.
func (r *Reconciler) retireMissingUnits(ctx context.Context, building *models.Building, scraped map[string]struct{}) (int, error) {
	stored, err := r.store.GetStoredUnitNumbers(ctx, building.ID)
	if err != nil {
		return 0, err
	}

	var missing []string
	for unitNumber := range stored {
		if _, ok := scraped[unitNumber]; !ok {
			missing = append(missing, unitNumber)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	return r.store.MarkUnavailable(ctx, building.ID, missing)
}

func todayUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
