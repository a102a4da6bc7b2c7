package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/httputil"
	"github.com/EV9H/renter-x-backend/models"
	"github.com/EV9H/renter-x-backend/monitor"
	"github.com/EV9H/renter-x-backend/services"
	"github.com/EV9H/renter-x-backend/storage"
)

// Orchestrator drives the full pipeline for every configured source.
// Each source runs in its own goroutine with its own run record; one
// source failing never touches another source's run.
type Orchestrator struct {
	cfg        *config.Config
	store      storage.Store
	reconciler *services.Reconciler
	observer   monitor.Observer
	engines    map[string]*Engine

	// archiverFor builds the per-run page archiver; nil disables archiving
	archiverFor func(runID int64) Archiver
}

func NewOrchestrator(cfg *config.Config, store storage.Store, reconciler *services.Reconciler, observer monitor.Observer, clients *httputil.Clients) *Orchestrator {
	if observer == nil {
		observer = monitor.Nop{}
	}

	engines := make(map[string]*Engine)
	for id, sourceCfg := range cfg.Sources {
		engines[id] = NewEngine(sourceCfg, NewFetcher(sourceCfg, clients))
	}

	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		reconciler: reconciler,
		observer:   observer,
		engines:    engines,
	}
}

// SetArchiverFactory enables page snapshot archiving
func (o *Orchestrator) SetArchiverFactory(fn func(runID int64) Archiver) {
	o.archiverFor = fn
}

// RunAll scrapes every configured source concurrently and returns once
// all of them finish. Per-source errors are logged, never propagated.
func (o *Orchestrator) RunAll(ctx context.Context) {
	var wg sync.WaitGroup
	for id := range o.cfg.Sources {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := o.RunSource(ctx, id); err != nil {
				log.Printf("[%s] Run failed: %v", id, err)
			}
		}(id)
	}
	wg.Wait()
}

// RunSource executes one full scrape-and-reconcile cycle for a source
func (o *Orchestrator) RunSource(ctx context.Context, id string) error {
	sourceCfg, ok := o.cfg.Sources[id]
	if !ok {
		return fmt.Errorf("unknown source: %s", id)
	}
	engine, ok := o.engines[id]
	if !ok {
		return fmt.Errorf("no engine for source: %s", id)
	}

	source, err := o.store.GetOrCreateSource(ctx, sourceCfg.Name, sourceCfg.URL)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	if !source.IsActive {
		log.Printf("[%s] Source inactive, skipping", sourceCfg.Name)
		return nil
	}

	run := &models.ScrapingRun{
		SourceID:  source.ID,
		StartedAt: time.Now().UTC(),
		Status:    models.RunStatusInProgress,
	}
	if err := o.store.CreateScrapingRun(ctx, run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	o.observer.OnRunStart(sourceCfg.Name, run)

	var stats *services.ReconcileStats

	// Finalization must outlive the request context, otherwise a
	// canceled shutdown would strand the run in_progress forever.
	finCtx := context.WithoutCancel(ctx)
	defer func() {
		now := time.Now().UTC()
		run.FinishedAt = &now
		if run.Status == models.RunStatusInProgress {
			run.Status = models.RunStatusCompleted
		}
		if err := o.store.UpdateScrapingRun(finCtx, run); err != nil {
			log.Printf("[%s] Warning: could not finalize run %d: %v", sourceCfg.Name, run.ID, err)
		}
		o.observer.OnRunEnd(sourceCfg.Name, run, stats)
	}()

	var archiver Archiver
	if o.archiverFor != nil {
		archiver = o.archiverFor(run.ID)
	}

	units, err := engine.Scrape(ctx, archiver)
	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorLog = err.Error()
		o.observer.OnError(sourceCfg.Name, err)
		return err
	}

	building, err := o.store.GetOrCreateBuilding(ctx, sourceCfg.BuildingInfo)
	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorLog = err.Error()
		o.observer.OnError(sourceCfg.Name, err)
		return fmt.Errorf("resolve building: %w", err)
	}

	stats, err = o.reconciler.Reconcile(ctx, sourceCfg.Name, building, units, run.ID)
	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorLog = err.Error()
		o.observer.OnError(sourceCfg.Name, err)
		return fmt.Errorf("reconcile: %w", err)
	}

	run.ItemsProcessed = stats.Processed
	run.ItemsCreated = stats.Created
	run.ItemsUpdated = stats.Updated
	run.ItemsErrored = stats.Errored
	run.Status = models.RunStatusCompleted

	log.Printf("[%s] Run %d completed: %d processed, %d created, %d updated, %d errored",
		sourceCfg.Name, run.ID, run.ItemsProcessed, run.ItemsCreated, run.ItemsUpdated, run.ItemsErrored)
	return nil
}

// SourceIDs returns the configured source ids
func (o *Orchestrator) SourceIDs() []string {
	var ids []string
	for id := range o.cfg.Sources {
		ids = append(ids, id)
	}
	return ids
}
