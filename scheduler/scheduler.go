package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/scraper"
)

// Triggerable allows workers to be triggered alongside a scheduled run
type Triggerable interface {
	Trigger()
}

// Scheduler fires full scrape cycles on a cron expression or a fixed
// interval. Cron wins when both are configured.
type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}

	snapshotWorker Triggerable
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

// SetSnapshotWorker registers the snapshot worker so each scheduled run
// flushes freshly archived pages without waiting for the next tick.
func (s *Scheduler) SetSnapshotWorker(w Triggerable) {
	s.snapshotWorker = w
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runOnce(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runOnce(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, use -scrape for one-shot runs")
	}

	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.orchestrator.RunAll(ctx)
	if s.snapshotWorker != nil {
		s.snapshotWorker.Trigger()
	}
}

// TriggerNow runs a full cycle immediately, outside the schedule
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}
