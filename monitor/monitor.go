package monitor

import (
	"log"
	"time"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/models"
	"github.com/EV9H/renter-x-backend/services"
	"github.com/EV9H/renter-x-backend/storage"
)

// Observer receives pipeline lifecycle events. Implementations must be
// best-effort: nothing an observer does may fail or block a scrape.
type Observer interface {
	OnRunStart(sourceName string, run *models.ScrapingRun)
	OnRunEnd(sourceName string, run *models.ScrapingRun, stats *services.ReconcileStats)
	OnError(sourceName string, err error)
}

// Nop is the observer used when monitoring is disabled
type Nop struct{}

func (Nop) OnRunStart(string, *models.ScrapingRun)                         {}
func (Nop) OnRunEnd(string, *models.ScrapingRun, *services.ReconcileStats) {}
func (Nop) OnError(string, error)                                          {}

// Monitor records per-run metrics in the ops database and raises alert
// log lines when a run crosses a configured threshold.
type Monitor struct {
	ops    *storage.OpsStore
	alerts config.AlertConfig
}

func New(ops *storage.OpsStore, alerts config.AlertConfig) *Monitor {
	return &Monitor{ops: ops, alerts: alerts}
}

func (m *Monitor) OnRunStart(sourceName string, run *models.ScrapingRun) {
	log.Printf("[%s] Run %d started", sourceName, run.ID)
}

func (m *Monitor) OnRunEnd(sourceName string, run *models.ScrapingRun, stats *services.ReconcileStats) {
	metrics := &storage.RunMetrics{SourceName: sourceName, Run: run}
	if stats != nil {
		metrics.PriceChanges = stats.PriceChanges
		metrics.UnitsRemoved = stats.UnitsRemoved
	}
	if err := m.ops.RecordRun(metrics); err != nil {
		log.Printf("[%s] Warning: could not record run metrics: %v", sourceName, err)
	}

	m.checkThresholds(sourceName, run)
}

func (m *Monitor) OnError(sourceName string, err error) {
	log.Printf("[%s] Run error: %v", sourceName, err)
}

func (m *Monitor) checkThresholds(sourceName string, run *models.ScrapingRun) {
	if run.Status == models.RunStatusCompleted && run.ItemsProcessed < m.alerts.MinItems {
		log.Printf("[ALERT] [%s] Run %d processed %d items, below minimum %d",
			sourceName, run.ID, run.ItemsProcessed, m.alerts.MinItems)
	}

	if run.FinishedAt != nil {
		if duration := run.FinishedAt.Sub(run.StartedAt); duration > m.alerts.MaxDuration {
			log.Printf("[ALERT] [%s] Run %d took %s, above maximum %s",
				sourceName, run.ID, duration.Round(time.Second), m.alerts.MaxDuration)
		}
	}

	failures, err := m.ops.GetConsecutiveFailures(sourceName)
	if err != nil {
		log.Printf("[%s] Warning: could not read failure streak: %v", sourceName, err)
		return
	}
	if m.alerts.ConsecutiveFailures > 0 && failures >= m.alerts.ConsecutiveFailures {
		log.Printf("[ALERT] [%s] %d consecutive failed runs", sourceName, failures)
	}
}
