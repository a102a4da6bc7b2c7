package models

import "time"

type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// ScrapingRun is one execution of the pipeline for one source. Created
// at scrape start, finalized exactly once at scrape end.
type ScrapingRun struct {
	ID             int64      `json:"id" db:"id"`
	SourceID       int64      `json:"source_id" db:"source_id"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at" db:"finished_at"`
	Status         RunStatus  `json:"status" db:"status"`
	ItemsProcessed int        `json:"items_processed" db:"items_processed"`
	ItemsCreated   int        `json:"items_created" db:"items_created"`
	ItemsUpdated   int        `json:"items_updated" db:"items_updated"`
	ItemsErrored   int        `json:"items_errored" db:"items_errored"`
	ErrorLog       string     `json:"error_log" db:"error_log"`
}
