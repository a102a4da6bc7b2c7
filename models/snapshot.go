package models

import "time"

// PageSnapshot is one archived copy of a fetched listing page. Queued
// locally at scrape time and uploaded to object storage by a worker.
type PageSnapshot struct {
	ID        int64     `json:"id" db:"id"`
	SourceID  string    `json:"source_id" db:"source_id"`
	RunID     int64     `json:"run_id" db:"run_id"`
	URL       string    `json:"url" db:"url"`
	Body      string    `json:"body" db:"body"`
	S3Key     string    `json:"s3_key" db:"s3_key"`
	Status    string    `json:"status" db:"status"`
	Attempts  int       `json:"attempts" db:"attempts"`
	ScrapedAt time.Time `json:"scraped_at" db:"scraped_at"`
}

// Snapshot status
const (
	SnapshotStatusPending  = "pending"
	SnapshotStatusUploaded = "uploaded"
	SnapshotStatusFailed   = "failed"
)
