package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/EV9H/renter-x-backend/models"
)

// OpsStore is the local operational database: per-run metrics for the
// monitor and the pending queue of page snapshots awaiting upload. It is
// separate from Postgres so a domain-database outage never loses
// operational history.
type OpsStore struct {
	db *sql.DB
}

func NewOpsStore(dbPath string) (*OpsStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &OpsStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *OpsStore) Close() error {
	return s.db.Close()
}

func (s *OpsStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run_metrics (
		id INTEGER PRIMARY KEY,
		source_name TEXT NOT NULL,
		run_id INTEGER,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		items_processed INTEGER,
		items_created INTEGER,
		items_updated INTEGER,
		items_errored INTEGER,
		price_changes INTEGER,
		units_removed INTEGER,
		duration_sec REAL
	);

	CREATE TABLE IF NOT EXISTS page_snapshots (
		id INTEGER PRIMARY KEY,
		source_name TEXT NOT NULL,
		run_id INTEGER,
		url TEXT,
		body TEXT,
		s3_key TEXT DEFAULT '',
		status TEXT DEFAULT 'pending',
		attempts INTEGER DEFAULT 0,
		scraped_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS source_stats (
		source_name TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		consecutive_failures INTEGER DEFAULT 0,
		total_runs INTEGER DEFAULT 0,
		success_rate REAL,
		avg_run_duration_sec INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_source ON run_metrics(source_name, started_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_pending ON page_snapshots(status, attempts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Run metrics
// =============================================================================

type RunMetrics struct {
	SourceName   string
	Run          *models.ScrapingRun
	PriceChanges int
	UnitsRemoved int
}

func (s *OpsStore) RecordRun(m *RunMetrics) error {
	var durationSec float64
	if m.Run.FinishedAt != nil {
		durationSec = m.Run.FinishedAt.Sub(m.Run.StartedAt).Seconds()
	}

	_, err := s.db.Exec(`
		INSERT INTO run_metrics (source_name, run_id, started_at, finished_at, status,
			items_processed, items_created, items_updated, items_errored,
			price_changes, units_removed, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.SourceName, m.Run.ID, m.Run.StartedAt, m.Run.FinishedAt, m.Run.Status,
		m.Run.ItemsProcessed, m.Run.ItemsCreated, m.Run.ItemsUpdated, m.Run.ItemsErrored,
		m.PriceChanges, m.UnitsRemoved, durationSec)
	if err != nil {
		return err
	}

	return s.updateSourceStats(m.SourceName)
}

func (s *OpsStore) updateSourceStats(sourceName string) error {
	_, err := s.db.Exec(`
		INSERT INTO source_stats (source_name, last_run_at, last_run_status, consecutive_failures,
			total_runs, success_rate, avg_run_duration_sec)
		SELECT
			?,
			(SELECT started_at FROM run_metrics WHERE source_name = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT status FROM run_metrics WHERE source_name = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT COUNT(*) FROM run_metrics WHERE source_name = ? AND id >
				COALESCE((SELECT MAX(id) FROM run_metrics WHERE source_name = ? AND status = 'completed'), 0)),
			(SELECT COUNT(*) FROM run_metrics WHERE source_name = ?),
			(SELECT CAST(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS REAL) /
				NULLIF(COUNT(*), 0) FROM run_metrics WHERE source_name = ?),
			(SELECT AVG(CAST(duration_sec AS INTEGER)) FROM run_metrics WHERE source_name = ? AND finished_at IS NOT NULL)
		ON CONFLICT(source_name) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			consecutive_failures = excluded.consecutive_failures,
			total_runs = excluded.total_runs,
			success_rate = excluded.success_rate,
			avg_run_duration_sec = excluded.avg_run_duration_sec`,
		sourceName, sourceName, sourceName, sourceName, sourceName, sourceName, sourceName, sourceName)
	return err
}

func (s *OpsStore) GetConsecutiveFailures(sourceName string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT consecutive_failures FROM source_stats WHERE source_name = ?`, sourceName).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

func (s *OpsStore) GetLastRunTime(sourceName string) (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRow(`
		SELECT last_run_at FROM source_stats WHERE source_name = ?`, sourceName).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return lastRun, err
}

// =============================================================================
// Snapshot queue
// =============================================================================

func (s *OpsStore) EnqueueSnapshot(snap *models.PageSnapshot) error {
	result, err := s.db.Exec(`
		INSERT INTO page_snapshots (source_name, run_id, url, body, status, attempts, scraped_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		snap.SourceID, snap.RunID, snap.URL, snap.Body, models.SnapshotStatusPending, snap.ScrapedAt)
	if err != nil {
		return err
	}
	snap.ID, _ = result.LastInsertId()
	return nil
}

func (s *OpsStore) GetPendingSnapshots(limit int) ([]models.PageSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, source_name, run_id, url, body, s3_key, status, attempts, scraped_at
		FROM page_snapshots
		WHERE status = 'pending' AND attempts < 3
		ORDER BY scraped_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []models.PageSnapshot
	for rows.Next() {
		var snap models.PageSnapshot
		if err := rows.Scan(&snap.ID, &snap.SourceID, &snap.RunID, &snap.URL, &snap.Body,
			&snap.S3Key, &snap.Status, &snap.Attempts, &snap.ScrapedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *OpsStore) MarkSnapshotUploaded(id int64, s3Key string) error {
	_, err := s.db.Exec(`
		UPDATE page_snapshots SET status = ?, s3_key = ?, body = '' WHERE id = ?`,
		models.SnapshotStatusUploaded, s3Key, id)
	return err
}

func (s *OpsStore) MarkSnapshotFailed(id int64) error {
	// Three strikes and the snapshot stays failed for manual review
	_, err := s.db.Exec(`
		UPDATE page_snapshots SET
			attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= 3 THEN ? ELSE ? END
		WHERE id = ?`,
		models.SnapshotStatusFailed, models.SnapshotStatusPending, id)
	return err
}
