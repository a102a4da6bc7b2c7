package workers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/EV9H/renter-x-backend/models"
	"github.com/EV9H/renter-x-backend/storage"
)

// QueueArchiver queues fetched page bodies in the ops database for
// asynchronous upload. One archiver is created per scraping run so the
// snapshots carry the run they came from.
type QueueArchiver struct {
	ops    *storage.OpsStore
	runID  int64
	notify func()
}

func NewQueueArchiver(ops *storage.OpsStore, runID int64, notify func()) *QueueArchiver {
	return &QueueArchiver{ops: ops, runID: runID, notify: notify}
}

func (a *QueueArchiver) Archive(ctx context.Context, sourceName, url, body string) error {
	snap := &models.PageSnapshot{
		SourceID:  sourceName,
		RunID:     a.runID,
		URL:       url,
		Body:      body,
		ScrapedAt: time.Now().UTC(),
	}
	if err := a.ops.EnqueueSnapshot(snap); err != nil {
		return err
	}
	if a.notify != nil {
		a.notify()
	}
	return nil
}

// SnapshotWorker drains the pending snapshot queue into object storage
type SnapshotWorker struct {
	ops      *storage.OpsStore
	uploader *storage.S3Uploader
	trigger  chan struct{}
}

func NewSnapshotWorker(ops *storage.OpsStore, uploader *storage.S3Uploader) *SnapshotWorker {
	return &SnapshotWorker{
		ops:      ops,
		uploader: uploader,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger wakes the worker ahead of its next tick. Safe to call from
// any goroutine; extra triggers coalesce.
func (w *SnapshotWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// FlushOnce processes a single batch synchronously, for one-shot runs
func (w *SnapshotWorker) FlushOnce(ctx context.Context, batchSize int) {
	w.processBatch(ctx, batchSize)
}

// Run starts the upload loop
func (w *SnapshotWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.trigger:
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *SnapshotWorker) processBatch(ctx context.Context, batchSize int) {
	snaps, err := w.ops.GetPendingSnapshots(batchSize)
	if err != nil {
		log.Printf("Snapshots: query error: %v", err)
		return
	}
	if len(snaps) == 0 {
		return
	}

	log.Printf("Snapshots: uploading %d pages", len(snaps))

	for _, snap := range snaps {
		if ctx.Err() != nil {
			return
		}

		key := storage.SnapshotKey(snap.SourceID, snap.RunID, snap.ScrapedAt)
		if err := w.uploader.Upload(ctx, key, strings.NewReader(snap.Body), "text/html"); err != nil {
			log.Printf("Snapshots: upload failed for %s: %v", key, err)
			if err := w.ops.MarkSnapshotFailed(snap.ID); err != nil {
				log.Printf("Snapshots: could not mark %d failed: %v", snap.ID, err)
			}
			continue
		}

		if err := w.ops.MarkSnapshotUploaded(snap.ID, key); err != nil {
			log.Printf("Snapshots: could not mark %d uploaded: %v", snap.ID, err)
		}
	}
}
