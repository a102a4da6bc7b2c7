package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/EV9H/renter-x-backend/models"
)

func newTestOpsStore(t *testing.T) *OpsStore {
	t.Helper()
	store, err := NewOpsStore(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("open ops store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func finishedRun(id int64, status models.RunStatus) *models.ScrapingRun {
	started := time.Now().Add(-time.Minute)
	finished := time.Now()
	return &models.ScrapingRun{
		ID:             id,
		SourceID:       1,
		StartedAt:      started,
		FinishedAt:     &finished,
		Status:         status,
		ItemsProcessed: 5,
	}
}

func TestRecordRun_FailureStreak(t *testing.T) {
	store := newTestOpsStore(t)

	for i, status := range []models.RunStatus{
		models.RunStatusCompleted,
		models.RunStatusFailed,
		models.RunStatusFailed,
	} {
		m := &RunMetrics{SourceName: "the-eugene", Run: finishedRun(int64(i+1), status)}
		if err := store.RecordRun(m); err != nil {
			t.Fatalf("record run %d: %v", i+1, err)
		}
	}

	failures, err := store.GetConsecutiveFailures("the-eugene")
	if err != nil {
		t.Fatalf("get failures: %v", err)
	}
	if failures != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", failures)
	}

	// A completed run resets the streak
	m := &RunMetrics{SourceName: "the-eugene", Run: finishedRun(4, models.RunStatusCompleted)}
	if err := store.RecordRun(m); err != nil {
		t.Fatalf("record run 4: %v", err)
	}
	failures, err = store.GetConsecutiveFailures("the-eugene")
	if err != nil {
		t.Fatalf("get failures: %v", err)
	}
	if failures != 0 {
		t.Fatalf("expected streak reset, got %d", failures)
	}
}

func TestGetConsecutiveFailures_UnknownSource(t *testing.T) {
	store := newTestOpsStore(t)

	failures, err := store.GetConsecutiveFailures("never-seen")
	if err != nil {
		t.Fatalf("get failures: %v", err)
	}
	if failures != 0 {
		t.Fatalf("expected 0 for unknown source, got %d", failures)
	}
}

func TestSnapshotQueue_Lifecycle(t *testing.T) {
	store := newTestOpsStore(t)

	snap := &models.PageSnapshot{
		SourceID:  "the-eugene",
		RunID:     7,
		URL:       "https://www.the-eugene.com/availabilities",
		Body:      "<html>page</html>",
		ScrapedAt: time.Now().UTC(),
	}
	if err := store.EnqueueSnapshot(snap); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if snap.ID == 0 {
		t.Fatalf("expected assigned snapshot id")
	}

	pending, err := store.GetPendingSnapshots(10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending snapshot, got %d", len(pending))
	}
	if pending[0].Body != snap.Body {
		t.Fatalf("unexpected body %q", pending[0].Body)
	}

	if err := store.MarkSnapshotUploaded(snap.ID, "snapshots/the-eugene/2026/08/31/run-7.html"); err != nil {
		t.Fatalf("mark uploaded: %v", err)
	}
	pending, err = store.GetPendingSnapshots(10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("uploaded snapshot still pending")
	}
}

func TestSnapshotQueue_FailureGivesUpAfterThree(t *testing.T) {
	store := newTestOpsStore(t)

	snap := &models.PageSnapshot{SourceID: "the-eugene", RunID: 1, ScrapedAt: time.Now().UTC()}
	if err := store.EnqueueSnapshot(snap); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.MarkSnapshotFailed(snap.ID); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
		pending, err := store.GetPendingSnapshots(10)
		if err != nil {
			t.Fatalf("get pending: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("attempt %d: expected snapshot still pending", i+1)
		}
	}

	if err := store.MarkSnapshotFailed(snap.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	pending, err := store.GetPendingSnapshots(10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected snapshot retired after three failures")
	}
}
