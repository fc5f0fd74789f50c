package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/podsum/internal/domain"
)

func newTestRepo(t *testing.T) *JobHistoryRepository {
	t.Helper()
	db, err := InitDB(&DBConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return NewJobHistoryRepository(db)
}

func TestRecordAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	records := []domain.JobRecord{
		{ID: "job-1", Stage: "completed", CreatedAt: now.Add(-2 * time.Minute), FinishedAt: now.Add(-time.Minute)},
		{ID: "job-2", Stage: "failed", ErrorLog: "transcription: boom", CreatedAt: now.Add(-time.Minute), FinishedAt: now},
	}
	for _, record := range records {
		if err := repo.Record(ctx, record); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("record count = %d, want 2", len(recent))
	}
	if recent[0].ID != "job-2" {
		t.Errorf("most recent = %q, want job-2", recent[0].ID)
	}
	if recent[0].ErrorLog != "transcription: boom" {
		t.Errorf("error log = %q", recent[0].ErrorLog)
	}
}

func TestRecordLastWriteWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.Record(ctx, domain.JobRecord{ID: "job-1", Stage: "failed", FinishedAt: now}); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if err := repo.Record(ctx, domain.JobRecord{ID: "job-1", Stage: "completed", FinishedAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("second Record failed: %v", err)
	}

	recent, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("record count = %d, want 1", len(recent))
	}
	if recent[0].Stage != "completed" {
		t.Errorf("stage = %q, want completed (last write)", recent[0].Stage)
	}
}
