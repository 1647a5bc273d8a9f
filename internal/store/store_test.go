package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestResumeUpsertAndLoad(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := sqlStore.LoadResume(ctx, "tg_1"); err != nil || ok {
		t.Fatalf("expected no resume yet, got ok=%v err=%v", ok, err)
	}
	if err := sqlStore.SaveResume(ctx, "tg_1", "cv.pdf", "first"); err != nil {
		t.Fatalf("save resume: %v", err)
	}
	if err := sqlStore.SaveResume(ctx, "tg_1", "cv2.pdf", "second"); err != nil {
		t.Fatalf("replace resume: %v", err)
	}
	text, ok, err := sqlStore.LoadResume(ctx, "tg_1")
	if err != nil || !ok {
		t.Fatalf("load resume: ok=%v err=%v", ok, err)
	}
	if text != "second" {
		t.Fatalf("expected replaced resume, got %q", text)
	}
	if err := sqlStore.SaveResume(ctx, " ", "cv.pdf", "x"); !errors.Is(err, ErrResumeInvalid) {
		t.Fatalf("expected invalid resume error, got %v", err)
	}
}

func TestArtifactExpiryLifecycle(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	short, err := sqlStore.RecordArtifact(ctx, RecordArtifactInput{UserID: "tg_1", FilePath: "/tmp/a.pdf", Retention: time.Second})
	if err != nil {
		t.Fatalf("record artifact: %v", err)
	}
	if _, err := sqlStore.RecordArtifact(ctx, RecordArtifactInput{UserID: "tg_1", FilePath: "/tmp/b.pdf", RemoteKey: "tg_1/b.pdf"}); err != nil {
		t.Fatalf("record artifact: %v", err)
	}

	expired, err := sqlStore.ListExpiredArtifacts(ctx, time.Now().Add(2*time.Second), 10)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != short.ID {
		t.Fatalf("expected only the short-lived artifact, got %+v", expired)
	}

	all, err := sqlStore.ListArtifacts(ctx, "tg_1")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected two artifacts, got %d err=%v", len(all), err)
	}

	if err := sqlStore.DeleteArtifact(ctx, short.ID); err != nil {
		t.Fatalf("delete artifact: %v", err)
	}
	if err := sqlStore.DeleteArtifact(ctx, short.ID); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestRecordAndListExports(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	if err := sqlStore.RecordExport(ctx, "https://sheet", 0); err == nil {
		t.Fatal("expected zero-count export to be rejected")
	}
	for _, count := range []int{3, 7} {
		if err := sqlStore.RecordExport(ctx, "https://sheet", count); err != nil {
			t.Fatalf("record export: %v", err)
		}
	}
	records, err := sqlStore.ListExports(ctx, 10)
	if err != nil {
		t.Fatalf("list exports: %v", err)
	}
	if len(records) != 2 || records[0].JobCount != 7 {
		t.Fatalf("expected newest export first, got %+v", records)
	}
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	sqlStore := newTestStore(t)
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "job_agent_test.sqlite")
	sqlStore, err := New(dbPath)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	return sqlStore
}
