package downloads

import (
	"testing"
	"time"

	"presetwave/models"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func testPreset(id, name string) models.Preset {
	return models.Preset{ID: id, Slug: name, Name: name, Category: models.CategoryFree}
}

func TestRecordAndHistory(t *testing.T) {
	svc := setupTestService(t)

	if err := svc.Record("acc1", testPreset("p1", "First")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.Record("acc1", testPreset("p2", "Second")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.Record("acc2", testPreset("p3", "Other")); err != nil {
		t.Fatalf("record: %v", err)
	}

	history := svc.History("acc1")
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if history[0].PresetID != "p2" {
		t.Errorf("expected newest first, got %q", history[0].PresetID)
	}
	if len(svc.History("acc2")) != 1 {
		t.Error("expected history to be scoped per account")
	}
	if len(svc.History("unknown")) != 0 {
		t.Error("expected empty history for unknown account")
	}
}

func TestHistory_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	svc, err := NewService(dir)
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	if err := svc.Record("acc1", testPreset("p1", "Kept")); err != nil {
		t.Fatalf("record: %v", err)
	}
	svc.Close()

	reopened, err := NewService(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	history := reopened.History("acc1")
	if len(history) != 1 || history[0].PresetName != "Kept" {
		t.Errorf("expected history to survive restart, got %v", history)
	}
}

func TestJob_OwnershipAndProgress(t *testing.T) {
	svc := setupTestService(t)

	job := svc.StartJob("acc1", "p1")
	if job.Status != models.DownloadRunning || job.Progress != 0 {
		t.Errorf("expected fresh running job, got %+v", job)
	}

	if _, err := svc.Job("acc2", job.ID); err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound for other account, got %v", err)
	}
	if _, err := svc.Job("acc1", "missing"); err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound for unknown job, got %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := svc.Job("acc1", job.ID)
		if err != nil {
			t.Fatalf("job: %v", err)
		}
		if got.Status == models.DownloadComplete {
			if got.Progress != 100 {
				t.Errorf("completed job should report 100%%, got %d", got.Progress)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete in time, progress %d", got.Progress)
		}
		time.Sleep(jobTick)
	}
}
