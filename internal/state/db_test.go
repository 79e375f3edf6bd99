package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rookhq/rook/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func sampleRecord(id string) *models.RunRecord {
	now := time.Now().UTC().Truncate(time.Second)
	r := &models.RunRecord{
		ID:         id,
		ScenarioID: "campaign_spike",
		Stage:      models.StagePlanning,
		Decision:   models.DecisionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.AppendTrace(models.StageTaskDerivation, "plan ok")
	return r
}

func TestSaveAndGetRun(t *testing.T) {
	db := openTestDB(t)

	r := sampleRecord("run-1")
	r.Plan = &models.Plan{
		Actions: []models.Action{{Type: models.ActionCreateTask, Task: "review spend", Confidence: 0.8}},
		Summary: "reduce CPA",
	}
	if err := db.SaveRun(r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ScenarioID != "campaign_spike" {
		t.Errorf("scenario = %s", got.ScenarioID)
	}
	if got.Stage != models.StageTaskDerivation {
		t.Errorf("stage = %s, want %s", got.Stage, models.StageTaskDerivation)
	}
	if len(got.Trace) != 1 || got.Trace[0].Seq != 1 {
		t.Errorf("trace = %+v", got.Trace)
	}
	if got.Plan == nil || len(got.Plan.Actions) != 1 {
		t.Errorf("plan not round-tripped: %+v", got.Plan)
	}
}

func TestSaveRun_Upsert(t *testing.T) {
	db := openTestDB(t)

	r := sampleRecord("run-2")
	if err := db.SaveRun(r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	r.AppendTrace(models.StageDrafting, "tasks derived")
	if err := db.SaveRun(r); err != nil {
		t.Fatalf("SaveRun update: %v", err)
	}

	got, err := db.GetRun("run-2")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Stage != models.StageDrafting {
		t.Errorf("stage = %s, want %s", got.Stage, models.StageDrafting)
	}
	if got.Seq != 2 {
		t.Errorf("seq = %d, want 2", got.Seq)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)

	a := sampleRecord("run-a")
	a.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	b := sampleRecord("run-b")
	b.UpdatedAt = time.Now().UTC()
	for _, r := range []*models.RunRecord{a, b} {
		if err := db.SaveRun(r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-b" {
		t.Errorf("most recent first: got %s", runs[0].ID)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}
