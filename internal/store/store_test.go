package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aniketdhankar/project/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func testAssignment(id, taskID, empID string) models.Assignment {
	return models.Assignment{
		ID:             id,
		TaskID:         taskID,
		EmployeeID:     empID,
		Method:         "greedy",
		Score:          0.8,
		Confidence:     0.6,
		EstimatedHours: 20,
		AssignedAt:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file and parent directory were created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestPersistAssignments(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	batch := []models.Assignment{
		testAssignment("a1", "t1", "e1"),
		testAssignment("a2", "t2", "e2"),
	}

	stored, err := s.PersistAssignments(ctx, batch)
	if err != nil {
		t.Fatalf("PersistAssignments failed: %v", err)
	}
	if stored != 2 {
		t.Errorf("Expected 2 stored, got %d", stored)
	}

	got, err := s.ListAssignments("")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 assignments, got %d", len(got))
	}
	if got[0].Method != "greedy" || got[0].Score != 0.8 {
		t.Errorf("Assignment fields did not round-trip: %+v", got[0])
	}
}

func TestPersistAssignmentsAtomicity(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	// Second insert collides on the primary key; nothing may be stored.
	batch := []models.Assignment{
		testAssignment("dup", "t1", "e1"),
		testAssignment("dup", "t2", "e2"),
	}

	if _, err := s.PersistAssignments(ctx, batch); err == nil {
		t.Fatal("Expected duplicate key error")
	}

	got, err := s.ListAssignments("")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected empty table after failed batch, got %d rows", len(got))
	}
}

func TestAssignmentStatusFilter(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.PersistAssignments(ctx, []models.Assignment{
		testAssignment("a1", "t1", "e1"),
		testAssignment("a2", "t2", "e1"),
	}); err != nil {
		t.Fatalf("PersistAssignments failed: %v", err)
	}

	if err := s.UpdateAssignmentStatus("a1", "completed"); err != nil {
		t.Fatalf("UpdateAssignmentStatus failed: %v", err)
	}

	active, err := s.ListAssignments("assigned")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != "a2" {
		t.Errorf("Expected only a2 active, got %+v", active)
	}
}

func TestTrainingRows(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	rows := []models.TrainingRow{{
		ID:           "r1",
		TaskID:       "t1",
		EmployeeID:   "e1",
		Features:     []float64{0.1, 0.2, 0.3},
		FeatureNames: []string{"f1", "f2", "f3"},
		Score:        0.7,
		Confidence:   0.6,
		Method:       "balanced",
		Outcome:      models.OutcomePending,
		LoggedAt:     time.Now().UTC(),
	}}

	if err := s.LogTrainingRows(ctx, rows); err != nil {
		t.Fatalf("LogTrainingRows failed: %v", err)
	}

	got, err := s.ListTrainingRows(10)
	if err != nil {
		t.Fatalf("ListTrainingRows failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(got))
	}
	if len(got[0].Features) != 3 || got[0].Features[1] != 0.2 {
		t.Errorf("Features did not round-trip: %v", got[0].Features)
	}
	if len(got[0].FeatureNames) != 3 {
		t.Errorf("FeatureNames did not round-trip: %v", got[0].FeatureNames)
	}
	if got[0].Outcome != models.OutcomePending {
		t.Errorf("Expected pending outcome, got %s", got[0].Outcome)
	}

	if err := s.RecordOutcome("r1", "completed_on_time"); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	got, _ = s.ListTrainingRows(10)
	if got[0].Outcome != "completed_on_time" {
		t.Errorf("Expected updated outcome, got %s", got[0].Outcome)
	}
}

func TestAnomalyLifecycle(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	anomalies := []models.Anomaly{{
		ID:                 "an1",
		Type:               models.AnomalyOverload,
		Severity:           models.SeverityHigh,
		EmployeeID:         "e1",
		Description:        "workload at 95% of capacity",
		RecommendedActions: []string{"redistribute upcoming assignments"},
		Status:             "open",
		DetectedAt:         time.Now().UTC(),
	}}

	if err := s.SaveAnomalies(anomalies); err != nil {
		t.Fatalf("SaveAnomalies failed: %v", err)
	}

	open, err := s.ListAnomalies("open")
	if err != nil {
		t.Fatalf("ListAnomalies failed: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("Expected 1 open anomaly, got %d", len(open))
	}
	if open[0].Type != models.AnomalyOverload || len(open[0].RecommendedActions) != 1 {
		t.Errorf("Anomaly did not round-trip: %+v", open[0])
	}

	if err := s.ResolveAnomaly("an1", "rebalanced workload"); err != nil {
		t.Fatalf("ResolveAnomaly failed: %v", err)
	}

	open, _ = s.ListAnomalies("open")
	if len(open) != 0 {
		t.Errorf("Expected no open anomalies, got %d", len(open))
	}
	resolved, _ := s.ListAnomalies("resolved")
	if len(resolved) != 1 {
		t.Errorf("Expected 1 resolved anomaly, got %d", len(resolved))
	}

	// Resolving twice fails
	if err := s.ResolveAnomaly("an1", "again"); err == nil {
		t.Error("Expected error resolving an already-resolved anomaly")
	}
}

func TestETAPredictions(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	older := models.ETAEstimate{
		TaskID:              "t1",
		EmployeeID:          "e1",
		PredictedHours:      20,
		EstimatedCompletion: time.Now().UTC().Add(48 * time.Hour),
		Confidence:          0.5,
		Source:              models.ETASourceFallback,
		GeneratedAt:         time.Now().UTC().Add(-time.Hour),
	}
	newer := older
	newer.PredictedHours = 15
	newer.Source = models.ETASourceProgress
	newer.GeneratedAt = time.Now().UTC()

	if err := s.SaveETA(older); err != nil {
		t.Fatalf("SaveETA failed: %v", err)
	}
	if err := s.SaveETA(newer); err != nil {
		t.Fatalf("SaveETA failed: %v", err)
	}

	got, err := s.LatestETA("t1")
	if err != nil {
		t.Fatalf("LatestETA failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a prediction")
	}
	if got.PredictedHours != 15 || got.Source != models.ETASourceProgress {
		t.Errorf("Expected the newer prediction, got %+v", got)
	}

	missing, err := s.LatestETA("unknown")
	if err != nil {
		t.Fatalf("LatestETA failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unknown task, got %+v", missing)
	}
}

func TestProgressLogs(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	logged, err := s.LogProgress(models.ProgressLog{
		TaskID:          "t1",
		EmployeeID:      "e1",
		ProgressPercent: 40,
		HoursSpent:      8,
		Note:            "backend wired up",
	})
	if err != nil {
		t.Fatalf("LogProgress failed: %v", err)
	}
	if logged.ID == "" {
		t.Error("Expected a generated log id")
	}
	if logged.LoggedAt.IsZero() {
		t.Error("Expected a logged_at timestamp")
	}

	got, err := s.ProgressForTask("t1")
	if err != nil {
		t.Fatalf("ProgressForTask failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 log, got %d", len(got))
	}
	if got[0].ProgressPercent != 40 || got[0].Note != "backend wired up" {
		t.Errorf("Progress log did not round-trip: %+v", got[0])
	}

	other, err := s.ProgressForTask("t2")
	if err != nil {
		t.Fatalf("ProgressForTask failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no logs for t2, got %d", len(other))
	}
}

func TestClosedStoreErrors(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	if err := s.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail on a closed store")
	}
	if _, err := s.ListAssignments(""); err == nil {
		t.Error("Expected query to fail on a closed store")
	}
}
