// Package store provides SQLite-backed persistence for finalized
// assignments, training data, anomalies, ETA predictions, and progress
// logs. It is the storage collaborator behind the scheduler's finalize
// step; the scheduling core itself never reads from it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Aniketdhankar/project/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the allocation SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		method TEXT NOT NULL,
		score REAL NOT NULL,
		adjusted_score REAL,
		confidence REAL NOT NULL,
		estimated_hours REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'assigned',
		assigned_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS training_rows (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		features TEXT NOT NULL,
		feature_names TEXT NOT NULL,
		score REAL NOT NULL,
		confidence REAL NOT NULL,
		method TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT 'pending',
		logged_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS anomalies (
		id TEXT PRIMARY KEY,
		anomaly_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		task_id TEXT,
		employee_id TEXT,
		description TEXT,
		recommended_actions TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		detected_at DATETIME NOT NULL,
		resolved_at DATETIME,
		resolution_notes TEXT
	);

	CREATE TABLE IF NOT EXISTS eta_predictions (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		predicted_hours REAL NOT NULL,
		estimated_completion DATETIME NOT NULL,
		confidence REAL NOT NULL,
		source TEXT NOT NULL,
		generated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS progress_logs (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		progress_percentage REAL NOT NULL,
		hours_spent REAL NOT NULL,
		note TEXT,
		logged_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_task_id ON assignments(task_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_employee_id ON assignments(employee_id);
	CREATE INDEX IF NOT EXISTS idx_training_rows_task_id ON training_rows(task_id);
	CREATE INDEX IF NOT EXISTS idx_anomalies_status ON anomalies(status);
	CREATE INDEX IF NOT EXISTS idx_eta_task_id ON eta_predictions(task_id);
	CREATE INDEX IF NOT EXISTS idx_progress_task_id ON progress_logs(task_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Assignment Operations ---

// PersistAssignments stores a finalized batch in a single transaction.
// Either every assignment is stored or none are.
func (s *Store) PersistAssignments(ctx context.Context, batch []models.Assignment) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range batch {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO assignments (id, task_id, employee_id, method, score, adjusted_score, confidence, estimated_hours, assigned_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.TaskID, a.EmployeeID, a.Method, a.Score, a.AdjustedScore, a.Confidence, a.EstimatedHours, a.AssignedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert assignment %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(batch), nil
}

// ListAssignments returns stored assignments, optionally filtered by status.
func (s *Store) ListAssignments(status string) ([]models.Assignment, error) {
	query := `SELECT id, task_id, employee_id, method, score, adjusted_score, confidence, estimated_hours, assigned_at FROM assignments`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY assigned_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		var a models.Assignment
		var adjusted sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.TaskID, &a.EmployeeID, &a.Method, &a.Score, &adjusted, &a.Confidence, &a.EstimatedHours, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		if adjusted.Valid {
			a.AdjustedScore = adjusted.Float64
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// UpdateAssignmentStatus updates the lifecycle status of an assignment.
func (s *Store) UpdateAssignmentStatus(id, status string) error {
	_, err := s.db.Exec(`UPDATE assignments SET status = ? WHERE id = ?`, status, id)
	return err
}

// --- Training Data Operations ---

// LogTrainingRows appends one training row per finalized assignment.
// Features and names are stored as JSON arrays with positional alignment.
func (s *Store) LogTrainingRows(ctx context.Context, trainingRows []models.TrainingRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range trainingRows {
		featuresJSON, err := json.Marshal(r.Features)
		if err != nil {
			return fmt.Errorf("marshal features: %w", err)
		}
		namesJSON, err := json.Marshal(r.FeatureNames)
		if err != nil {
			return fmt.Errorf("marshal feature names: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO training_rows (id, task_id, employee_id, features, feature_names, score, confidence, method, outcome, logged_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.TaskID, r.EmployeeID, string(featuresJSON), string(namesJSON), r.Score, r.Confidence, r.Method, r.Outcome, r.LoggedAt,
		)
		if err != nil {
			return fmt.Errorf("insert training row %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListTrainingRows returns logged training rows, newest first.
func (s *Store) ListTrainingRows(limit int) ([]models.TrainingRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, task_id, employee_id, features, feature_names, score, confidence, method, outcome, logged_at
		 FROM training_rows ORDER BY logged_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query training rows: %w", err)
	}
	defer rows.Close()

	var out []models.TrainingRow
	for rows.Next() {
		var r models.TrainingRow
		var featuresJSON, namesJSON string
		if err := rows.Scan(&r.ID, &r.TaskID, &r.EmployeeID, &featuresJSON, &namesJSON, &r.Score, &r.Confidence, &r.Method, &r.Outcome, &r.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan training row: %w", err)
		}
		if err := json.Unmarshal([]byte(featuresJSON), &r.Features); err != nil {
			return nil, fmt.Errorf("unmarshal features: %w", err)
		}
		if err := json.Unmarshal([]byte(namesJSON), &r.FeatureNames); err != nil {
			return nil, fmt.Errorf("unmarshal feature names: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordOutcome updates the outcome label of a training row once the real
// result of an assignment is known.
func (s *Store) RecordOutcome(rowID, outcome string) error {
	_, err := s.db.Exec(`UPDATE training_rows SET outcome = ? WHERE id = ?`, outcome, rowID)
	return err
}

// --- Anomaly Operations ---

// SaveAnomalies stores detector findings with status open.
func (s *Store) SaveAnomalies(anomalies []models.Anomaly) error {
	for _, a := range anomalies {
		actionsJSON, err := json.Marshal(a.RecommendedActions)
		if err != nil {
			return fmt.Errorf("marshal actions: %w", err)
		}
		_, err = s.db.Exec(
			`INSERT INTO anomalies (id, anomaly_type, severity, task_id, employee_id, description, recommended_actions, status, detected_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Type, a.Severity, a.TaskID, a.EmployeeID, a.Description, string(actionsJSON), a.Status, a.DetectedAt,
		)
		if err != nil {
			return fmt.Errorf("insert anomaly %s: %w", a.ID, err)
		}
	}
	return nil
}

// ListAnomalies returns anomalies, optionally filtered by status.
func (s *Store) ListAnomalies(status string) ([]models.Anomaly, error) {
	query := `SELECT id, anomaly_type, severity, task_id, employee_id, description, recommended_actions, status, detected_at FROM anomalies`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY detected_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []models.Anomaly
	for rows.Next() {
		var a models.Anomaly
		var taskID, employeeID, description, actionsJSON sql.NullString
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &taskID, &employeeID, &description, &actionsJSON, &a.Status, &a.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.TaskID = taskID.String
		a.EmployeeID = employeeID.String
		a.Description = description.String
		if actionsJSON.Valid && actionsJSON.String != "" {
			json.Unmarshal([]byte(actionsJSON.String), &a.RecommendedActions)
		}
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

// ResolveAnomaly marks an anomaly resolved. Resolution always comes from
// an external collaborator, never from detector scans.
func (s *Store) ResolveAnomaly(id, notes string) error {
	res, err := s.db.Exec(
		`UPDATE anomalies SET status = 'resolved', resolved_at = ?, resolution_notes = ? WHERE id = ? AND status = 'open'`,
		time.Now().UTC(), notes, id,
	)
	if err != nil {
		return fmt.Errorf("resolve anomaly: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("anomaly %s not found or already resolved", id)
	}
	return nil
}

// --- ETA Operations ---

// SaveETA stores an ETA prediction.
func (s *Store) SaveETA(eta models.ETAEstimate) error {
	_, err := s.db.Exec(
		`INSERT INTO eta_predictions (id, task_id, employee_id, predicted_hours, estimated_completion, confidence, source, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), eta.TaskID, eta.EmployeeID, eta.PredictedHours, eta.EstimatedCompletion, eta.Confidence, eta.Source, eta.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert eta prediction: %w", err)
	}
	return nil
}

// LatestETA returns the newest prediction for a task, if any.
func (s *Store) LatestETA(taskID string) (*models.ETAEstimate, error) {
	eta := &models.ETAEstimate{}
	var id string
	err := s.db.QueryRow(
		`SELECT id, task_id, employee_id, predicted_hours, estimated_completion, confidence, source, generated_at
		 FROM eta_predictions WHERE task_id = ? ORDER BY generated_at DESC LIMIT 1`,
		taskID,
	).Scan(&id, &eta.TaskID, &eta.EmployeeID, &eta.PredictedHours, &eta.EstimatedCompletion, &eta.Confidence, &eta.Source, &eta.GeneratedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query eta prediction: %w", err)
	}
	return eta, nil
}

// --- Progress Operations ---

// LogProgress records a progress update and returns the stored row.
func (s *Store) LogProgress(p models.ProgressLog) (*models.ProgressLog, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.LoggedAt.IsZero() {
		p.LoggedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO progress_logs (id, task_id, employee_id, progress_percentage, hours_spent, note, logged_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TaskID, p.EmployeeID, p.ProgressPercent, p.HoursSpent, p.Note, p.LoggedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert progress log: %w", err)
	}
	return &p, nil
}

// ProgressForTask returns progress logs for a task, newest first.
func (s *Store) ProgressForTask(taskID string) ([]models.ProgressLog, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, employee_id, progress_percentage, hours_spent, note, logged_at
		 FROM progress_logs WHERE task_id = ? ORDER BY logged_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ProgressLog
	for rows.Next() {
		var p models.ProgressLog
		var note sql.NullString
		if err := rows.Scan(&p.ID, &p.TaskID, &p.EmployeeID, &p.ProgressPercent, &p.HoursSpent, &note, &p.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan progress log: %w", err)
		}
		p.Note = note.String
		logs = append(logs, p)
	}
	return logs, rows.Err()
}
