// Package controlplane provides the HTTP API and service layer for the
// allocator daemon.
package controlplane

import (
	"context"
	"log"
	"time"

	"github.com/Aniketdhankar/project/internal/features"
	"github.com/Aniketdhankar/project/internal/metrics"
	"github.com/Aniketdhankar/project/internal/models"
	"github.com/Aniketdhankar/project/internal/monitor"
	"github.com/Aniketdhankar/project/internal/scheduler"
	"github.com/Aniketdhankar/project/internal/scoring"
	"github.com/Aniketdhankar/project/internal/store"
)

// Service provides the allocation business logic behind the HTTP API.
type Service struct {
	engine      *scoring.Engine
	coordinator *scheduler.Coordinator
	detector    *monitor.Detector
	predictor   *monitor.ETAPredictor
	store       *store.Store
	metrics     *metrics.Metrics

	defaultPolicy scheduler.Policy
	constraints   scheduler.Constraints
}

// ServiceConfig collects the collaborators wired into a Service.
type ServiceConfig struct {
	Engine        *scoring.Engine
	Coordinator   *scheduler.Coordinator
	Detector      *monitor.Detector
	Predictor     *monitor.ETAPredictor
	Store         *store.Store
	Metrics       *metrics.Metrics
	DefaultPolicy scheduler.Policy
	Constraints   scheduler.Constraints
}

// NewService creates a new allocation service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		engine:        cfg.Engine,
		coordinator:   cfg.Coordinator,
		detector:      cfg.Detector,
		predictor:     cfg.Predictor,
		store:         cfg.Store,
		metrics:       cfg.Metrics,
		defaultPolicy: cfg.DefaultPolicy,
		constraints:   cfg.Constraints,
	}
	s.coordinator.OnFinalized(s.recordBatchETAs)
	return s
}

// recordBatchETAs predicts and persists an initial ETA for every
// assignment in a freshly finalized batch. Failures are logged, never
// surfaced: the batch itself is already committed.
func (s *Service) recordBatchETAs(batch scheduler.FinalizedBatch) {
	tasks := make(map[string]models.Task, len(batch.Tasks))
	for _, t := range batch.Tasks {
		tasks[t.ID] = t
	}
	employees := make(map[string]models.Employee, len(batch.Employees))
	for _, e := range batch.Employees {
		employees[e.ID] = e
	}
	for _, a := range batch.Preview.Assignments {
		task, okT := tasks[a.TaskID]
		emp, okE := employees[a.EmployeeID]
		if !okT || !okE {
			continue
		}
		eta := s.predictor.Predict(emp, task)
		if err := s.store.SaveETA(eta); err != nil {
			log.Printf("Warning: failed to save ETA for task %s: %v", a.TaskID, err)
		}
	}
}

// resolvePolicy maps a request policy string onto a known policy,
// falling back to the configured default when empty.
func (s *Service) resolvePolicy(policy string) scheduler.Policy {
	if policy == "" {
		return s.defaultPolicy
	}
	return scheduler.Policy(policy)
}

// resolveConstraints merges request overrides over the configured
// constraints. Zero values keep the configured value.
func (s *Service) resolveConstraints(maxPerEmployee int, workloadWeight float64) scheduler.Constraints {
	c := s.constraints
	if maxPerEmployee > 0 {
		c.MaxAssignmentsPerEmployee = maxPerEmployee
	}
	if workloadWeight > 0 {
		c.WorkloadWeight = workloadWeight
	}
	return c
}

// --- Assignment Operations ---

// Preview computes an assignment batch and holds it for later finalize.
// Nothing is persisted.
func (s *Service) Preview(tasks []models.Task, employees []models.Employee, policy string, maxPerEmployee int, workloadWeight float64) (*models.Preview, error) {
	if len(tasks) == 0 || len(employees) == 0 {
		return nil, ErrEmptyBatch
	}

	start := time.Now()
	preview, err := s.coordinator.Preview(tasks, employees, s.resolveConstraints(maxPerEmployee, workloadWeight), s.resolvePolicy(policy))
	if err != nil {
		return nil, err
	}

	s.metrics.PreviewsCreated.Inc()
	s.metrics.TasksUnassigned.Add(float64(len(preview.Unassigned)))
	s.metrics.AssignDuration.Observe(time.Since(start).Seconds())

	log.Printf("Preview %s: %d assignments, %d unassigned (%s)",
		preview.ID, len(preview.Assignments), len(preview.Unassigned), preview.Method)
	return preview, nil
}

// Finalize commits a previously previewed batch exactly once.
func (s *Service) Finalize(ctx context.Context, previewID string) (*models.FinalizeResult, error) {
	result, err := s.coordinator.Finalize(ctx, previewID)
	if err != nil {
		return nil, err
	}

	s.metrics.PreviewsFinalized.Inc()
	s.metrics.AssignmentsPersisted.Add(float64(result.AssignmentsStored))

	log.Printf("Finalized preview %s: %d assignments stored", previewID, result.AssignmentsStored)
	return result, nil
}

// Assign previews and finalizes a batch in one step.
func (s *Service) Assign(ctx context.Context, tasks []models.Task, employees []models.Employee, policy string, maxPerEmployee int, workloadWeight float64) (*models.Preview, *models.FinalizeResult, error) {
	preview, err := s.Preview(tasks, employees, policy, maxPerEmployee, workloadWeight)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.Finalize(ctx, preview.ID)
	if err != nil {
		return nil, nil, err
	}
	return preview, result, nil
}

// ListAssignments returns persisted assignments.
func (s *Service) ListAssignments(status string) ([]models.Assignment, error) {
	return s.store.ListAssignments(status)
}

// --- Candidate Operations ---

// RankedCandidate pairs a scored candidate with the literal skill
// overlap between the employee and the task's requirements.
type RankedCandidate struct {
	models.Candidate
	SkillOverlap features.Overlap `json:"skill_overlap"`
}

// RankCandidates scores every employee for one task, best first.
func (s *Service) RankCandidates(task models.Task, employees []models.Employee, topK int) ([]RankedCandidate, error) {
	if len(employees) == 0 {
		return nil, ErrEmptyBatch
	}
	byID := make(map[string]models.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}
	matcher := s.engine.Builder().Matcher()
	candidates := s.engine.Rank(task, employees, topK)
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, RankedCandidate{
			Candidate:    c,
			SkillOverlap: matcher.Overlap(byID[c.EmployeeID].Skills, task.RequiredSkills),
		})
	}
	return ranked, nil
}

// --- Anomaly Operations ---

// ScanAnomalies runs detection rules against active assignments. Tasks
// and employees come from the request; assignments and progress come
// from the store. Findings are persisted with status open.
func (s *Service) ScanAnomalies(tasks []models.Task, employees []models.Employee) ([]models.Anomaly, error) {
	assignments, err := s.store.ListAssignments("assigned")
	if err != nil {
		return nil, err
	}

	var progress []models.ProgressLog
	seen := make(map[string]bool)
	for _, a := range assignments {
		if seen[a.TaskID] {
			continue
		}
		seen[a.TaskID] = true
		logs, err := s.store.ProgressForTask(a.TaskID)
		if err != nil {
			return nil, err
		}
		progress = append(progress, logs...)
	}

	anomalies := s.detector.Scan(monitor.Snapshot{
		Assignments: assignments,
		Tasks:       tasks,
		Employees:   employees,
		Progress:    progress,
	})

	for _, a := range anomalies {
		s.metrics.AnomaliesDetected.WithLabelValues(string(a.Type)).Inc()
	}

	if len(anomalies) > 0 {
		if err := s.store.SaveAnomalies(anomalies); err != nil {
			log.Printf("warning: failed to persist %d anomalies: %v", len(anomalies), err)
		}
	}

	log.Printf("Anomaly scan: %d assignments checked, %d findings", len(assignments), len(anomalies))
	return anomalies, nil
}

// ListAnomalies returns stored anomalies, optionally filtered by status.
func (s *Service) ListAnomalies(status string) ([]models.Anomaly, error) {
	return s.store.ListAnomalies(status)
}

// ResolveAnomaly closes an open anomaly.
func (s *Service) ResolveAnomaly(id, notes string) error {
	return s.store.ResolveAnomaly(id, notes)
}

// --- ETA Operations ---

// PredictETA estimates completion for a pairing and records the estimate.
func (s *Service) PredictETA(emp models.Employee, task models.Task) (models.ETAEstimate, error) {
	eta := s.predictor.Predict(emp, task)
	if err := s.store.SaveETA(eta); err != nil {
		log.Printf("warning: failed to persist ETA for task %s: %v", task.ID, err)
	}
	return eta, nil
}

// --- Progress Operations ---

// LogProgress records a progress update. When a prior ETA exists for the
// task the estimate is refreshed from the reported velocity.
func (s *Service) LogProgress(p models.ProgressLog) (*models.ProgressLog, *models.ETAEstimate, error) {
	logged, err := s.store.LogProgress(p)
	if err != nil {
		return nil, nil, err
	}

	prior, err := s.store.LatestETA(p.TaskID)
	if err != nil || prior == nil {
		return logged, nil, nil
	}

	assignments, err := s.store.ListAssignments("")
	if err != nil {
		return logged, nil, nil
	}
	for _, a := range assignments {
		if a.TaskID != p.TaskID {
			continue
		}
		refreshed := s.predictor.Refresh(a, *logged, *prior)
		if err := s.store.SaveETA(refreshed); err != nil {
			log.Printf("warning: failed to persist refreshed ETA for task %s: %v", p.TaskID, err)
		}
		return logged, &refreshed, nil
	}
	return logged, nil, nil
}

// ProgressForTask returns progress history for a task, newest first.
func (s *Service) ProgressForTask(taskID string) ([]models.ProgressLog, error) {
	return s.store.ProgressForTask(taskID)
}

// --- Health ---

// Ping checks the storage backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
