package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Aniketdhankar/project/internal/models"
	"github.com/google/uuid"
)

// Storage is the external persistence collaborator invoked during
// finalize. PersistAssignments must be a single logical transaction:
// either every assignment in the batch is stored or none are.
type Storage interface {
	PersistAssignments(ctx context.Context, batch []models.Assignment) (int, error)
	LogTrainingRows(ctx context.Context, rows []models.TrainingRow) error
}

// Coordinator wraps the Assigner with a two-phase preview/finalize
// protocol. Previews are held in memory with a bounded lifetime and are
// finalized at most once.
type Coordinator struct {
	assigner *Assigner
	storage  Storage
	names    []string // canonical feature names for training rows
	cfg      CoordinatorConfig
	clock    func() time.Time

	mu          sync.Mutex
	previews    map[string]*heldPreview
	onFinalized func(FinalizedBatch)

	stop chan struct{}
	wg   sync.WaitGroup
}

// heldPreview is the coordinator's mutable wrapper around an immutable
// preview snapshot. consumed flips exactly once, under the lock. The
// task and employee snapshots are kept so post-commit consumers can see
// the entities the batch was computed from.
type heldPreview struct {
	preview   models.Preview
	tasks     []models.Task
	employees []models.Employee
	expires   time.Time
	consumed  bool
}

// FinalizedBatch is handed to the finalize hook after a preview commits.
type FinalizedBatch struct {
	Preview   models.Preview
	Tasks     []models.Task
	Employees []models.Employee
}

// NewCoordinator creates a preview/finalize coordinator.
func NewCoordinator(assigner *Assigner, storage Storage, featureNames []string, cfg CoordinatorConfig) *Coordinator {
	def := DefaultCoordinatorConfig()
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = def.PreviewTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	return &Coordinator{
		assigner: assigner,
		storage:  storage,
		names:    featureNames,
		cfg:      cfg,
		clock:    time.Now,
		previews: make(map[string]*heldPreview),
		stop:     make(chan struct{}),
	}
}

// OnFinalized registers a callback invoked after a preview commits,
// with the persisted preview and the entities it was computed from.
// Register before Start; the hook runs on the finalizing goroutine.
func (c *Coordinator) OnFinalized(fn func(FinalizedBatch)) {
	c.onFinalized = fn
}

// Start begins the background sweep that removes expired previews.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go c.sweepLoop()
}

// Stop halts the sweep loop.
func (c *Coordinator) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Coordinator) sweepLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Coordinator) sweep() {
	now := c.clock()
	expired := 0
	c.mu.Lock()
	for id, held := range c.previews {
		if now.After(held.expires) {
			delete(c.previews, id)
			expired++
		}
	}
	c.mu.Unlock()
	if expired > 0 && c.cfg.OnExpired != nil {
		c.cfg.OnExpired(expired)
	}
}

// Preview runs the assigner and stores the result under a fresh
// collision-resistant identifier. The returned snapshot is a copy; the
// held preview is immutable until finalized or expired.
func (c *Coordinator) Preview(tasks []models.Task, employees []models.Employee, constraints Constraints, policy Policy) (*models.Preview, error) {
	result, err := c.assigner.Assign(tasks, employees, constraints, policy)
	if err != nil {
		return nil, err
	}

	now := c.clock()
	preview := models.Preview{
		ID:          newPreviewID(now),
		CreatedAt:   now,
		Method:      string(policy),
		Assignments: result.Assignments,
		Unassigned:  result.Unassigned,
		Summary:     result.Summary,
	}

	c.mu.Lock()
	c.previews[preview.ID] = &heldPreview{
		preview:   preview,
		tasks:     append([]models.Task(nil), tasks...),
		employees: append([]models.Employee(nil), employees...),
		expires:   now.Add(c.cfg.PreviewTTL),
	}
	c.mu.Unlock()

	log.Printf("Preview %s created: %d assignments, %d unassigned",
		preview.ID, preview.Summary.AssignmentsCreated, preview.Summary.UnassignedTasks)
	return &preview, nil
}

// Finalize commits a preview exactly once. Unknown, expired, and
// already-consumed ids all surface ErrPreviewNotFound. A persistence
// failure releases the consumed flag so the caller can retry finalize.
func (c *Coordinator) Finalize(ctx context.Context, previewID string) (*models.FinalizeResult, error) {
	now := c.clock()

	c.mu.Lock()
	held, ok := c.previews[previewID]
	if !ok || held.consumed || now.After(held.expires) {
		c.mu.Unlock()
		return nil, fmt.Errorf("finalize %s: %w", previewID, ErrPreviewNotFound)
	}
	held.consumed = true
	preview := held.preview
	tasks, employees := held.tasks, held.employees
	c.mu.Unlock()

	stored, err := c.storage.PersistAssignments(ctx, preview.Assignments)
	if err != nil {
		// Leave the preview finalizable so the caller can retry.
		c.mu.Lock()
		held.consumed = false
		c.mu.Unlock()
		return nil, fmt.Errorf("persist assignments for preview %s: %w", previewID, err)
	}

	rows := c.trainingRows(preview, now)
	if err := c.storage.LogTrainingRows(ctx, rows); err != nil {
		// The batch is already committed; losing a training row is not a
		// caller-visible failure.
		log.Printf("Warning: failed to log training rows for preview %s: %v", previewID, err)
	}

	c.mu.Lock()
	delete(c.previews, previewID)
	c.mu.Unlock()

	if c.onFinalized != nil {
		c.onFinalized(FinalizedBatch{Preview: preview, Tasks: tasks, Employees: employees})
	}

	log.Printf("Finalized preview %s: %d assignments stored", previewID, stored)
	return &models.FinalizeResult{
		PreviewID:         previewID,
		FinalizedAt:       now,
		AssignmentsStored: stored,
		Summary:           preview.Summary,
	}, nil
}

func (c *Coordinator) trainingRows(preview models.Preview, now time.Time) []models.TrainingRow {
	rows := make([]models.TrainingRow, 0, len(preview.Assignments))
	for _, a := range preview.Assignments {
		rows = append(rows, models.TrainingRow{
			ID:           uuid.New().String(),
			TaskID:       a.TaskID,
			EmployeeID:   a.EmployeeID,
			Features:     a.Features,
			FeatureNames: c.names,
			Score:        a.Score,
			Confidence:   a.Confidence,
			Method:       a.Method,
			Outcome:      models.OutcomePending,
			LoggedAt:     now,
		})
	}
	return rows
}

// newPreviewID builds a collision-resistant preview identifier from the
// creation timestamp and a random suffix.
func newPreviewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("pvw_%s_%s", now.UTC().Format("20060102150405"), suffix)
}
