// Package models defines the core domain types for the allocation engine.
package models

import "time"

// Availability represents an employee's current availability state.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityOnLeave   Availability = "on_leave"
)

// Priority represents task priority. Values are totally ordered,
// critical highest.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the ordering rank of a priority. Unknown values rank as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// Employee is an immutable snapshot of a worker for one scheduling call.
// The core never mutates these records; batch-local workload bookkeeping
// lives inside the assigner.
type Employee struct {
	ID                 string       `json:"employee_id"`
	Name               string       `json:"name,omitempty"`
	Department         string       `json:"department,omitempty"`
	Skills             string       `json:"skills"` // comma- or semicolon-separated tags
	ExperienceYears    float64      `json:"experience_years"`
	CurrentWorkload    float64      `json:"current_workload"` // hours
	MaxWorkload        float64      `json:"max_workload"`     // hours
	Availability       Availability `json:"availability_status"`
	PerformanceRating  float64      `json:"performance_rating"` // 0-5
	ActiveTasks        int          `json:"active_tasks"`
	AvgCompletionHours float64      `json:"avg_completion_hours,omitempty"`
	// SuccessRate is the rolling average of past assignment outcomes in
	// [0,1]. Zero means no history; consumers default it to 0.5.
	SuccessRate float64 `json:"success_rate,omitempty"`
}

// Task is an immutable snapshot of a pending unit of work.
type Task struct {
	ID              string     `json:"task_id"`
	Title           string     `json:"title,omitempty"`
	Department      string     `json:"department,omitempty"`
	RequiredSkills  string     `json:"required_skills"`
	Priority        Priority   `json:"priority"`
	EstimatedHours  float64    `json:"estimated_hours"`
	ComplexityScore float64    `json:"complexity_score"` // 1-5
	Deadline        *time.Time `json:"deadline,omitempty"`
	DependencyCount int        `json:"dependency_count"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
}

// Candidate is a scored (employee, task) pairing considered during
// ranking. Ephemeral; never persisted by the core.
type Candidate struct {
	TaskID        string    `json:"task_id"`
	EmployeeID    string    `json:"employee_id"`
	EmployeeName  string    `json:"employee_name,omitempty"`
	Score         float64   `json:"score"`
	Confidence    float64   `json:"confidence"`
	WorkloadRatio float64   `json:"workload_ratio"`
	Features      []float64 `json:"features,omitempty"`
}

// Assignment is a committed or proposed pairing of a task to an employee.
type Assignment struct {
	ID             string    `json:"assignment_id"`
	TaskID         string    `json:"task_id"`
	EmployeeID     string    `json:"employee_id"`
	Method         string    `json:"assignment_method"` // "greedy" or "balanced"
	Score          float64   `json:"assignment_score"`
	AdjustedScore  float64   `json:"adjusted_score,omitempty"` // balanced only
	Confidence     float64   `json:"confidence"`
	EstimatedHours float64   `json:"estimated_hours"`
	Features       []float64 `json:"features,omitempty"` // snapshot for training-data logging
	AssignedAt     time.Time `json:"assigned_at"`
}

// Summary reports the bookkeeping of one assignment batch.
// AssignmentsCreated + UnassignedTasks always equals TotalTasks.
type Summary struct {
	TotalTasks         int `json:"total_tasks"`
	TotalEmployees     int `json:"total_employees"`
	AssignmentsCreated int `json:"assignments_created"`
	UnassignedTasks    int `json:"unassigned_tasks"`
}

// Preview is an immutable, named snapshot of a proposed assignment batch
// awaiting finalize.
type Preview struct {
	ID          string       `json:"preview_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Method      string       `json:"method"`
	Assignments []Assignment `json:"assignments"`
	Unassigned  []string     `json:"unassigned_tasks"`
	Summary     Summary      `json:"summary"`
}

// FinalizeResult reports the one-time commit of a preview.
type FinalizeResult struct {
	PreviewID         string    `json:"preview_id"`
	FinalizedAt       time.Time `json:"finalized_at"`
	AssignmentsStored int       `json:"assignments_stored"`
	Summary           Summary   `json:"summary"`
}

// TrainingRow is the structured record logged per finalized assignment for
// future model retraining. Features and FeatureNames are positional and
// must stay aligned.
type TrainingRow struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	EmployeeID   string    `json:"employee_id"`
	Features     []float64 `json:"features"`
	FeatureNames []string  `json:"feature_names"`
	Score        float64   `json:"score"`
	Confidence   float64   `json:"confidence"`
	Method       string    `json:"method"`
	Outcome      string    `json:"outcome"` // "pending" until an outcome is recorded
	LoggedAt     time.Time `json:"logged_at"`
}

// OutcomePending is the initial outcome of a logged training row.
const OutcomePending = "pending"

// AnomalyType classifies a detected deviation in an active assignment.
type AnomalyType string

const (
	AnomalyDeadlineRisk  AnomalyType = "deadline_risk"
	AnomalyProgressDelay AnomalyType = "progress_delay"
	AnomalyOverload      AnomalyType = "overload"
	AnomalyStagnation    AnomalyType = "stagnation"
)

// Severity bands how far a metric exceeded its threshold.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Anomaly is emitted by detector scans. The core never resolves anomalies;
// an external collaborator flips Status to "resolved".
type Anomaly struct {
	ID                 string      `json:"anomaly_id"`
	Type               AnomalyType `json:"anomaly_type"`
	Severity           Severity    `json:"severity"`
	TaskID             string      `json:"task_id,omitempty"`
	EmployeeID         string      `json:"employee_id,omitempty"`
	Description        string      `json:"description"`
	RecommendedActions []string    `json:"recommended_actions"`
	DetectedAt         time.Time   `json:"detected_at"`
	Status             string      `json:"status"` // "open" or "resolved"
}

// ETASource identifies which backend produced an estimate.
type ETASource string

const (
	ETASourceML       ETASource = "ml"
	ETASourceFallback ETASource = "fallback"
	ETASourceProgress ETASource = "progress_adjusted"
)

// ETAEstimate is a predicted completion for a (task, employee) pairing.
type ETAEstimate struct {
	TaskID              string    `json:"task_id"`
	EmployeeID          string    `json:"employee_id"`
	PredictedHours      float64   `json:"predicted_hours"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
	Confidence          float64   `json:"confidence"`
	Source              ETASource `json:"source"`
	Factors             []string  `json:"factors,omitempty"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// ProgressLog is a reported progress update against an active assignment.
type ProgressLog struct {
	ID              string    `json:"log_id"`
	TaskID          string    `json:"task_id"`
	EmployeeID      string    `json:"employee_id"`
	ProgressPercent float64   `json:"progress_percentage"` // 0-100
	HoursSpent      float64   `json:"hours_spent"`
	Note            string    `json:"note,omitempty"`
	LoggedAt        time.Time `json:"logged_at"`
}
