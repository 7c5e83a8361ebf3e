// Package monitor watches finalized assignments: it detects anomalies in
// assignment health and re-estimates completion times as progress is
// logged. Both consumers are off the assigner's critical path.
package monitor

import (
	"fmt"
	"log"
	"time"

	"github.com/Aniketdhankar/project/internal/models"
	"github.com/google/uuid"
)

// Thresholds configures anomaly detection. Values are defaults, not tuned
// constants; hosts may override them via config.
type Thresholds struct {
	// OverloadRatio is the workload high-water mark.
	OverloadRatio float64 `json:"overloadRatio" yaml:"overloadRatio"`
	// OverloadMinAssignments is the minimum active assignment count for
	// an overload finding.
	OverloadMinAssignments int `json:"overloadMinAssignments" yaml:"overloadMinAssignments"`
	// DelayRatio is the progress-gap fraction of expected progress that
	// triggers a progress_delay finding.
	DelayRatio float64 `json:"delayRatio" yaml:"delayRatio"`
	// CheckinCadence is the expected progress-report interval.
	CheckinCadence time.Duration `json:"checkinCadence" yaml:"checkinCadence"`
	// StagnationMultiplier scales CheckinCadence into the inactivity
	// window for stagnation findings.
	StagnationMultiplier float64 `json:"stagnationMultiplier" yaml:"stagnationMultiplier"`
	// WorkdayHours converts remaining effort into calendar days.
	WorkdayHours float64 `json:"workdayHours" yaml:"workdayHours"`
}

// DefaultThresholds returns the default detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OverloadRatio:          0.9,
		OverloadMinAssignments: 2,
		DelayRatio:             0.3,
		CheckinCadence:         24 * time.Hour,
		StagnationMultiplier:   3,
		WorkdayHours:           8,
	}
}

// Detector scans active assignments for health anomalies. Scans never
// mutate assignment or employee state; they only emit Anomaly records.
type Detector struct {
	thresholds Thresholds
	clock      func() time.Time
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(t Thresholds) *Detector {
	if t.WorkdayHours <= 0 {
		t = DefaultThresholds()
	}
	return &Detector{thresholds: t, clock: time.Now}
}

// Snapshot carries the inputs of one detector scan.
type Snapshot struct {
	Assignments []models.Assignment
	Tasks       []models.Task
	Employees   []models.Employee
	Progress    []models.ProgressLog
}

// Scan evaluates every rule against every active assignment and each
// employee, returning zero or one anomaly per rule per subject.
func (d *Detector) Scan(snap Snapshot) []models.Anomaly {
	now := d.clock()
	tasks := indexTasks(snap.Tasks)
	employees := indexEmployees(snap.Employees)

	var anomalies []models.Anomaly
	for _, a := range snap.Assignments {
		task, ok := tasks[a.TaskID]
		if !ok {
			continue
		}
		latest, logs := latestProgress(snap.Progress, a.TaskID)

		if an := d.checkDeadlineRisk(a, task, employees[a.EmployeeID], latest, now); an != nil {
			anomalies = append(anomalies, *an)
		}
		if an := d.checkProgressDelay(a, task, latest, now); an != nil {
			anomalies = append(anomalies, *an)
		}
		if an := d.checkStagnation(a, logs, now); an != nil {
			anomalies = append(anomalies, *an)
		}
	}

	counts := assignmentCounts(snap.Assignments)
	for _, emp := range snap.Employees {
		if an := d.checkOverload(emp, counts[emp.ID], now); an != nil {
			anomalies = append(anomalies, *an)
		}
	}

	log.Printf("Anomaly scan complete: %d findings over %d assignments", len(anomalies), len(snap.Assignments))
	return anomalies
}

// checkDeadlineRisk flags assignments whose remaining effort, at the
// employee's historical pace, cannot complete before the task deadline.
func (d *Detector) checkDeadlineRisk(a models.Assignment, task models.Task, emp *models.Employee, latest *models.ProgressLog, now time.Time) *models.Anomaly {
	if task.Deadline == nil || task.EstimatedHours <= 0 {
		return nil
	}

	progress := 0.0
	if latest != nil {
		progress = latest.ProgressPercent
	}
	remaining := task.EstimatedHours * (100 - progress) / 100
	if remaining <= 0 {
		return nil
	}

	pace := 1.0
	if emp != nil && emp.SuccessRate > 0 {
		// Historical pace: low success rates stretch the estimate.
		pace = 0.5 + emp.SuccessRate
	}
	daysNeeded := remaining / pace / d.thresholds.WorkdayHours
	projected := now.Add(time.Duration(daysNeeded * 24 * float64(time.Hour)))

	if !projected.After(*task.Deadline) {
		return nil
	}

	overshootDays := projected.Sub(*task.Deadline).Hours() / 24
	severity := bandLinear(overshootDays, 1, 3, 7)
	return d.newAnomaly(models.AnomalyDeadlineRisk, severity, a.TaskID, a.EmployeeID,
		fmt.Sprintf("Task %s is %.1f%% complete; projected finish overshoots the deadline by %.1f days",
			a.TaskID, progress, overshootDays),
		now)
}

// checkProgressDelay flags assignments whose reported progress trails the
// time already spent on them.
func (d *Detector) checkProgressDelay(a models.Assignment, task models.Task, latest *models.ProgressLog, now time.Time) *models.Anomaly {
	if task.EstimatedHours <= 0 || a.AssignedAt.IsZero() {
		return nil
	}

	estimatedDuration := task.EstimatedHours / d.thresholds.WorkdayHours * 24 // hours of calendar time
	elapsed := now.Sub(a.AssignedAt).Hours()
	expected := elapsed / estimatedDuration * 100
	if expected > 100 {
		expected = 100
	}
	if expected <= 0 {
		return nil
	}

	progress := 0.0
	if latest != nil {
		progress = latest.ProgressPercent
	}
	gap := expected - progress
	if gap <= expected*d.thresholds.DelayRatio {
		return nil
	}

	severity := bandLinear(gap, 20, 35, 50)
	return d.newAnomaly(models.AnomalyProgressDelay, severity, a.TaskID, a.EmployeeID,
		fmt.Sprintf("Progress %.1f%% is behind expected %.1f%% by %.1f points", progress, expected, gap),
		now)
}

// checkStagnation flags in-progress assignments with no progress update
// inside the inactivity window.
func (d *Detector) checkStagnation(a models.Assignment, logs []models.ProgressLog, now time.Time) *models.Anomaly {
	window := time.Duration(float64(d.thresholds.CheckinCadence) * d.thresholds.StagnationMultiplier)

	last := a.AssignedAt
	for _, l := range logs {
		if l.LoggedAt.After(last) {
			last = l.LoggedAt
		}
	}
	if last.IsZero() {
		return nil
	}

	idle := now.Sub(last)
	if idle < window {
		return nil
	}

	idleDays := idle.Hours() / 24
	windowDays := window.Hours() / 24
	severity := bandLinear(idleDays-windowDays, 1, 3, 6)
	return d.newAnomaly(models.AnomalyStagnation, severity, a.TaskID, a.EmployeeID,
		fmt.Sprintf("No progress update for %.1f days", idleDays),
		now)
}

// checkOverload flags employees past the workload high-water mark while
// holding multiple active assignments.
func (d *Detector) checkOverload(emp models.Employee, active int, now time.Time) *models.Anomaly {
	maxW := emp.MaxWorkload
	if maxW <= 0 {
		return nil
	}
	ratio := emp.CurrentWorkload / maxW
	if ratio <= d.thresholds.OverloadRatio || active < d.thresholds.OverloadMinAssignments {
		return nil
	}

	severity := bandLinear(ratio-d.thresholds.OverloadRatio, 0.05, 0.1, 0.2)
	return d.newAnomaly(models.AnomalyOverload, severity, "", emp.ID,
		fmt.Sprintf("Employee %s workload %.1fh is %.0f%% of capacity (%.0fh) across %d active assignments",
			emp.ID, emp.CurrentWorkload, ratio*100, maxW, active),
		now)
}

func (d *Detector) newAnomaly(typ models.AnomalyType, severity models.Severity, taskID, employeeID, description string, now time.Time) *models.Anomaly {
	return &models.Anomaly{
		ID:                 uuid.New().String(),
		Type:               typ,
		Severity:           severity,
		TaskID:             taskID,
		EmployeeID:         employeeID,
		Description:        description,
		RecommendedActions: recommendedActions[typ],
		DetectedAt:         now,
		Status:             "open",
	}
}

// recommendedActions are deterministic per-type templates. Resolution is
// always an external collaborator's call.
var recommendedActions = map[models.AnomalyType][]string{
	models.AnomalyDeadlineRisk: {
		"escalate to the task owner",
		"consider reassigning or splitting the task",
		"re-negotiate the deadline",
	},
	models.AnomalyProgressDelay: {
		"check in with the employee",
		"review blockers on the task",
		"re-estimate remaining effort",
	},
	models.AnomalyOverload: {
		"redistribute upcoming assignments",
		"pause new assignments for this employee",
	},
	models.AnomalyStagnation: {
		"check in with the employee",
		"confirm the task is still active",
		"reassign if unowned",
	},
}

// bandLinear maps how far a metric exceeded its threshold onto severity:
// below the first step is low, then medium, then high, then critical.
func bandLinear(excess, medium, high, critical float64) models.Severity {
	switch {
	case excess >= critical:
		return models.SeverityCritical
	case excess >= high:
		return models.SeverityHigh
	case excess >= medium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func indexTasks(tasks []models.Task) map[string]models.Task {
	m := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	return m
}

func indexEmployees(employees []models.Employee) map[string]*models.Employee {
	m := make(map[string]*models.Employee, len(employees))
	for i := range employees {
		m[employees[i].ID] = &employees[i]
	}
	return m
}

func assignmentCounts(assignments []models.Assignment) map[string]int {
	m := make(map[string]int)
	for _, a := range assignments {
		m[a.EmployeeID]++
	}
	return m
}

func latestProgress(logs []models.ProgressLog, taskID string) (*models.ProgressLog, []models.ProgressLog) {
	var forTask []models.ProgressLog
	var latest *models.ProgressLog
	for i := range logs {
		if logs[i].TaskID != taskID {
			continue
		}
		forTask = append(forTask, logs[i])
		if latest == nil || logs[i].LoggedAt.After(latest.LoggedAt) {
			latest = &logs[i]
		}
	}
	return latest, forTask
}
