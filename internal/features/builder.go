package features

import (
	"strings"
	"time"

	"github.com/Aniketdhankar/project/internal/models"
)

// Feature indices into the vector produced by Builder.Vector. Downstream
// consumers (model inference, heuristic scoring, training-data logging)
// depend on this positional layout staying stable.
const (
	IdxEmployeeExperience = iota
	IdxEmployeeWorkloadRatio
	IdxEmployeeAvailability
	IdxEmployeePerformance
	IdxEmployeeActiveTasks
	IdxEmployeeAvgCompletion
	IdxTaskPriority
	IdxTaskComplexity
	IdxTaskEstimatedHours
	IdxTaskTimePressure
	IdxTaskDependencies
	IdxTaskAge
	IdxSkillMatch
	IdxExperienceComplexity
	IdxWorkloadCapacityFit
	IdxDepartmentMatch
	IdxHistoricalSuccess

	// VectorSize is the fixed length of every feature vector.
	VectorSize = IdxHistoricalSuccess + 1
)

var featureNames = []string{
	"employee_experience",
	"employee_workload_ratio",
	"employee_availability",
	"employee_performance",
	"employee_active_tasks",
	"employee_avg_completion",
	"task_priority",
	"task_complexity",
	"task_estimated_hours",
	"task_time_pressure",
	"task_dependencies",
	"task_age",
	"skill_match_score",
	"experience_complexity_ratio",
	"workload_capacity_fit",
	"department_match",
	"historical_success_rate",
}

// Caps holds the normalization caps used to map raw magnitudes into [0,1].
type Caps struct {
	ExperienceYears    float64 `json:"experienceYears" yaml:"experienceYears"`
	ActiveTasks        float64 `json:"activeTasks" yaml:"activeTasks"`
	AvgCompletionHours float64 `json:"avgCompletionHours" yaml:"avgCompletionHours"`
	EstimatedHours     float64 `json:"estimatedHours" yaml:"estimatedHours"`
	DeadlineDays       float64 `json:"deadlineDays" yaml:"deadlineDays"`
	Dependencies       float64 `json:"dependencies" yaml:"dependencies"`
	AgeDays            float64 `json:"ageDays" yaml:"ageDays"`
}

// DefaultCaps returns the default normalization caps.
func DefaultCaps() Caps {
	return Caps{
		ExperienceYears:    20,
		ActiveTasks:        10,
		AvgCompletionHours: 100,
		EstimatedHours:     80,
		DeadlineDays:       30,
		Dependencies:       5,
		AgeDays:            30,
	}
}

// Defaults used when an input record omits a field. Scoring must always
// succeed on any syntactically valid Employee/Task pair.
const (
	defaultMaxWorkload   = 40.0
	defaultPerformance   = 3.0
	defaultComplexity    = 3.0
	defaultAvgCompletion = 40.0
	defaultSuccessRate   = 0.5
	neutralTimePressure  = 0.5
)

// Builder produces fixed-length, order-stable feature vectors for
// (employee, task) pairs.
type Builder struct {
	matcher *SkillMatcher
	caps    Caps
}

// NewBuilder creates a feature builder with the given matcher and caps.
func NewBuilder(matcher *SkillMatcher, caps Caps) *Builder {
	if matcher == nil {
		matcher = NewSkillMatcher()
	}
	return &Builder{matcher: matcher, caps: caps}
}

// Matcher exposes the underlying skill matcher for overlap reporting.
func (b *Builder) Matcher() *SkillMatcher {
	return b.matcher
}

// Names returns the stable, ordered feature name list.
func (b *Builder) Names() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// Vector builds the 17-dimension feature vector for an (employee, task)
// pair as of the reference time now. It is deterministic and never fails.
func (b *Builder) Vector(emp models.Employee, task models.Task, now time.Time) []float64 {
	v := make([]float64, 0, VectorSize)
	v = append(v, b.employeeFeatures(emp)...)
	v = append(v, b.taskFeatures(task, now)...)
	v = append(v, b.interactionFeatures(emp, task)...)
	return v
}

func (b *Builder) employeeFeatures(emp models.Employee) []float64 {
	maxWorkload := emp.MaxWorkload
	if maxWorkload <= 0 {
		maxWorkload = defaultMaxWorkload
	}
	workloadRatio := clamp01(emp.CurrentWorkload / maxWorkload)

	availability := 0.0
	if emp.Availability == models.AvailabilityAvailable {
		availability = 1.0
	}

	performance := emp.PerformanceRating
	if performance <= 0 {
		performance = defaultPerformance
	}

	avgCompletion := emp.AvgCompletionHours
	if avgCompletion <= 0 {
		avgCompletion = defaultAvgCompletion
	}

	return []float64{
		clamp01(emp.ExperienceYears / b.caps.ExperienceYears),
		workloadRatio,
		availability,
		clamp01(performance / 5.0),
		clamp01(float64(emp.ActiveTasks) / b.caps.ActiveTasks),
		clamp01(avgCompletion / b.caps.AvgCompletionHours),
	}
}

var priorityScale = map[models.Priority]float64{
	models.PriorityLow:      0.25,
	models.PriorityMedium:   0.5,
	models.PriorityHigh:     0.75,
	models.PriorityCritical: 1.0,
}

func (b *Builder) taskFeatures(task models.Task, now time.Time) []float64 {
	priority, ok := priorityScale[task.Priority]
	if !ok {
		priority = priorityScale[models.PriorityMedium]
	}

	complexity := task.ComplexityScore
	if complexity <= 0 {
		complexity = defaultComplexity
	}

	timePressure := neutralTimePressure
	if task.Deadline != nil {
		days := task.Deadline.Sub(now).Hours() / 24
		timePressure = clamp01(1.0 - clamp01(days/b.caps.DeadlineDays))
	}

	age := 0.0
	if !task.CreatedAt.IsZero() {
		ageDays := now.Sub(task.CreatedAt).Hours() / 24
		if ageDays > 0 {
			age = clamp01(ageDays / b.caps.AgeDays)
		}
	}

	return []float64{
		priority,
		clamp01(complexity / 5.0),
		clamp01(task.EstimatedHours / b.caps.EstimatedHours),
		timePressure,
		clamp01(float64(task.DependencyCount) / b.caps.Dependencies),
		age,
	}
}

func (b *Builder) interactionFeatures(emp models.Employee, task models.Task) []float64 {
	skillMatch := b.matcher.Similarity(emp.Skills, task.RequiredSkills)

	complexity := task.ComplexityScore
	if complexity <= 0 {
		complexity = defaultComplexity
	}
	expComplexity := clamp01(emp.ExperienceYears / complexity / 2.0)

	maxWorkload := emp.MaxWorkload
	if maxWorkload <= 0 {
		maxWorkload = defaultMaxWorkload
	}
	capacityFit := 0.0
	if task.EstimatedHours > 0 {
		remaining := maxWorkload - emp.CurrentWorkload
		capacityFit = clamp01(remaining / task.EstimatedHours)
	}

	deptMatch := 0.0
	if emp.Department != "" && strings.EqualFold(emp.Department, task.Department) {
		deptMatch = 1.0
	}

	success := emp.SuccessRate
	if success <= 0 {
		success = defaultSuccessRate
	}

	return []float64{
		skillMatch,
		expComplexity,
		capacityFit,
		deptMatch,
		clamp01(success),
	}
}
