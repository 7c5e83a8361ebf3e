package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aniketdhankar/project/internal/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testEmployee() models.Employee {
	return models.Employee{
		ID:                 "emp-1",
		Name:               "Dana",
		Department:         "Engineering",
		Skills:             "python, go",
		ExperienceYears:    10,
		CurrentWorkload:    20,
		MaxWorkload:        40,
		Availability:       models.AvailabilityAvailable,
		PerformanceRating:  4,
		ActiveTasks:        2,
		AvgCompletionHours: 50,
		SuccessRate:        0.8,
	}
}

func testTask() models.Task {
	return models.Task{
		ID:              "task-1",
		Title:           "Build ingestion service",
		Department:      "Engineering",
		RequiredSkills:  "python, go",
		Priority:        models.PriorityHigh,
		EstimatedHours:  20,
		ComplexityScore: 4,
		CreatedAt:       testNow.Add(-3 * 24 * time.Hour),
	}
}

func TestVectorShape(t *testing.T) {
	b := NewBuilder(NewSkillMatcher(), DefaultCaps())

	fv := b.Vector(testEmployee(), testTask(), testNow)
	require.Len(t, fv, VectorSize)
	require.Len(t, b.Names(), VectorSize)

	for i, v := range fv {
		require.GreaterOrEqual(t, v, 0.0, "feature %s", b.Names()[i])
		require.LessOrEqual(t, v, 1.0, "feature %s", b.Names()[i])
	}
}

func TestVectorDeterministic(t *testing.T) {
	b := NewBuilder(NewSkillMatcher(), DefaultCaps())
	emp, task := testEmployee(), testTask()

	first := b.Vector(emp, task, testNow)
	second := b.Vector(emp, task, testNow)
	require.Equal(t, first, second)
}

func TestEmployeeFeatures(t *testing.T) {
	b := NewBuilder(NewSkillMatcher(), DefaultCaps())

	t.Run("known values normalize against caps", func(t *testing.T) {
		fv := b.Vector(testEmployee(), testTask(), testNow)
		require.InDelta(t, 0.5, fv[IdxEmployeeExperience], 1e-9)    // 10/20
		require.InDelta(t, 0.5, fv[IdxEmployeeWorkloadRatio], 1e-9) // 20/40
		require.InDelta(t, 1.0, fv[IdxEmployeeAvailability], 1e-9)
		require.InDelta(t, 0.8, fv[IdxEmployeePerformance], 1e-9) // 4/5
		require.InDelta(t, 0.2, fv[IdxEmployeeActiveTasks], 1e-9) // 2/10
		require.InDelta(t, 0.5, fv[IdxEmployeeAvgCompletion], 1e-9)
	})

	t.Run("missing fields take documented defaults", func(t *testing.T) {
		fv := b.Vector(models.Employee{ID: "bare"}, testTask(), testNow)
		require.InDelta(t, 0.6, fv[IdxEmployeePerformance], 1e-9)   // default rating 3/5
		require.InDelta(t, 0.5, fv[IdxHistoricalSuccess], 1e-9)     // no history
		require.InDelta(t, 0.0, fv[IdxEmployeeWorkloadRatio], 1e-9) // 0/default 40
		require.InDelta(t, 0.0, fv[IdxEmployeeAvailability], 1e-9)  // not available
	})

	t.Run("busy employee availability is zero", func(t *testing.T) {
		emp := testEmployee()
		emp.Availability = models.AvailabilityBusy
		fv := b.Vector(emp, testTask(), testNow)
		require.Equal(t, 0.0, fv[IdxEmployeeAvailability])
	})
}

func TestTaskFeatures(t *testing.T) {
	b := NewBuilder(NewSkillMatcher(), DefaultCaps())

	t.Run("priority scale", func(t *testing.T) {
		task := testTask()
		for prio, want := range map[models.Priority]float64{
			models.PriorityLow:      0.25,
			models.PriorityMedium:   0.5,
			models.PriorityHigh:     0.75,
			models.PriorityCritical: 1.0,
			models.Priority("??"):   0.5, // unknown maps to medium
		} {
			task.Priority = prio
			fv := b.Vector(testEmployee(), task, testNow)
			require.InDelta(t, want, fv[IdxTaskPriority], 1e-9, "priority %s", prio)
		}
	})

	t.Run("no deadline means neutral time pressure", func(t *testing.T) {
		fv := b.Vector(testEmployee(), testTask(), testNow)
		require.InDelta(t, 0.5, fv[IdxTaskTimePressure], 1e-9)
	})

	t.Run("near deadline raises time pressure", func(t *testing.T) {
		near, far := testTask(), testTask()
		soon := testNow.Add(24 * time.Hour)
		later := testNow.Add(29 * 24 * time.Hour)
		near.Deadline = &soon
		far.Deadline = &later

		nearFV := b.Vector(testEmployee(), near, testNow)
		farFV := b.Vector(testEmployee(), far, testNow)
		require.Greater(t, nearFV[IdxTaskTimePressure], farFV[IdxTaskTimePressure])
	})

	t.Run("overdue deadline saturates at 1", func(t *testing.T) {
		task := testTask()
		past := testNow.Add(-48 * time.Hour)
		task.Deadline = &past
		fv := b.Vector(testEmployee(), task, testNow)
		require.InDelta(t, 1.0, fv[IdxTaskTimePressure], 1e-9)
	})

	t.Run("task age normalizes against cap", func(t *testing.T) {
		fv := b.Vector(testEmployee(), testTask(), testNow)
		require.InDelta(t, 0.1, fv[IdxTaskAge], 1e-9) // 3/30 days
	})
}

func TestInteractionFeatures(t *testing.T) {
	b := NewBuilder(NewSkillMatcher(), DefaultCaps())

	t.Run("perfect skill match", func(t *testing.T) {
		fv := b.Vector(testEmployee(), testTask(), testNow)
		require.InDelta(t, 1.0, fv[IdxSkillMatch], 1e-9)
	})

	t.Run("capacity fit reflects remaining hours", func(t *testing.T) {
		emp := testEmployee() // 20h free
		task := testTask()

		task.EstimatedHours = 20
		fv := b.Vector(emp, task, testNow)
		require.InDelta(t, 1.0, fv[IdxWorkloadCapacityFit], 1e-9)

		task.EstimatedHours = 40
		fv = b.Vector(emp, task, testNow)
		require.InDelta(t, 0.5, fv[IdxWorkloadCapacityFit], 1e-9)

		task.EstimatedHours = 0
		fv = b.Vector(emp, task, testNow)
		require.Equal(t, 0.0, fv[IdxWorkloadCapacityFit])
	})

	t.Run("department match is binary and case-insensitive", func(t *testing.T) {
		emp, task := testEmployee(), testTask()
		emp.Department = "engineering"
		fv := b.Vector(emp, task, testNow)
		require.Equal(t, 1.0, fv[IdxDepartmentMatch])

		emp.Department = "Sales"
		fv = b.Vector(emp, task, testNow)
		require.Equal(t, 0.0, fv[IdxDepartmentMatch])

		emp.Department = ""
		fv = b.Vector(emp, task, testNow)
		require.Equal(t, 0.0, fv[IdxDepartmentMatch])
	})

	t.Run("experience complexity ratio", func(t *testing.T) {
		fv := b.Vector(testEmployee(), testTask(), testNow)
		// 10 years / complexity 4 / 2 = 1.25, clamped to 1
		require.InDelta(t, 1.0, fv[IdxExperienceComplexity], 1e-9)
	})
}

func TestNamesAlignWithIndices(t *testing.T) {
	b := NewBuilder(NewSkillMatcher(), DefaultCaps())
	names := b.Names()

	require.Equal(t, "employee_experience", names[IdxEmployeeExperience])
	require.Equal(t, "skill_match_score", names[IdxSkillMatch])
	require.Equal(t, "workload_capacity_fit", names[IdxWorkloadCapacityFit])
	require.Equal(t, "historical_success_rate", names[IdxHistoricalSuccess])

	// Names() hands out a copy; mutating it must not leak back.
	names[0] = "tampered"
	require.Equal(t, "employee_experience", b.Names()[0])
}
