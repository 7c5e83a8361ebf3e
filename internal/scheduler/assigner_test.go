package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aniketdhankar/project/internal/features"
	"github.com/Aniketdhankar/project/internal/models"
	"github.com/Aniketdhankar/project/internal/scoring"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestAssigner() *Assigner {
	builder := features.NewBuilder(features.NewSkillMatcher(), features.DefaultCaps())
	engine := scoring.NewEngine(builder, nil, scoring.DefaultHeuristicWeights(),
		scoring.WithClock(func() time.Time { return testNow }))
	a := NewAssigner(engine)
	a.clock = func() time.Time { return testNow }
	return a
}

func employee(id string, workload, maxWorkload float64) models.Employee {
	return models.Employee{
		ID:              id,
		Skills:          "python, go",
		ExperienceYears: 8,
		CurrentWorkload: workload,
		MaxWorkload:     maxWorkload,
		Availability:    models.AvailabilityAvailable,
		SuccessRate:     0.7,
	}
}

func task(id string, hours float64, priority models.Priority) models.Task {
	return models.Task{
		ID:              id,
		RequiredSkills:  "python, go",
		Priority:        priority,
		EstimatedHours:  hours,
		ComplexityScore: 3,
	}
}

func TestAssignValidation(t *testing.T) {
	a := newTestAssigner()
	tasks := []models.Task{task("t1", 10, models.PriorityMedium)}
	employees := []models.Employee{employee("e1", 0, 40)}

	t.Run("unknown policy", func(t *testing.T) {
		_, err := a.Assign(tasks, employees, DefaultConstraints(), Policy("random"))
		require.ErrorIs(t, err, ErrUnknownPolicy)
	})

	t.Run("negative constraint", func(t *testing.T) {
		c := Constraints{MaxAssignmentsPerEmployee: -1}
		_, err := a.Assign(tasks, employees, c, PolicyGreedy)
		require.ErrorIs(t, err, ErrInvalidConstraints)
	})

	t.Run("workload weight above one", func(t *testing.T) {
		c := Constraints{WorkloadWeight: 1.5}
		_, err := a.Assign(tasks, employees, c, PolicyBalanced)
		require.ErrorIs(t, err, ErrInvalidConstraints)
	})

	t.Run("zero constraints take defaults", func(t *testing.T) {
		result, err := a.Assign(tasks, employees, Constraints{}, PolicyGreedy)
		require.NoError(t, err)
		require.Len(t, result.Assignments, 1)
	})
}

func TestAssignAccounting(t *testing.T) {
	a := newTestAssigner()

	tasks := []models.Task{
		task("t1", 20, models.PriorityHigh),
		task("t2", 20, models.PriorityMedium),
		task("t3", 200, models.PriorityLow), // nobody can hold 200h
	}
	employees := []models.Employee{employee("e1", 0, 40), employee("e2", 0, 40)}

	result, err := a.Assign(tasks, employees, DefaultConstraints(), PolicyGreedy)
	require.NoError(t, err)

	require.Equal(t, len(tasks), result.Summary.TotalTasks)
	require.Equal(t, len(employees), result.Summary.TotalEmployees)
	require.Equal(t, len(result.Assignments), result.Summary.AssignmentsCreated)
	require.Equal(t, len(result.Unassigned), result.Summary.UnassignedTasks)
	require.Equal(t, result.Summary.TotalTasks,
		result.Summary.AssignmentsCreated+result.Summary.UnassignedTasks)
	require.Contains(t, result.Unassigned, "t3")
}

func TestAssignCapacity(t *testing.T) {
	a := newTestAssigner()

	t.Run("batch-local workload blocks overflow", func(t *testing.T) {
		// One employee with 40h capacity cannot take three 20h tasks.
		tasks := []models.Task{
			task("t1", 20, models.PriorityMedium),
			task("t2", 20, models.PriorityMedium),
			task("t3", 20, models.PriorityMedium),
		}
		employees := []models.Employee{employee("e1", 0, 40)}

		result, err := a.Assign(tasks, employees, DefaultConstraints(), PolicyGreedy)
		require.NoError(t, err)
		require.Len(t, result.Assignments, 2)
		require.Len(t, result.Unassigned, 1)
	})

	t.Run("input employees are not mutated", func(t *testing.T) {
		employees := []models.Employee{employee("e1", 10, 40)}
		tasks := []models.Task{task("t1", 20, models.PriorityMedium)}

		_, err := a.Assign(tasks, employees, DefaultConstraints(), PolicyGreedy)
		require.NoError(t, err)
		require.Equal(t, 10.0, employees[0].CurrentWorkload)
	})

	t.Run("per-employee assignment cap", func(t *testing.T) {
		tasks := []models.Task{
			task("t1", 5, models.PriorityMedium),
			task("t2", 5, models.PriorityMedium),
		}
		employees := []models.Employee{employee("e1", 0, 40)}
		c := DefaultConstraints()
		c.MaxAssignmentsPerEmployee = 1

		result, err := a.Assign(tasks, employees, c, PolicyGreedy)
		require.NoError(t, err)
		require.Len(t, result.Assignments, 1)
		require.Len(t, result.Unassigned, 1)
	})

	t.Run("unavailable employees are skipped", func(t *testing.T) {
		busy := employee("e1", 0, 40)
		busy.Availability = models.AvailabilityOnLeave

		result, err := a.Assign(
			[]models.Task{task("t1", 10, models.PriorityMedium)},
			[]models.Employee{busy},
			DefaultConstraints(), PolicyGreedy)
		require.NoError(t, err)
		require.Empty(t, result.Assignments)
		require.Equal(t, []string{"t1"}, result.Unassigned)
	})
}

func TestAssignPriorityOrder(t *testing.T) {
	a := newTestAssigner()

	// Capacity for exactly one task; the critical one must win even
	// though it appears last in the input.
	tasks := []models.Task{
		task("t-low", 30, models.PriorityLow),
		task("t-critical", 30, models.PriorityCritical),
	}
	employees := []models.Employee{employee("e1", 0, 40)}

	result, err := a.Assign(tasks, employees, DefaultConstraints(), PolicyGreedy)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)
	require.Equal(t, "t-critical", result.Assignments[0].TaskID)
	require.Equal(t, []string{"t-low"}, result.Unassigned)
}

func TestAssignDeadlineTieBreak(t *testing.T) {
	a := newTestAssigner()

	soon := testNow.Add(24 * time.Hour)
	later := testNow.Add(10 * 24 * time.Hour)

	tSoon := task("t-soon", 30, models.PriorityHigh)
	tSoon.Deadline = &soon
	tLater := task("t-later", 30, models.PriorityHigh)
	tLater.Deadline = &later
	tNone := task("t-none", 30, models.PriorityHigh)

	// Room for one assignment; equal priorities fall back to the
	// earliest deadline, with nil deadlines last.
	result, err := a.Assign(
		[]models.Task{tNone, tLater, tSoon},
		[]models.Employee{employee("e1", 0, 40)},
		DefaultConstraints(), PolicyGreedy)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)
	require.Equal(t, "t-soon", result.Assignments[0].TaskID)
}

func TestAssignGreedyConcentrates(t *testing.T) {
	a := newTestAssigner()

	// Two identical employees, two identical tasks. Greedy resolves the
	// score tie by id both times and stacks both tasks on e1.
	tasks := []models.Task{
		task("t1", 5, models.PriorityMedium),
		task("t2", 5, models.PriorityMedium),
	}
	employees := []models.Employee{employee("e1", 0, 40), employee("e2", 0, 40)}

	result, err := a.Assign(tasks, employees, DefaultConstraints(), PolicyGreedy)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)
	require.Equal(t, "e1", result.Assignments[0].EmployeeID)
	require.Equal(t, "e1", result.Assignments[1].EmployeeID)
	for _, asg := range result.Assignments {
		require.Equal(t, string(PolicyGreedy), asg.Method)
	}
}

func TestAssignBalancedSpreads(t *testing.T) {
	a := newTestAssigner()

	t.Run("second task moves to the idle employee", func(t *testing.T) {
		tasks := []models.Task{
			task("t1", 20, models.PriorityMedium),
			task("t2", 20, models.PriorityMedium),
		}
		employees := []models.Employee{employee("e1", 0, 40), employee("e2", 0, 40)}

		result, err := a.Assign(tasks, employees, DefaultConstraints(), PolicyBalanced)
		require.NoError(t, err)
		require.Len(t, result.Assignments, 2)

		assignees := map[string]bool{}
		for _, asg := range result.Assignments {
			assignees[asg.EmployeeID] = true
			require.Equal(t, string(PolicyBalanced), asg.Method)
			require.NotZero(t, asg.AdjustedScore)
		}
		require.Len(t, assignees, 2)
	})

	t.Run("prefers less loaded employee on equal scores", func(t *testing.T) {
		// Same skills and capacity fit, but e-busy already carries load.
		idle := employee("e-idle", 2, 40)
		busy := employee("e-busy", 30, 40)

		result, err := a.Assign(
			[]models.Task{task("t1", 5, models.PriorityMedium)},
			[]models.Employee{busy, idle},
			DefaultConstraints(), PolicyBalanced)
		require.NoError(t, err)
		require.Len(t, result.Assignments, 1)
		require.Equal(t, "e-idle", result.Assignments[0].EmployeeID)
	})
}

func TestAssignmentFields(t *testing.T) {
	a := newTestAssigner()

	result, err := a.Assign(
		[]models.Task{task("t1", 10, models.PriorityHigh)},
		[]models.Employee{employee("e1", 0, 40)},
		DefaultConstraints(), PolicyGreedy)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)

	asg := result.Assignments[0]
	require.NotEmpty(t, asg.ID)
	require.Equal(t, "t1", asg.TaskID)
	require.Equal(t, "e1", asg.EmployeeID)
	require.Equal(t, 10.0, asg.EstimatedHours)
	require.Len(t, asg.Features, features.VectorSize)
	require.Equal(t, testNow, asg.AssignedAt)
	require.GreaterOrEqual(t, asg.Score, 0.0)
	require.LessOrEqual(t, asg.Score, 1.0)
}
