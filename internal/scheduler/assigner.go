package scheduler

import (
	"log"
	"sort"
	"time"

	"github.com/Aniketdhankar/project/internal/models"
	"github.com/Aniketdhankar/project/internal/scoring"
	"github.com/google/uuid"
)

// Assigner runs one allocation batch: it consumes task and employee
// snapshots plus constraints, applies a policy, and returns assignments
// and the unassigned remainder. Input records are treated as read-only;
// all workload bookkeeping is batch-local.
type Assigner struct {
	engine *scoring.Engine
	clock  func() time.Time
}

// NewAssigner creates an assigner on top of a scoring engine.
func NewAssigner(engine *scoring.Engine) *Assigner {
	return &Assigner{engine: engine, clock: time.Now}
}

// Result is the outcome of one assignment batch.
type Result struct {
	Assignments []models.Assignment
	Unassigned  []string // task ids with no eligible candidate
	Summary     models.Summary
}

// batchState tracks in-batch workload and assignment counts so that
// assigning task N constrains the candidate pool for task N+1.
type batchState struct {
	workload map[string]float64
	assigned map[string]int
	maxOf    map[string]float64
}

func newBatchState(employees []models.Employee) *batchState {
	st := &batchState{
		workload: make(map[string]float64, len(employees)),
		assigned: make(map[string]int, len(employees)),
		maxOf:    make(map[string]float64, len(employees)),
	}
	for _, emp := range employees {
		st.workload[emp.ID] = emp.CurrentWorkload
		maxW := emp.MaxWorkload
		if maxW <= 0 {
			maxW = 40
		}
		st.maxOf[emp.ID] = maxW
	}
	return st
}

func (st *batchState) hasCapacity(empID string, hours float64) bool {
	return st.workload[empID]+hours <= st.maxOf[empID]
}

func (st *batchState) ratio(empID string) float64 {
	r := st.workload[empID] / st.maxOf[empID]
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func (st *batchState) record(empID string, hours float64) {
	st.workload[empID] += hours
	st.assigned[empID]++
}

// Assign runs a full batch under the given policy. Tasks that no employee
// can take are reported as unassigned, not errors; only an unknown policy
// or malformed constraints fail the call.
func (a *Assigner) Assign(tasks []models.Task, employees []models.Employee, constraints Constraints, policy Policy) (*Result, error) {
	constraints, ok := constraints.normalized()
	if !ok {
		return nil, ErrInvalidConstraints
	}
	if policy != PolicyGreedy && policy != PolicyBalanced {
		return nil, ErrUnknownPolicy
	}

	log.Printf("Starting %s assignment for %d tasks and %d employees", policy, len(tasks), len(employees))

	st := newBatchState(employees)
	ordered := sortTasks(tasks)
	now := a.clock()

	result := &Result{}
	for _, task := range ordered {
		eligible := a.eligibleEmployees(task, employees, st, constraints)
		if len(eligible) == 0 {
			result.Unassigned = append(result.Unassigned, task.ID)
			continue
		}

		var assignment *models.Assignment
		switch policy {
		case PolicyGreedy:
			assignment = a.pickGreedy(task, eligible, now)
		case PolicyBalanced:
			assignment = a.pickBalanced(task, eligible, st, constraints.WorkloadWeight, now)
		}

		if assignment == nil {
			result.Unassigned = append(result.Unassigned, task.ID)
			continue
		}

		st.record(assignment.EmployeeID, task.EstimatedHours)
		result.Assignments = append(result.Assignments, *assignment)
		log.Printf("Assigned task %s to employee %s (score %.3f, confidence %.3f)",
			task.ID, assignment.EmployeeID, assignment.Score, assignment.Confidence)
	}

	result.Summary = models.Summary{
		TotalTasks:         len(tasks),
		TotalEmployees:     len(employees),
		AssignmentsCreated: len(result.Assignments),
		UnassignedTasks:    len(result.Unassigned),
	}
	return result, nil
}

// sortTasks orders a batch deterministically: priority descending, then
// deadline ascending with nil deadlines last, then id.
func sortTasks(tasks []models.Task) []models.Task {
	ordered := make([]models.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		switch {
		case a.Deadline == nil && b.Deadline == nil:
			// fall through to id
		case a.Deadline == nil:
			return false
		case b.Deadline == nil:
			return true
		case !a.Deadline.Equal(*b.Deadline):
			return a.Deadline.Before(*b.Deadline)
		}
		return a.ID < b.ID
	})
	return ordered
}

// eligibleEmployees filters by availability, in-batch capacity, and the
// per-employee assignment cap.
func (a *Assigner) eligibleEmployees(task models.Task, employees []models.Employee, st *batchState, c Constraints) []models.Employee {
	var eligible []models.Employee
	for _, emp := range employees {
		if emp.Availability != models.AvailabilityAvailable {
			continue
		}
		if st.assigned[emp.ID] >= c.MaxAssignmentsPerEmployee {
			continue
		}
		if !st.hasCapacity(emp.ID, task.EstimatedHours) {
			continue
		}
		eligible = append(eligible, emp)
	}
	return eligible
}

func (a *Assigner) pickGreedy(task models.Task, eligible []models.Employee, now time.Time) *models.Assignment {
	candidates := a.engine.Rank(task, eligible, 1)
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	return a.newAssignment(task, best, string(PolicyGreedy), best.Score, now)
}

// pickBalanced re-weights ranked candidates against the in-batch running
// workload ratio and takes the first that still has capacity.
func (a *Assigner) pickBalanced(task models.Task, eligible []models.Employee, st *batchState, weight float64, now time.Time) *models.Assignment {
	candidates := a.engine.Rank(task, eligible, 0)
	if len(candidates) == 0 {
		return nil
	}

	type adjusted struct {
		models.Candidate
		adjScore float64
	}
	adj := make([]adjusted, len(candidates))
	for i, cand := range candidates {
		factor := 1.0 - st.ratio(cand.EmployeeID)
		adj[i] = adjusted{
			Candidate: cand,
			adjScore:  (1-weight)*cand.Score + weight*factor,
		}
	}
	sort.SliceStable(adj, func(i, j int) bool {
		if adj[i].adjScore != adj[j].adjScore {
			return adj[i].adjScore > adj[j].adjScore
		}
		if adj[i].Score != adj[j].Score {
			return adj[i].Score > adj[j].Score
		}
		return adj[i].EmployeeID < adj[j].EmployeeID
	})

	for _, cand := range adj {
		if !st.hasCapacity(cand.EmployeeID, task.EstimatedHours) {
			continue
		}
		assignment := a.newAssignment(task, cand.Candidate, string(PolicyBalanced), cand.Score, now)
		assignment.AdjustedScore = cand.adjScore
		return assignment
	}
	return nil
}

func (a *Assigner) newAssignment(task models.Task, cand models.Candidate, method string, score float64, now time.Time) *models.Assignment {
	return &models.Assignment{
		ID:             uuid.New().String(),
		TaskID:         task.ID,
		EmployeeID:     cand.EmployeeID,
		Method:         method,
		Score:          score,
		Confidence:     cand.Confidence,
		EstimatedHours: task.EstimatedHours,
		Features:       cand.Features,
		AssignedAt:     now,
	}
}
