// Package scheduler allocates pending tasks to employees under capacity
// constraints and exposes a two-phase preview/finalize workflow.
package scheduler

import "time"

// Policy selects the allocation algorithm for a batch.
type Policy string

const (
	PolicyGreedy   Policy = "greedy"
	PolicyBalanced Policy = "balanced"
)

// Constraints bound a single assignment batch.
type Constraints struct {
	// MaxAssignmentsPerEmployee caps how many tasks one employee may
	// receive within a single batch.
	MaxAssignmentsPerEmployee int `json:"max_assignments_per_employee" yaml:"maxAssignmentsPerEmployee"`
	// WorkloadWeight is the balanced-policy blend weight in [0,1].
	// Higher values favor less-loaded employees over raw score.
	WorkloadWeight float64 `json:"workload_weight" yaml:"workloadWeight"`
}

// DefaultConstraints returns the default batch constraints.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxAssignmentsPerEmployee: 5,
		WorkloadWeight:            0.3,
	}
}

// normalized fills zero values with defaults and reports whether the
// constraints are usable.
func (c Constraints) normalized() (Constraints, bool) {
	def := DefaultConstraints()
	if c.MaxAssignmentsPerEmployee == 0 {
		c.MaxAssignmentsPerEmployee = def.MaxAssignmentsPerEmployee
	}
	if c.WorkloadWeight == 0 {
		c.WorkloadWeight = def.WorkloadWeight
	}
	if c.MaxAssignmentsPerEmployee < 0 || c.WorkloadWeight < 0 || c.WorkloadWeight > 1 {
		return c, false
	}
	return c, true
}

// CoordinatorConfig configures the preview store.
type CoordinatorConfig struct {
	// PreviewTTL bounds how long a preview remains finalizable.
	PreviewTTL time.Duration `json:"previewTTL" yaml:"previewTTL"`
	// SweepInterval controls how often expired previews are removed.
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
	// OnExpired, when set, is invoked after each sweep with the number
	// of previews that expired.
	OnExpired func(n int) `json:"-" yaml:"-"`
}

// DefaultCoordinatorConfig returns the default preview store settings.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		PreviewTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
	}
}
