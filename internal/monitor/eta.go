package monitor

import (
	"fmt"
	"log"
	"time"

	"github.com/Aniketdhankar/project/internal/features"
	"github.com/Aniketdhankar/project/internal/models"
	"github.com/Aniketdhankar/project/internal/scoring"
)

// ETAConfig configures the ETA predictor's heuristic path.
type ETAConfig struct {
	// WorkdayHours converts predicted effort into calendar days.
	WorkdayHours float64 `json:"workdayHours" yaml:"workdayHours"`
	// WorkloadPenalty scales how much a loaded employee stretches the
	// estimate (predicted *= 1 + penalty*workloadRatio).
	WorkloadPenalty float64 `json:"workloadPenalty" yaml:"workloadPenalty"`
}

// DefaultETAConfig returns the default ETA settings.
func DefaultETAConfig() ETAConfig {
	return ETAConfig{WorkdayHours: 8, WorkloadPenalty: 0.3}
}

const (
	mlETAConfidence       = 0.8
	fallbackETAConfidence = 0.5
)

// ETAPredictor estimates completion times for (task, employee) pairings.
// Like the scoring engine it runs a trained regression when one is loaded
// and a deterministic heuristic otherwise.
type ETAPredictor struct {
	builder *features.Builder
	model   *scoring.Model // hour-scale regression; nil means heuristic only
	cfg     ETAConfig
	clock   func() time.Time
}

// NewETAPredictor creates a predictor. model may be nil.
func NewETAPredictor(builder *features.Builder, model *scoring.Model, cfg ETAConfig) *ETAPredictor {
	if cfg.WorkdayHours <= 0 {
		cfg = DefaultETAConfig()
	}
	return &ETAPredictor{builder: builder, model: model, cfg: cfg, clock: time.Now}
}

// Predict estimates completion for a pairing. It never fails; a model
// inference error degrades to the heuristic.
func (p *ETAPredictor) Predict(emp models.Employee, task models.Task) models.ETAEstimate {
	now := p.clock()

	if p.model != nil {
		fv := p.builder.Vector(emp, task, now)
		hours, err := p.model.Predict(fv)
		if err == nil && hours > 0 {
			return p.estimate(task.ID, emp.ID, hours, mlETAConfidence, models.ETASourceML, nil, now)
		}
		if err != nil {
			log.Printf("Warning: ETA model inference failed, using heuristic: %v", err)
		}
	}

	hours, factors := p.heuristicHours(emp, task)
	return p.estimate(task.ID, emp.ID, hours, fallbackETAConfidence, models.ETASourceFallback, factors, now)
}

// heuristicHours adjusts the task's own estimate by the employee's
// historical completion ratio and current workload.
func (p *ETAPredictor) heuristicHours(emp models.Employee, task models.Task) (float64, []string) {
	base := task.EstimatedHours
	if base <= 0 {
		base = 20
	}
	var factors []string
	factors = append(factors, fmt.Sprintf("base estimate %.1fh", base))

	// Historical pace in (0.5, 1.5]: strong past outcomes shrink the
	// estimate, weak ones stretch it. No history leaves it unchanged.
	success := emp.SuccessRate
	if success <= 0 {
		success = 0.5
	}
	pace := 0.5 + success
	hours := base / pace
	if success != 0.5 {
		factors = append(factors, fmt.Sprintf("historical success rate %.2f", success))
	}

	maxW := emp.MaxWorkload
	if maxW <= 0 {
		maxW = 40
	}
	ratio := emp.CurrentWorkload / maxW
	if ratio > 1 {
		ratio = 1
	}
	if ratio > 0 {
		hours *= 1 + p.cfg.WorkloadPenalty*ratio
		factors = append(factors, fmt.Sprintf("current workload %.0f%% of capacity", ratio*100))
	}

	return hours, factors
}

// Refresh recomputes an estimate from an observed progress update. The
// remaining-time projection blends reported velocity with the original
// estimate; confidence drops when the completion date drifts by more than
// a day and recovers slightly otherwise.
func (p *ETAPredictor) Refresh(assignment models.Assignment, progress models.ProgressLog, original models.ETAEstimate) models.ETAEstimate {
	now := p.clock()

	originalHours := original.PredictedHours
	if originalHours <= 0 {
		originalHours = assignment.EstimatedHours
	}

	pct := clampPct(progress.ProgressPercent)
	var remaining float64
	if pct > 0 && progress.HoursSpent > 0 {
		velocity := pct / progress.HoursSpent // percent per hour
		remaining = (100 - pct) / velocity
	} else {
		// No usable velocity: scale the original estimate linearly.
		remaining = originalHours * (100 - pct) / 100
	}

	// Weighted blend against the original estimate keeps one noisy
	// progress report from swinging the projection.
	adjusted := (remaining + originalHours*0.2) / 1.2

	completion := now.Add(time.Duration(adjusted / p.cfg.WorkdayHours * 24 * float64(time.Hour)))

	confidence := original.Confidence
	if confidence <= 0 {
		confidence = fallbackETAConfidence
	}
	if !original.EstimatedCompletion.IsZero() {
		driftDays := completion.Sub(original.EstimatedCompletion).Hours() / 24
		if driftDays < 0 {
			driftDays = -driftDays
		}
		if driftDays > 1 {
			confidence -= 0.1
		} else {
			confidence += 0.05
		}
	}
	confidence = clamp01(confidence)

	return models.ETAEstimate{
		TaskID:              assignment.TaskID,
		EmployeeID:          assignment.EmployeeID,
		PredictedHours:      adjusted,
		EstimatedCompletion: completion,
		Confidence:          confidence,
		Source:              models.ETASourceProgress,
		Factors: []string{
			fmt.Sprintf("progress %.1f%% after %.1fh", pct, progress.HoursSpent),
			fmt.Sprintf("original estimate %.1fh", originalHours),
		},
		GeneratedAt: now,
	}
}

func (p *ETAPredictor) estimate(taskID, employeeID string, hours, confidence float64, source models.ETASource, factors []string, now time.Time) models.ETAEstimate {
	return models.ETAEstimate{
		TaskID:              taskID,
		EmployeeID:          employeeID,
		PredictedHours:      hours,
		EstimatedCompletion: now.Add(time.Duration(hours / p.cfg.WorkdayHours * 24 * float64(time.Hour))),
		Confidence:          confidence,
		Source:              source,
		Factors:             factors,
		GeneratedAt:         now,
	}
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
