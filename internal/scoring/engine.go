// Package scoring wraps a pluggable scoring backend behind a uniform
// (score, confidence) contract and ranks candidate employees for tasks.
package scoring

import (
	"log"
	"sort"
	"time"

	"github.com/Aniketdhankar/project/internal/features"
	"github.com/Aniketdhankar/project/internal/models"
)

// Backend yields a compatibility score for a feature vector. Exactly one
// backend is selected at engine construction; trained models that fail at
// inference time degrade to the heuristic inside the engine, never to the
// caller.
type Backend interface {
	// Score returns (score, confidence), both already clamped to [0,1].
	Score(features []float64) (float64, float64, error)
	// Name identifies the backend in logs.
	Name() string
}

const (
	trainedConfidence   = 0.85
	heuristicConfidence = 0.6
)

// TrainedBackend scores through a loaded model.
type TrainedBackend struct {
	model *Model
}

// NewTrainedBackend wraps a loaded model.
func NewTrainedBackend(m *Model) *TrainedBackend {
	return &TrainedBackend{model: m}
}

func (b *TrainedBackend) Name() string { return "trained" }

func (b *TrainedBackend) Score(fv []float64) (float64, float64, error) {
	raw, err := b.model.Predict(fv)
	if err != nil {
		return 0, 0, err
	}
	conf := b.model.Confidence
	if conf <= 0 {
		conf = trainedConfidence
	}
	return clamp01(raw), clamp01(conf), nil
}

// HeuristicWeights configures the deterministic fallback formula.
type HeuristicWeights struct {
	SkillMatch  float64 `json:"skillMatch" yaml:"skillMatch"`
	Experience  float64 `json:"experience" yaml:"experience"`
	WorkloadFit float64 `json:"workloadFit" yaml:"workloadFit"`
}

// DefaultHeuristicWeights returns the default 0.4/0.3/0.3 blend.
func DefaultHeuristicWeights() HeuristicWeights {
	return HeuristicWeights{SkillMatch: 0.4, Experience: 0.3, WorkloadFit: 0.3}
}

// HeuristicBackend is the deterministic fallback. It reads the skill
// match, experience-complexity ratio, and workload-capacity fit straight
// from the canonical feature vector, so it shares the exact inputs a
// trained model sees.
type HeuristicBackend struct {
	weights HeuristicWeights
}

// NewHeuristicBackend creates the fallback backend.
func NewHeuristicBackend(w HeuristicWeights) *HeuristicBackend {
	return &HeuristicBackend{weights: w}
}

func (b *HeuristicBackend) Name() string { return "heuristic" }

func (b *HeuristicBackend) Score(fv []float64) (float64, float64, error) {
	score := b.weights.SkillMatch*fv[features.IdxSkillMatch] +
		b.weights.Experience*fv[features.IdxExperienceComplexity] +
		b.weights.WorkloadFit*fv[features.IdxWorkloadCapacityFit]
	return clamp01(score), heuristicConfidence, nil
}

// Engine scores (employee, task) pairs and ranks candidates.
type Engine struct {
	builder    *features.Builder
	backend    Backend
	fallback   *HeuristicBackend
	clock      func() time.Time
	onFallback func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithFallbackHook registers a callback invoked each time a trained
// backend fails at inference and the heuristic takes over.
func WithFallbackHook(fn func()) Option {
	return func(e *Engine) { e.onFallback = fn }
}

// NewEngine creates a scoring engine. backend may be nil, in which case
// every score comes from the heuristic fallback.
func NewEngine(builder *features.Builder, backend Backend, weights HeuristicWeights, opts ...Option) *Engine {
	e := &Engine{
		builder:  builder,
		backend:  backend,
		fallback: NewHeuristicBackend(weights),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Builder exposes the feature builder shared with other consumers.
func (e *Engine) Builder() *features.Builder { return e.builder }

// UsingModel reports whether a trained backend is loaded.
func (e *Engine) UsingModel() bool { return e.backend != nil }

// Score returns (score, confidence) for one pair, both in [0,1]. It never
// fails: inference errors fall back to the heuristic with reduced
// confidence.
func (e *Engine) Score(emp models.Employee, task models.Task) (float64, float64) {
	score, conf, _ := e.scoreVector(e.builder.Vector(emp, task, e.clock()))
	return score, conf
}

func (e *Engine) scoreVector(fv []float64) (float64, float64, []float64) {
	if e.backend != nil {
		score, conf, err := e.backend.Score(fv)
		if err == nil {
			return score, conf, fv
		}
		log.Printf("Warning: %s backend inference failed, using heuristic: %v", e.backend.Name(), err)
		if e.onFallback != nil {
			e.onFallback()
		}
	}
	score, conf, _ := e.fallback.Score(fv)
	return score, conf, fv
}

// Rank scores every employee for a task and returns the top-K candidates
// sorted by score descending. Ties break by higher confidence, then by
// lower workload ratio, then by employee id for determinism. topK <= 0
// returns all candidates.
func (e *Engine) Rank(task models.Task, employees []models.Employee, topK int) []models.Candidate {
	now := e.clock()
	candidates := make([]models.Candidate, 0, len(employees))
	for _, emp := range employees {
		fv := e.builder.Vector(emp, task, now)
		score, conf, _ := e.scoreVector(fv)
		candidates = append(candidates, models.Candidate{
			TaskID:        task.ID,
			EmployeeID:    emp.ID,
			EmployeeName:  emp.Name,
			Score:         score,
			Confidence:    conf,
			WorkloadRatio: fv[features.IdxEmployeeWorkloadRatio],
			Features:      fv,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.WorkloadRatio != b.WorkloadRatio {
			return a.WorkloadRatio < b.WorkloadRatio
		}
		return a.EmployeeID < b.EmployeeID
	})

	if topK > 0 && topK < len(candidates) {
		candidates = candidates[:topK]
	}
	return candidates
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
