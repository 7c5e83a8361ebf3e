package main

import (
	"log"

	"github.com/Aniketdhankar/project/internal/config"
	"github.com/Aniketdhankar/project/internal/features"
	"github.com/Aniketdhankar/project/internal/monitor"
	"github.com/Aniketdhankar/project/internal/scheduler"
	"github.com/Aniketdhankar/project/internal/scoring"
)

// components bundles the scoring and monitoring collaborators assembled
// from one config.
type components struct {
	builder   *features.Builder
	engine    *scoring.Engine
	assigner  *scheduler.Assigner
	detector  *monitor.Detector
	predictor *monitor.ETAPredictor
}

// buildComponents wires the feature builder, scoring engine, assigner,
// detector, and ETA predictor from config. Missing model files degrade
// to heuristics with a warning.
func buildComponents(cfg *config.Config, engineOpts ...scoring.Option) *components {
	builder := features.NewBuilder(features.NewSkillMatcher(), cfg.Caps)

	var backend scoring.Backend
	if cfg.ScoringModelPath != "" {
		model, err := scoring.LoadModel(cfg.ScoringModelPath)
		if err != nil {
			log.Printf("Warning: failed to load scoring model from %s: %v (using heuristic)", cfg.ScoringModelPath, err)
		} else {
			backend = scoring.NewTrainedBackend(model)
			log.Printf("Loaded scoring model from %s", cfg.ScoringModelPath)
		}
	}
	engine := scoring.NewEngine(builder, backend, cfg.Heuristic, engineOpts...)

	var etaModel *scoring.Model
	if cfg.ETAModelPath != "" {
		m, err := scoring.LoadModel(cfg.ETAModelPath)
		if err != nil {
			log.Printf("Warning: failed to load ETA model from %s: %v (using fallback)", cfg.ETAModelPath, err)
		} else {
			etaModel = m
			log.Printf("Loaded ETA model from %s", cfg.ETAModelPath)
		}
	}

	return &components{
		builder:   builder,
		engine:    engine,
		assigner:  scheduler.NewAssigner(engine),
		detector:  monitor.NewDetector(cfg.Thresholds),
		predictor: monitor.NewETAPredictor(builder, etaModel, cfg.ETA),
	}
}
