package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Model is a trained scoring function produced by the offline training
// pipeline. The on-disk format is a JSON document holding a linear model
// over the canonical feature vector plus an optional calibrated confidence.
type Model struct {
	Weights    []float64 `json:"weights"`
	Bias       float64   `json:"bias"`
	Confidence float64   `json:"confidence,omitempty"`
	// Sigmoid squashes the linear output through a logistic function
	// before clamping, matching how the trainer calibrates scores.
	Sigmoid bool `json:"sigmoid,omitempty"`
}

// LoadModel reads a trained model from path. A missing file is not an
// error condition for callers; they construct the engine without a model
// and scoring falls back to the heuristic.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model file: %w", err)
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("model file %s has no weights", path)
	}
	return &m, nil
}

// Predict runs inference over a feature vector and returns a raw score.
// It errors when the vector length does not match the trained weights,
// which callers treat as a recoverable inference failure.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("feature vector length %d does not match model width %d", len(features), len(m.Weights))
	}
	sum := m.Bias
	for i, w := range m.Weights {
		sum += w * features[i]
	}
	if m.Sigmoid {
		sum = 1.0 / (1.0 + math.Exp(-sum))
	}
	return sum, nil
}
