// Package config loads allocator configuration from a YAML file with
// sensible defaults for every field.
package config

import (
	"fmt"
	"os"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/Aniketdhankar/project/internal/features"
	"github.com/Aniketdhankar/project/internal/monitor"
	"github.com/Aniketdhankar/project/internal/scheduler"
	"github.com/Aniketdhankar/project/internal/scoring"
)

// Config holds the full allocator configuration.
type Config struct {
	// ListenAddr is the HTTP bind address of the daemon.
	ListenAddr string `json:"listen_addr"`

	// DBPath is the SQLite database location.
	DBPath string `json:"db_path"`

	// ScoringModelPath points at a serialized scoring model. Empty means
	// heuristic scoring only.
	ScoringModelPath string `json:"scoring_model_path"`

	// ETAModelPath points at a serialized ETA model. Empty means
	// fallback estimation only.
	ETAModelPath string `json:"eta_model_path"`

	// DefaultPolicy selects the allocation strategy when a request does
	// not name one.
	DefaultPolicy string `json:"default_policy"`

	// PreviewTTLMinutes bounds how long an unfinalized preview is held.
	PreviewTTLMinutes int `json:"preview_ttl_minutes"`

	Caps        features.Caps            `json:"feature_caps"`
	Heuristic   scoring.HeuristicWeights `json:"heuristic_weights"`
	Constraints scheduler.Constraints    `json:"constraints"`
	Thresholds  monitor.Thresholds       `json:"anomaly_thresholds"`
	ETA         monitor.ETAConfig        `json:"eta"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8090",
		DBPath:            "data/allocator.db",
		DefaultPolicy:     string(scheduler.PolicyGreedy),
		PreviewTTLMinutes: 30,
		Caps:              features.DefaultCaps(),
		Heuristic:         scoring.DefaultHeuristicWeights(),
		Constraints:       scheduler.DefaultConstraints(),
		Thresholds:        monitor.DefaultThresholds(),
		ETA:               monitor.DefaultETAConfig(),
	}
}

// Load reads a config file and merges it over the defaults. A missing
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch scheduler.Policy(c.DefaultPolicy) {
	case scheduler.PolicyGreedy, scheduler.PolicyBalanced:
	default:
		return fmt.Errorf("unknown default_policy %q", c.DefaultPolicy)
	}
	if c.PreviewTTLMinutes <= 0 {
		return fmt.Errorf("preview_ttl_minutes must be positive, got %d", c.PreviewTTLMinutes)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	return nil
}

// PreviewTTL returns the preview retention window as a duration.
func (c *Config) PreviewTTL() time.Duration {
	return time.Duration(c.PreviewTTLMinutes) * time.Minute
}
