package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aniketdhankar/project/internal/config"
	"github.com/Aniketdhankar/project/internal/models"
	"github.com/Aniketdhankar/project/internal/scheduler"
)

// snapshotFile is the JSON input shared by the one-shot commands.
type snapshotFile struct {
	Tasks     []models.Task     `json:"tasks"`
	Employees []models.Employee `json:"employees"`
}

func loadSnapshot(path string) (*snapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if len(snap.Tasks) == 0 || len(snap.Employees) == 0 {
		return nil, fmt.Errorf("snapshot %s must contain tasks and employees", path)
	}
	return &snap, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	assignInput  string
	assignPolicy string
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Compute an assignment batch from a JSON snapshot",
	Long:  `Reads tasks and employees from a JSON file, runs the allocation pass, and prints the proposed assignments. Nothing is persisted.`,
	RunE:  runAssign,
}

func init() {
	assignCmd.Flags().StringVar(&assignInput, "input", "", "Path to JSON snapshot with tasks and employees (required)")
	assignCmd.Flags().StringVar(&assignPolicy, "policy", "", "Allocation policy: greedy or balanced (default from config)")
	assignCmd.MarkFlagRequired("input")
}

func runAssign(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot(assignInput)
	if err != nil {
		return err
	}

	policy := scheduler.Policy(cfg.DefaultPolicy)
	if assignPolicy != "" {
		policy = scheduler.Policy(assignPolicy)
	}

	comps := buildComponents(cfg)
	result, err := comps.assigner.Assign(snap.Tasks, snap.Employees, cfg.Constraints, policy)
	if err != nil {
		return err
	}

	return printJSON(result)
}
