package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aniketdhankar/project/internal/config"
)

var (
	rankInput  string
	rankTaskID string
	rankTopK   int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank candidate employees for one task",
	Long:  `Reads tasks and employees from a JSON snapshot and prints scored candidates for the named task, best first.`,
	RunE:  runRank,
}

func init() {
	rankCmd.Flags().StringVar(&rankInput, "input", "", "Path to JSON snapshot with tasks and employees (required)")
	rankCmd.Flags().StringVar(&rankTaskID, "task", "", "Task id to rank candidates for (required)")
	rankCmd.Flags().IntVar(&rankTopK, "top", 0, "Limit output to the top K candidates (0 = all)")
	rankCmd.MarkFlagRequired("input")
	rankCmd.MarkFlagRequired("task")
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot(rankInput)
	if err != nil {
		return err
	}

	for _, task := range snap.Tasks {
		if task.ID != rankTaskID {
			continue
		}
		comps := buildComponents(cfg)
		return printJSON(comps.engine.Rank(task, snap.Employees, rankTopK))
	}
	return fmt.Errorf("task %s not found in snapshot", rankTaskID)
}
