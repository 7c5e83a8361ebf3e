package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/Aniketdhankar/project/internal/config"
	"github.com/Aniketdhankar/project/internal/monitor"
	"github.com/Aniketdhankar/project/internal/store"
)

var (
	scanInput string
	scanDB    string
	scanSave  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan active assignments for anomalies",
	Long:  `Reads tasks and employees from a JSON snapshot, loads active assignments and progress logs from the database, and prints any anomalies found.`,
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanInput, "input", "", "Path to JSON snapshot with tasks and employees (required)")
	scanCmd.Flags().StringVar(&scanDB, "db", "", "Path to SQLite database (overrides config)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Persist findings with status open")
	scanCmd.MarkFlagRequired("input")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if scanDB != "" {
		cfg.DBPath = scanDB
	}

	snap, err := loadSnapshot(scanInput)
	if err != nil {
		return err
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	assignments, err := s.ListAssignments("assigned")
	if err != nil {
		return err
	}

	detSnap := monitor.Snapshot{
		Assignments: assignments,
		Tasks:       snap.Tasks,
		Employees:   snap.Employees,
	}
	for _, a := range assignments {
		logs, err := s.ProgressForTask(a.TaskID)
		if err != nil {
			return err
		}
		detSnap.Progress = append(detSnap.Progress, logs...)
	}

	comps := buildComponents(cfg)
	anomalies := comps.detector.Scan(detSnap)

	if scanSave && len(anomalies) > 0 {
		if err := s.SaveAnomalies(anomalies); err != nil {
			log.Printf("Warning: failed to persist anomalies: %v", err)
		}
	}

	return printJSON(anomalies)
}
