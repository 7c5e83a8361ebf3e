package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aniketdhankar/project/internal/config"
	"github.com/Aniketdhankar/project/internal/controlplane"
	"github.com/Aniketdhankar/project/internal/metrics"
	"github.com/Aniketdhankar/project/internal/scheduler"
	"github.com/Aniketdhankar/project/internal/scoring"
	"github.com/Aniketdhankar/project/internal/store"
)

var (
	listenAddr string
	dbPath     string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the allocator daemon",
	Long:  `Starts the allocator daemon which provides the HTTP API for assignment previews, finalization, candidate ranking, anomaly scans, and ETA prediction.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("Starting allocator daemon...")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	// Initialize store
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	// Initialize components
	m := metrics.New()
	comps := buildComponents(cfg, scoring.WithFallbackHook(m.ScoringFallbacks.Inc))

	coordinator := scheduler.NewCoordinator(comps.assigner, s, comps.builder.Names(), scheduler.CoordinatorConfig{
		PreviewTTL: cfg.PreviewTTL(),
		OnExpired:  func(n int) { m.PreviewsExpired.Add(float64(n)) },
	})

	// Create service and server
	service := controlplane.NewService(controlplane.ServiceConfig{
		Engine:        comps.engine,
		Coordinator:   coordinator,
		Detector:      comps.detector,
		Predictor:     comps.predictor,
		Store:         s,
		Metrics:       m,
		DefaultPolicy: scheduler.Policy(cfg.DefaultPolicy),
		Constraints:   cfg.Constraints,
	})
	server := controlplane.NewServer(service, m, cfg.ListenAddr)

	coordinator.Start()
	defer coordinator.Stop()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			s.Close()
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := s.Close(); err != nil {
		log.Printf("Store close error: %v", err)
	}

	log.Println("Daemon stopped")
	return nil
}
