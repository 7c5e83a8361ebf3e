package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Aniketdhankar/project/internal/metrics"
	"github.com/Aniketdhankar/project/internal/models"
	"github.com/Aniketdhankar/project/internal/scheduler"
)

// Server provides the HTTP API for the allocator.
type Server struct {
	service *Service
	metrics *metrics.Metrics
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, m *metrics.Metrics, addr string) *Server {
	return &Server{
		service: service,
		metrics: m,
		addr:    addr,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Assignment endpoints
	mux.HandleFunc("/assignments/preview", s.handlePreview)
	mux.HandleFunc("/assignments/finalize", s.handleFinalize)
	mux.HandleFunc("/assignments/assign", s.handleAssign)
	mux.HandleFunc("/assignments", s.handleAssignments)

	// Candidate ranking
	mux.HandleFunc("/candidates/rank", s.handleRank)

	// Anomaly endpoints
	mux.HandleFunc("/anomalies/scan", s.handleScan)
	mux.HandleFunc("/anomalies", s.handleAnomalies)
	mux.HandleFunc("/anomalies/", s.handleAnomalyByID)

	// ETA and progress
	mux.HandleFunc("/eta/predict", s.handlePredictETA)
	mux.HandleFunc("/progress", s.handleProgress)
	mux.HandleFunc("/progress/", s.handleProgressByTask)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.service.Ping(r.Context()); err != nil {
			http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics
	mux.Handle("/metrics", s.metrics.Handler())

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting allocator daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// --- Assignment Handlers ---

type batchRequest struct {
	Tasks          []models.Task     `json:"tasks"`
	Employees      []models.Employee `json:"employees"`
	Policy         string            `json:"policy"`
	MaxPerEmployee int               `json:"max_assignments_per_employee"`
	WorkloadWeight float64           `json:"workload_weight"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	preview, err := s.service.Preview(req.Tasks, req.Employees, req.Policy, req.MaxPerEmployee, req.WorkloadWeight)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

type finalizeRequest struct {
	PreviewID string `json:"preview_id"`
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.PreviewID == "" {
		http.Error(w, "preview_id required", http.StatusBadRequest)
		return
	}

	result, err := s.service.Finalize(r.Context(), req.PreviewID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type assignResponse struct {
	Preview *models.Preview        `json:"preview"`
	Result  *models.FinalizeResult `json:"result"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	preview, result, err := s.service.Assign(r.Context(), req.Tasks, req.Employees, req.Policy, req.MaxPerEmployee, req.WorkloadWeight)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, assignResponse{Preview: preview, Result: result})
}

func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	assignments, err := s.service.ListAssignments(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}

	writeJSON(w, http.StatusOK, assignments)
}

// --- Candidate Handlers ---

type rankRequest struct {
	Task      models.Task       `json:"task"`
	Employees []models.Employee `json:"employees"`
	TopK      int               `json:"top_k"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	candidates, err := s.service.RankCandidates(req.Task, req.Employees, req.TopK)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if candidates == nil {
		candidates = []RankedCandidate{}
	}

	writeJSON(w, http.StatusOK, candidates)
}

// --- Anomaly Handlers ---

type scanRequest struct {
	Tasks     []models.Task     `json:"tasks"`
	Employees []models.Employee `json:"employees"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	anomalies, err := s.service.ScanAnomalies(req.Tasks, req.Employees)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}

	writeJSON(w, http.StatusOK, anomalies)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	anomalies, err := s.service.ListAnomalies(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}

	writeJSON(w, http.StatusOK, anomalies)
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

// handleAnomalyByID handles /anomalies/{id}/resolve
func (s *Server) handleAnomalyByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/anomalies/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "anomaly id required", http.StatusBadRequest)
		return
	}

	anomalyID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	if action != "resolve" || r.Method != http.MethodPost {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := s.service.ResolveAnomaly(anomalyID, req.Notes); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"resolved"}`))
}

// --- ETA Handlers ---

type etaRequest struct {
	Task     models.Task     `json:"task"`
	Employee models.Employee `json:"employee"`
}

func (s *Server) handlePredictETA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req etaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	eta, err := s.service.PredictETA(req.Employee, req.Task)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, eta)
}

// --- Progress Handlers ---

type progressResponse struct {
	Logged       *models.ProgressLog `json:"logged"`
	RefreshedETA *models.ETAEstimate `json:"refreshed_eta,omitempty"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var p models.ProgressLog
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if p.TaskID == "" {
		http.Error(w, "task_id required", http.StatusBadRequest)
		return
	}

	logged, refreshed, err := s.service.LogProgress(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, progressResponse{Logged: logged, RefreshedETA: refreshed})
}

// handleProgressByTask handles GET /progress/{task_id}
func (s *Server) handleProgressByTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, "/progress/")
	if taskID == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	logs, err := s.service.ProgressForTask(taskID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []models.ProgressLog{}
	}

	writeJSON(w, http.StatusOK, logs)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyBatch),
		errors.Is(err, scheduler.ErrUnknownPolicy),
		errors.Is(err, scheduler.ErrInvalidConstraints):
		return http.StatusBadRequest
	case errors.Is(err, scheduler.ErrPreviewNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
