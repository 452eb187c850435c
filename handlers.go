package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp_analyzer/ai"
	"mcp_analyzer/analyzer"
	"mcp_analyzer/core"
	"mcp_analyzer/db"
	"mcp_analyzer/monitoring"
	"mcp_analyzer/shutdown"
)

// maxRequestBody caps JSON request bodies at 10 MB. Code snippets for
// explanation are the largest expected payload.
const maxRequestBody = 10 << 20

// Server is the HTTP surface: project analysis, code explanation, stored
// project listing, and the monitoring read endpoints. Monitoring calls are
// observational; a monitoring failure never fails the request that carried
// it.
type Server struct {
	log      *zap.Logger
	backend  monitoring.Backend
	hybrid   *monitoring.Hybrid
	analyzer *analyzer.Analyzer
	ai       *ai.Manager
	repo     *db.Repository
	guard    *shutdown.Manager
}

// NewServer wires the handler dependencies. hybrid may be nil when the
// backend is not a Hybrid; it only adds the comparison block to analytics.
func NewServer(
	log *zap.Logger,
	backend monitoring.Backend,
	hybrid *monitoring.Hybrid,
	an *analyzer.Analyzer,
	aiManager *ai.Manager,
	repo *db.Repository,
	guard *shutdown.Manager,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:      log.Named("http"),
		backend:  backend,
		hybrid:   hybrid,
		analyzer: an,
		ai:       aiManager,
		repo:     repo,
		guard:    guard,
	}
}

// Routes builds the request mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/analytics", s.handleAnalytics)
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/explain", s.handleExplain)
	mux.HandleFunc("/api/projects", s.handleProjects)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "MCP Code Analyzer API",
		"version": core.GetVersion(),
		"status":  "running",
		"endpoints": map[string]string{
			"analyze":   "/api/analyze",
			"explain":   "/api/explain",
			"projects":  "/api/projects",
			"health":    "/api/health",
			"analytics": "/api/analytics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	health := s.backend.HealthCheck()
	status := http.StatusOK
	if health.Status == monitoring.HealthCritical {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary := s.backend.Summary(r.URL.Query().Get("session_id"))
	payload := map[string]any{"summary": summary}
	if s.hybrid != nil {
		payload["comparison"] = s.hybrid.Report()
	}
	s.writeJSON(w, http.StatusOK, payload)
}

type analyzeRequest struct {
	Path      string `json:"path"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req analyzeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	var result analyzer.Result
	err := s.guard.WrapOperation(r.Context(), "analyze-project", func(ctx context.Context) error {
		return s.backend.TrackOperation(ctx, monitoring.KindAnalysisStart, monitoring.TrackOptions{
			Level:       monitoring.LevelStandard,
			ProjectPath: req.Path,
			SessionID:   req.SessionID,
		}, func(ctx context.Context) error {
			var analyzeErr error
			result, analyzeErr = s.analyzer.AnalyzeProject(ctx, req.Path)
			return analyzeErr
		})
	})
	if errors.Is(err, shutdown.ErrTrackerClosed) {
		s.writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	s.persistAnalysis(r, req, result)
	s.writeJSON(w, http.StatusOK, result)
}

// persistAnalysis stores the project and run. Persistence failures are logged
// and recorded as monitoring events but never fail the analysis response.
func (s *Server) persistAnalysis(r *http.Request, req analyzeRequest, result analyzer.Result) {
	if s.repo == nil {
		return
	}

	ctx := r.Context()
	projectID, err := s.repo.UpsertProject(ctx, db.Project{
		Path:            req.Path,
		Name:            filepath.Base(req.Path),
		PrimaryLanguage: result.PrimaryLanguage(),
		TotalFiles:      result.Metrics.TotalFiles,
		TotalLines:      result.Metrics.TotalLines,
		LastAnalyzedAt:  time.Now().UTC(),
	})
	if err != nil {
		s.log.Error("failed to persist project", zap.String("path", req.Path), zap.Error(err))
		s.backend.LogEvent(monitoring.Event{
			Kind:         monitoring.KindAnalysisError,
			Level:        monitoring.LevelStandard,
			ProjectPath:  req.Path,
			ErrorMessage: fmt.Sprintf("persist project: %v", err),
			SessionID:    req.SessionID,
		})
		return
	}

	summary := fmt.Sprintf("%d files, %d lines, %d functions",
		result.Metrics.TotalFiles, result.Metrics.TotalLines, result.Metrics.TotalFunctions)
	if _, err := s.repo.InsertAnalysis(ctx, db.Analysis{
		ProjectID:      projectID,
		SessionID:      req.SessionID,
		Summary:        summary,
		FunctionsCount: result.Metrics.TotalFunctions,
		ImportsCount:   len(result.Dependencies),
		Status:         "success",
	}); err != nil {
		s.log.Error("failed to persist analysis", zap.Int64("project_id", projectID), zap.Error(err))
	}
}

type explainRequest struct {
	Code      string `json:"code"`
	Language  string `json:"language"`
	Level     string `json:"level"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req explainRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		s.writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.Language == "" {
		req.Language = "javascript"
	}
	if req.Level == "" {
		req.Level = ai.LevelIntermediate
	}

	var resp ai.Response
	err := s.backend.TrackOperation(r.Context(), monitoring.KindAIRequestStart, monitoring.TrackOptions{
		Level:     monitoring.LevelStandard,
		SessionID: req.SessionID,
		Metadata:  map[string]any{"language": req.Language, "level": req.Level},
	}, func(ctx context.Context) error {
		var aiErr error
		resp, aiErr = s.ai.ExplainCode(ctx, ai.CodeContext{
			FileContent: req.Code,
			FileType:    req.Language,
		}, req.Level)
		return aiErr
	})
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("explanation failed: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.repo == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"projects": []db.Project{}})
		return
	}

	projects, err := s.repo.ListProjects(r.Context(), core.ParseIntEnv("PROJECT_LIST_LIMIT", 100))
	if err != nil {
		s.log.Error("failed to list projects", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []db.Project{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// decodeJSON reads a bounded JSON body into dst, answering the request itself
// on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
