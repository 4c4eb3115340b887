// Package server provides the HTTP API for skill suggestions, update checks,
// skill lookup, and context record search.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/catalog"
	"github.com/planehq/contextplane/pkg/contexts"
	"github.com/planehq/contextplane/pkg/logger"
	"github.com/planehq/contextplane/pkg/presenter"
	"github.com/planehq/contextplane/pkg/suggest"
	stypes "github.com/planehq/contextplane/pkg/types/catalog"
	xtypes "github.com/planehq/contextplane/pkg/types/contexts"
	"github.com/planehq/contextplane/pkg/updates"
	"github.com/planehq/contextplane/pkg/version"
)

// Config holds the listen address for the API server.
type Config struct {
	Host string
	Port int
}

// Validate validates the server configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server wires the engines to HTTP routes.
type Server struct {
	router       *mux.Router
	config       *Config
	suggestions  *suggest.Service
	updateChecks *updates.Service
	skills       catalog.Store
	records      contexts.Store
	server       *http.Server
}

// NewServer creates the API server over the given engines and stores.
func NewServer(config *Config, suggestions *suggest.Service, updateChecks *updates.Service, skills catalog.Store, records contexts.Store) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:       mux.NewRouter(),
		config:       config,
		suggestions:  suggestions,
		updateChecks: updateChecks,
		skills:       skills,
		records:      records,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/skills", s.handleListSkills).Methods("GET")
	api.HandleFunc("/skills/suggest", s.handleSuggest).Methods("POST")
	api.HandleFunc("/skills/updates", s.handleUpdates).Methods("POST")
	api.HandleFunc("/skills/search", s.handleSearchSkills).Methods("GET")
	api.HandleFunc("/skills/{id}", s.handleGetSkill).Methods("GET")
	api.HandleFunc("/contexts/search", s.handleSearchContexts).Methods("GET")
	api.HandleFunc("/contexts", s.handleCreateContext).Methods("POST")
	api.HandleFunc("/contexts/{id}", s.handleGetContext).Methods("GET")

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, map[string]any{
		"status":  "ok",
		"version": version.Get().Version,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.TaskDescription == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "taskDescription is required", nil)
		return
	}

	resp, err := s.suggestions.Suggest(r.Context(), &req)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to compute suggestions", err)
		return
	}
	s.writeJSONResponse(w, resp)
}

func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	var req updates.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.UserID == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "userId is required", nil)
		return
	}

	resp, err := s.updateChecks.Check(r.Context(), &req)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to check for updates", err)
		return
	}
	s.writeJSONResponse(w, resp)
}

type skillListResponse struct {
	Count   int            `json:"count"`
	Filters map[string]any `json:"filters"`
	Data    []stypes.Skill `json:"data"`
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	filters := catalog.SkillFilters{Limit: catalog.DefaultListLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "limit must be an integer", err)
			return
		}
		filters.Limit = limit
	}
	if err := filters.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	skills, err := s.skills.SearchSkills(r.Context(), filters)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to list skills", err)
		return
	}
	s.writeJSONResponse(w, skillListResponse{
		Count:   len(skills),
		Filters: map[string]any{},
		Data:    skills,
	})
}

func (s *Server) handleSearchSkills(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filters := catalog.SkillFilters{
		Query:    params.Get("query"),
		Category: params.Get("category"),
		Tag:      params.Get("tag"),
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "limit must be an integer", err)
			return
		}
		filters.Limit = limit
	}
	if err := filters.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	skills, err := s.skills.SearchSkills(r.Context(), filters)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to search skills", err)
		return
	}
	s.writeJSONResponse(w, skillListResponse{
		Count:   len(skills),
		Filters: filters.Echo(),
		Data:    skills,
	})
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	skillID := mux.Vars(r)["id"]

	skill, err := s.skills.GetSkill(r.Context(), skillID)
	if err != nil {
		if errors.Is(err, catalog.ErrSkillNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "skill not found", nil)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to load skill", err)
		return
	}
	s.writeJSONResponse(w, skill)
}

func (s *Server) handleSearchContexts(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filters := contexts.Filters{
		RepoID:       params.Get("repoID"),
		TicketID:     params.Get("ticketID"),
		FilePath:     params.Get("filePath"),
		ContextLevel: params.Get("contextLevel"),
		AIClient:     params.Get("aiClient"),
		Status:       params.Get("status"),
		Query:        params.Get("query"),
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "limit must be an integer", err)
			return
		}
		filters.Limit = limit
	}

	result, err := s.records.Search(r.Context(), filters)
	if err != nil {
		if errors.Is(err, contexts.ErrInvalidFilter) {
			s.writeErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to search contexts", err)
		return
	}
	s.writeJSONResponse(w, result)
}

type createContextRequest struct {
	UserID     string         `json:"userId"`
	SessionID  string         `json:"sessionId"`
	Attributes map[string]any `json:"attributes"`
	Timestamp  time.Time      `json:"timestamp"`
}

func (s *Server) handleCreateContext(w http.ResponseWriter, r *http.Request) {
	var req createContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.UserID == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "userId is required", nil)
		return
	}

	attrs, err := xtypes.DecodeAttributes(req.Attributes)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid attributes", err)
		return
	}
	if err := attrs.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	record, err := s.records.Save(r.Context(), xtypes.Record{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		Attributes: attrs,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to save context record", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(record); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode context record response")
	}
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	contextID := mux.Vars(r)["id"]

	record, err := s.records.Get(r.Context(), contextID)
	if err != nil {
		if errors.Is(err, contexts.ErrRecordNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "context record not found", nil)
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to load context record", err)
		return
	}
	s.writeJSONResponse(w, record)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// writeJSONResponse encodes to a buffer first so an encoding failure can
// still produce a clean 500 instead of a half-written 200 body.
func (s *Server) writeJSONResponse(w http.ResponseWriter, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := buf.WriteTo(w); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to write JSON response")
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(context.TODO()).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode error response")
	}
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:    address,
		Handler: s.router,
	}

	presenter.Info(fmt.Sprintf("Starting API server on http://%s", address))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.G(ctx).WithError(err).Error("API server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Stop closes the server immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
