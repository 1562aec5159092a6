package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazz-dev/urlmedic/internal/checker"
	"github.com/hazz-dev/urlmedic/internal/config"
	"github.com/hazz-dev/urlmedic/internal/storage"
)

// ServerStore defines the storage queries the server needs.
type ServerStore interface {
	AllLatest(ctx context.Context) ([]storage.Run, error)
	LatestRun(ctx context.Context, target string) (*storage.Run, error)
	PreviousRun(ctx context.Context, run storage.Run) (*storage.Run, error)
	RunResults(ctx context.Context, runID string) (checker.Set, error)
	TargetHistory(ctx context.Context, target string, limit, offset int) ([]storage.Run, int, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	store   ServerStore
	targets []config.Target
	router  chi.Router
	logger  *slog.Logger
}

// New creates a new Server and registers all routes.
func New(store ServerStore, targets []config.Target, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:   store,
		targets: targets,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/targets", s.handleListTargets)
	r.Get("/api/targets/{name}", s.handleGetTarget)
	r.Get("/api/targets/{name}/runs", s.handleGetTargetRuns)
	r.Get("/api/targets/{name}/changes", s.handleGetTargetChanges)
}

// --- Response helpers ---

type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// --- Target helpers ---

func (s *Server) findTarget(name string) (config.Target, bool) {
	for _, t := range s.targets {
		if t.Name == name {
			return t, true
		}
	}
	return config.Target{}, false
}

// Target status values.
const (
	statusUnknown = "unknown"
	statusOK      = "ok"
	statusFailing = "failing"
)

type targetSummary struct {
	Name        string     `json:"name"`
	URLs        int        `json:"urls"`
	Interval    string     `json:"interval"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Failed      int        `json:"failed"`
	LastRun     string     `json:"last_run,omitempty"`
	LastChecked *time.Time `json:"last_checked"`
}

func summarize(t config.Target, latest *storage.Run) targetSummary {
	d := targetSummary{
		Name:     t.Name,
		URLs:     len(t.URLs),
		Interval: t.Interval.Duration.String(),
		Status:   statusUnknown,
	}
	if latest == nil {
		return d
	}
	d.Status = statusOK
	if latest.Failed > 0 {
		d.Status = statusFailing
	}
	d.Total = latest.Total
	d.Failed = latest.Failed
	d.LastRun = latest.ID
	finished := latest.FinishedAt
	d.LastChecked = &finished
	return d
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	latestRuns, err := s.store.AllLatest(r.Context())
	if err != nil {
		s.logger.Error("AllLatest", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	byTarget := make(map[string]*storage.Run, len(latestRuns))
	for i := range latestRuns {
		byTarget[latestRuns[i].Target] = &latestRuns[i]
	}

	summaries := make([]targetSummary, 0, len(s.targets))
	for _, t := range s.targets {
		summaries = append(summaries, summarize(t, byTarget[t.Name]))
	}

	writeJSON(w, http.StatusOK, summaries)
}

type targetDetailResponse struct {
	targetSummary
	Results checker.Set `json:"results"`
}

func (s *Server) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	t, ok := s.findTarget(name)
	if !ok {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}

	latest, err := s.store.LatestRun(r.Context(), name)
	if err != nil {
		s.logger.Error("LatestRun", "target", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	results := checker.Set{}
	if latest != nil {
		results, err = s.store.RunResults(r.Context(), latest.ID)
		if err != nil {
			s.logger.Error("RunResults", "target", name, "run", latest.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	writeJSON(w, http.StatusOK, targetDetailResponse{
		targetSummary: summarize(t, latest),
		Results:       results,
	})
}

type runsResponse struct {
	Runs  []storage.Run `json:"runs"`
	Total int           `json:"total"`
}

func (s *Server) handleGetTargetRuns(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if _, ok := s.findTarget(name); !ok {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}

	const maxLimit = 1000

	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = n
	}

	runs, total, err := s.store.TargetHistory(r.Context(), name, limit, offset)
	if err != nil {
		s.logger.Error("TargetHistory", "target", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}

	writeJSON(w, http.StatusOK, runsResponse{
		Runs:  runs,
		Total: total,
	})
}

type changesResponse struct {
	Run         *storage.Run           `json:"run"`
	PreviousRun *storage.Run           `json:"previous_run"`
	Changes     []checker.CompareEntry `json:"changes"`
}

// handleGetTargetChanges compares the latest run of a target with the run before it.
func (s *Server) handleGetTargetChanges(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	if _, ok := s.findTarget(name); !ok {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}

	resp := changesResponse{Changes: []checker.CompareEntry{}}

	latest, err := s.store.LatestRun(ctx, name)
	if err != nil {
		s.logger.Error("LatestRun", "target", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if latest == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Run = latest

	prev, err := s.store.PreviousRun(ctx, *latest)
	if err != nil {
		s.logger.Error("PreviousRun", "target", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if prev == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.PreviousRun = prev

	current, err := s.store.RunResults(ctx, latest.ID)
	if err != nil {
		s.logger.Error("RunResults", "target", name, "run", latest.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	previous, err := s.store.RunResults(ctx, prev.ID)
	if err != nil {
		s.logger.Error("RunResults", "target", name, "run", prev.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp.Changes = checker.Compare(current, previous)

	writeJSON(w, http.StatusOK, resp)
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
