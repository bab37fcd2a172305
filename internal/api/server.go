// Package api exposes loan analysis and querying over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/loanguard/loanguard/internal/alerts"
	"github.com/loanguard/loanguard/internal/analyze"
	"github.com/loanguard/loanguard/internal/extract"
	"github.com/loanguard/loanguard/internal/models"
	"github.com/loanguard/loanguard/internal/query"
	"github.com/loanguard/loanguard/internal/store"
)

// Server is an HTTP API server that exposes loan compliance operations.
type Server struct {
	store     store.Store
	analyzer  *analyze.Analyzer
	demo      *analyze.Analyzer
	engine    *query.Engine
	checker   *alerts.Checker
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies. The demo
// analyzer runs the canned dataset through the same pipeline; pass nil to
// disable the demo endpoint.
func NewServer(st store.Store, analyzer, demo *analyze.Analyzer, engine *query.Engine, checker *alerts.Checker, logger *slog.Logger, authToken string) *Server {
	return &Server{
		store:     st,
		analyzer:  analyzer,
		demo:      demo,
		engine:    engine,
		checker:   checker,
		logger:    logger,
		authToken: authToken,
	}
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics, no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /debug/vars", expvar.Handler())

	// Loan analysis and query endpoints, wrapped with auth middleware.
	mux.HandleFunc("POST /v1/loans/analyze", s.auth(s.handleAnalyze))
	mux.HandleFunc("POST /v1/loans/demo", s.auth(s.handleDemo))
	mux.HandleFunc("GET /v1/loans", s.auth(s.handleListLoans))
	mux.HandleFunc("GET /v1/loans/{id}", s.auth(s.handleGetLoan))
	mux.HandleFunc("DELETE /v1/loans/{id}", s.auth(s.handleDeleteLoan))
	mux.HandleFunc("GET /v1/loans/{id}/requirements", s.auth(s.handleRequirements))
	mux.HandleFunc("GET /v1/loans/{id}/deadlines", s.auth(s.handleDeadlines))
	mux.HandleFunc("GET /v1/loans/{id}/summary", s.auth(s.handleSummary))
	mux.HandleFunc("GET /v1/loans/{id}/alerts", s.auth(s.handleAlerts))
	mux.HandleFunc("POST /v1/loans/{id}/ask", s.auth(s.handleAsk))
	mux.HandleFunc("PUT /v1/loans/{id}/requirements/{rid}/status", s.auth(s.handleUpdateStatus))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeRequest is the body accepted by POST /v1/loans/analyze.
type analyzeRequest struct {
	Text         string `json:"text"`
	LoanID       string `json:"loan_id"`
	DocumentName string `json:"document_name"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20) // 10 MB limit
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	profile, err := s.analyzer.Analyze(r.Context(), req.Text, req.LoanID, req.DocumentName)
	if err != nil {
		s.logger.Error("analysis failed", "error", err)
		s.writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}
	if err := s.store.Put(r.Context(), profile); err != nil {
		s.logger.Error("failed to store profile", "loan_id", profile.LoanID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store profile")
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	if s.demo == nil {
		s.writeError(w, http.StatusNotFound, "demo mode disabled")
		return
	}
	profile, err := s.demo.Analyze(r.Context(), "demo loan agreement", extract.DemoLoanID, "demo-loan-agreement.txt")
	if err != nil {
		s.logger.Error("demo analysis failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "demo analysis failed")
		return
	}
	if err := s.store.Put(r.Context(), profile); err != nil {
		s.logger.Error("failed to store demo profile", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store profile")
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

// loanListEntry is one row in the GET /v1/loans response.
type loanListEntry struct {
	LoanID       string    `json:"loan_id"`
	LoanName     string    `json:"loan_name"`
	PropertyName string    `json:"property_name,omitempty"`
	Requirements int       `json:"requirements"`
	Incomplete   bool      `json:"incomplete,omitempty"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list loans", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}

	entries := make([]loanListEntry, 0, len(profiles))
	for _, p := range profiles {
		entries = append(entries, loanListEntry{
			LoanID:       p.LoanID,
			LoanName:     p.LoanName,
			PropertyName: p.PropertyName,
			Requirements: len(p.Requirements),
			Incomplete:   p.Incomplete,
			ExtractedAt:  p.ExtractedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"loans": entries})
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.loadProfile(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "loan not found")
			return
		}
		s.logger.Error("failed to delete loan", "loan_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete loan")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.loadProfile(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := query.Filter{
		Category: q.Get("category"),
		Severity: q.Get("severity"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
	}
	reqs := s.engine.Requirements(profile, filter)
	s.writeJSON(w, http.StatusOK, map[string]any{"requirements": reqs})
}

func (s *Server) handleDeadlines(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.loadProfile(w, r)
	if !ok {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	deadlines := s.engine.Deadlines(profile, time.Now().UTC(), days)
	s.writeJSON(w, http.StatusOK, map[string]any{"deadlines": deadlines})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.loadProfile(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, profile.Summarize())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.loadProfile(w, r)
	if !ok {
		return
	}
	found := s.checker.Check(profile, time.Now().UTC())
	s.writeJSON(w, http.StatusOK, map[string]any{"alerts": found})
}

// askRequest is the body accepted by POST /v1/loans/{id}/ask.
type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.loadProfile(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answers := s.engine.Ask(profile, req.Question)
	s.writeJSON(w, http.StatusOK, map[string]any{"answers": answers})
}

// statusRequest is the body accepted by PUT .../requirements/{rid}/status.
type statusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rid := r.PathValue("rid")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := models.Status(req.Status)
	if !status.IsValid() {
		s.writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	updated, err := s.store.UpdateStatus(r.Context(), id, rid, status, req.Notes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "loan or requirement not found")
			return
		}
		s.logger.Error("failed to update status", "loan_id", id, "requirement_id", rid, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	s.writeJSON(w, http.StatusOK, updated)
}

// --- helpers ---

// loadProfile fetches the loan named in the path, writing the error response
// itself when the load fails.
func (s *Server) loadProfile(w http.ResponseWriter, r *http.Request) (*models.LoanProfile, bool) {
	id := r.PathValue("id")
	profile, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "loan not found")
			return nil, false
		}
		s.logger.Error("failed to load loan", "loan_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load loan")
		return nil, false
	}
	return profile, true
}

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
