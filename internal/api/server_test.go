package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loanguard/loanguard/internal/alerts"
	"github.com/loanguard/loanguard/internal/analyze"
	"github.com/loanguard/loanguard/internal/deadline"
	"github.com/loanguard/loanguard/internal/extract"
	"github.com/loanguard/loanguard/internal/models"
	"github.com/loanguard/loanguard/internal/normalizer"
	"github.com/loanguard/loanguard/internal/query"
	"github.com/loanguard/loanguard/internal/store"
)

func newTestHandler(t *testing.T, authToken string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	resolver := deadline.NewResolver(time.December, 31, logger)
	norm := normalizer.New(resolver, logger)
	mock := analyze.NewAnalyzer(extract.NewMockOracle(), norm, analyze.Config{ChunkSize: 1 << 20, Concurrency: 2, MaxRetries: 1}, logger)
	engine := query.NewEngine(resolver, nil, 3, 0, logger)
	checker := alerts.NewChecker(resolver, alerts.DefaultHorizon(), logger)

	s := NewServer(store.NewMemoryStore(), mock, mock, engine, checker, logger, authToken)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, "")

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestAuthRequiredWhenTokenSet(t *testing.T) {
	h := newTestHandler(t, "sekrit")

	rec := do(t, h, http.MethodGet, "/v1/loans", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/loans", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/loans", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	rec = do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeValidation(t *testing.T) {
	h := newTestHandler(t, "")

	rec := do(t, h, http.MethodPost, "/v1/loans/analyze", map[string]string{"loan_id": "LOAN-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/loans/analyze", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeStoresProfile(t *testing.T) {
	h := newTestHandler(t, "")

	rec := do(t, h, http.MethodPost, "/v1/loans/analyze", map[string]string{
		"text":          "Borrower shall deliver quarterly statements.",
		"loan_id":       "LOAN-42",
		"document_name": "agreement.txt",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	profile := decode[models.LoanProfile](t, rec)
	assert.Equal(t, "LOAN-42", profile.LoanID)
	assert.NotEmpty(t, profile.Requirements)

	rec = do(t, h, http.MethodGet, "/v1/loans/LOAN-42", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoanLifecycle(t *testing.T) {
	h := newTestHandler(t, "")

	// Seed via the demo endpoint.
	rec := do(t, h, http.MethodPost, "/v1/loans/demo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[models.LoanProfile](t, rec)
	assert.Equal(t, extract.DemoLoanID, profile.LoanID)
	require.Len(t, profile.Requirements, 8)

	// Listed.
	rec = do(t, h, http.MethodGet, "/v1/loans", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Loans []struct {
			LoanID       string `json:"loan_id"`
			Requirements int    `json:"requirements"`
		} `json:"loans"`
	}](t, rec)
	require.Len(t, list.Loans, 1)
	assert.Equal(t, extract.DemoLoanID, list.Loans[0].LoanID)
	assert.Equal(t, 8, list.Loans[0].Requirements)

	// Filtered requirements.
	rec = do(t, h, http.MethodGet, "/v1/loans/DEMO-001/requirements?category=insurance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reqs := decode[struct {
		Requirements []models.Requirement `json:"requirements"`
	}](t, rec)
	require.Len(t, reqs.Requirements, 1)
	assert.Equal(t, "Property Insurance", reqs.Requirements[0].Title)

	// An unrecognized enum value matches nothing; reads never fail on it.
	rec = do(t, h, http.MethodGet, "/v1/loans/DEMO-001/requirements?severity=urgent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reqs = decode[struct {
		Requirements []models.Requirement `json:"requirements"`
	}](t, rec)
	assert.Empty(t, reqs.Requirements)

	// Deadlines.
	rec = do(t, h, http.MethodGet, "/v1/loans/DEMO-001/deadlines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deadlines := decode[struct {
		Deadlines []query.UpcomingDeadline `json:"deadlines"`
	}](t, rec)
	assert.NotEmpty(t, deadlines.Deadlines)

	rec = do(t, h, http.MethodGet, "/v1/loans/DEMO-001/deadlines?days=-3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Ask.
	rec = do(t, h, http.MethodPost, "/v1/loans/DEMO-001/ask", map[string]string{"question": "what insurance do I need"})
	require.Equal(t, http.StatusOK, rec.Code)
	answers := decode[struct {
		Answers []query.Answer `json:"answers"`
	}](t, rec)
	require.NotEmpty(t, answers.Answers)
	assert.Equal(t, "Property Insurance", answers.Answers[0].Requirement.Title)

	rec = do(t, h, http.MethodPost, "/v1/loans/DEMO-001/ask", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Summary.
	rec = do(t, h, http.MethodGet, "/v1/loans/DEMO-001/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[models.Summary](t, rec)
	assert.Equal(t, 8, summary.TotalRequirements)

	// Alerts endpoint responds even when nothing is due.
	rec = do(t, h, http.MethodGet, "/v1/loans/DEMO-001/alerts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Status update.
	rec = do(t, h, http.MethodPut, "/v1/loans/DEMO-001/requirements/REQ-001/status", map[string]string{
		"status": "compliant",
		"notes":  "Q2 statements received",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Requirement](t, rec)
	assert.Equal(t, models.StatusCompliant, updated.Status)
	assert.Equal(t, "Q2 statements received", updated.Notes)

	rec = do(t, h, http.MethodPut, "/v1/loans/DEMO-001/requirements/REQ-001/status", map[string]string{"status": "waived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/v1/loans/DEMO-001/requirements/REQ-099/status", map[string]string{"status": "compliant"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Delete, then everything 404s.
	rec = do(t, h, http.MethodDelete, "/v1/loans/DEMO-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/v1/loans/DEMO-001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/loans/DEMO-001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownLoanIs404(t *testing.T) {
	h := newTestHandler(t, "")

	for _, path := range []string{
		"/v1/loans/NOPE",
		"/v1/loans/NOPE/requirements",
		"/v1/loans/NOPE/deadlines",
		"/v1/loans/NOPE/summary",
		"/v1/loans/NOPE/alerts",
	} {
		rec := do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
