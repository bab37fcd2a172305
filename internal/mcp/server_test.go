package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
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

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	resolver := deadline.NewResolver(time.December, 31, logger)
	norm := normalizer.New(resolver, logger)
	analyzer := analyze.NewAnalyzer(extract.NewMockOracle(), norm, analyze.Config{ChunkSize: 1 << 20, Concurrency: 2, MaxRetries: 1}, logger)
	engine := query.NewEngine(resolver, nil, 3, 0, logger)
	checker := alerts.NewChecker(resolver, alerts.DefaultHorizon(), logger)
	return NewServer(store.NewMemoryStore(), analyzer, engine, checker, logger)
}

func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func seedDemoLoan(t *testing.T, s *Server) {
	t.Helper()
	result, err := s.HandleAnalyzeLoan(context.Background(), makeReq("analyze_loan", map[string]any{
		"text":    "demo loan agreement",
		"loan_id": extract.DemoLoanID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))
}

func TestHandleAnalyzeLoan(t *testing.T) {
	s := newTestServer(t)

	result, err := s.HandleAnalyzeLoan(context.Background(), makeReq("analyze_loan", map[string]any{
		"text":    "demo loan agreement",
		"loan_id": extract.DemoLoanID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		LoanID       string `json:"loan_id"`
		Requirements int    `json:"requirements"`
		Incomplete   bool   `json:"incomplete"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, extract.DemoLoanID, out.LoanID)
	assert.Equal(t, 8, out.Requirements)
	assert.False(t, out.Incomplete)
}

func TestHandleAnalyzeLoanMissingText(t *testing.T) {
	s := newTestServer(t)

	result, err := s.HandleAnalyzeLoan(context.Background(), makeReq("analyze_loan", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListRequirements(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleListRequirements(context.Background(), makeReq("list_requirements", map[string]any{
		"loan_id":  extract.DemoLoanID,
		"category": "insurance",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		LoanID       string               `json:"loan_id"`
		Requirements []models.Requirement `json:"requirements"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Len(t, out.Requirements, 1)
	assert.Equal(t, "Property Insurance", out.Requirements[0].Title)
}

func TestHandleListRequirementsUnknownEnumMatchesNothing(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleListRequirements(context.Background(), makeReq("list_requirements", map[string]any{
		"loan_id":  extract.DemoLoanID,
		"severity": "urgent",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload struct {
		Requirements []models.Requirement `json:"requirements"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &payload))
	assert.Empty(t, payload.Requirements)
}

func TestHandleUpcomingDeadlines(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleUpcomingDeadlines(context.Background(), makeReq("upcoming_deadlines", map[string]any{
		"loan_id": extract.DemoLoanID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Deadlines []query.UpcomingDeadline `json:"deadlines"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.NotEmpty(t, out.Deadlines)
}

func TestHandleAskLoan(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleAskLoan(context.Background(), makeReq("ask_loan", map[string]any{
		"loan_id":  extract.DemoLoanID,
		"question": "what insurance coverage do I need",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Answers []query.Answer `json:"answers"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.NotEmpty(t, out.Answers)
	assert.Equal(t, "Property Insurance", out.Answers[0].Requirement.Title)
}

func TestHandleAskLoanMissingQuestion(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleAskLoan(context.Background(), makeReq("ask_loan", map[string]any{
		"loan_id": extract.DemoLoanID,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleLoanSummary(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleLoanSummary(context.Background(), makeReq("loan_summary", map[string]any{
		"loan_id": extract.DemoLoanID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out models.Summary
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, extract.DemoLoanID, out.LoanID)
	assert.Equal(t, 8, out.TotalRequirements)
}

func TestHandleLoanAlerts(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleLoanAlerts(context.Background(), makeReq("loan_alerts", map[string]any{
		"loan_id": extract.DemoLoanID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		LoanID string         `json:"loan_id"`
		Alerts []alerts.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, extract.DemoLoanID, out.LoanID)
}

func TestHandleUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleUpdateStatus(context.Background(), makeReq("update_status", map[string]any{
		"loan_id":        extract.DemoLoanID,
		"requirement_id": "REQ-001",
		"status":         "compliant",
		"notes":          "Q2 statements received",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))

	var out models.Requirement
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, models.StatusCompliant, out.Status)
	assert.Equal(t, "Q2 statements received", out.Notes)
	assert.NotNil(t, out.LastChecked)
}

func TestHandleUpdateStatusInvalid(t *testing.T) {
	s := newTestServer(t)
	seedDemoLoan(t, s)

	result, err := s.HandleUpdateStatus(context.Background(), makeReq("update_status", map[string]any{
		"loan_id":        extract.DemoLoanID,
		"requirement_id": "REQ-001",
		"status":         "waived",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.HandleUpdateStatus(context.Background(), makeReq("update_status", map[string]any{
		"loan_id": extract.DemoLoanID,
		"status":  "compliant",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandlersUnknownLoan(t *testing.T) {
	s := newTestServer(t)

	for name, call := range map[string]func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error){
		"list_requirements":  s.HandleListRequirements,
		"upcoming_deadlines": s.HandleUpcomingDeadlines,
		"loan_summary":       s.HandleLoanSummary,
		"loan_alerts":        s.HandleLoanAlerts,
	} {
		result, err := call(context.Background(), makeReq(name, map[string]any{"loan_id": "LOAN-NOPE"}))
		require.NoError(t, err, name)
		assert.True(t, result.IsError, name)
	}
}

func TestHandlersMissingLoanID(t *testing.T) {
	s := newTestServer(t)

	result, err := s.HandleListRequirements(context.Background(), makeReq("list_requirements", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
