// Package mcp implements the Model Context Protocol server for loanguard.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/loanguard/loanguard/internal/alerts"
	"github.com/loanguard/loanguard/internal/analyze"
	"github.com/loanguard/loanguard/internal/models"
	"github.com/loanguard/loanguard/internal/query"
	"github.com/loanguard/loanguard/internal/store"
)

// Server wraps an MCPServer with loanguard dependencies.
type Server struct {
	mcp      *mcpserver.MCPServer
	st       store.Store
	analyzer *analyze.Analyzer
	engine   *query.Engine
	checker  *alerts.Checker
	logger   *slog.Logger
}

// NewServer creates a new MCP server. If st or analyzer are nil, the
// corresponding tool calls return an error response instead of panicking.
func NewServer(st store.Store, analyzer *analyze.Analyzer, engine *query.Engine, checker *alerts.Checker, logger *slog.Logger) *Server {
	s := &Server{
		st:       st,
		analyzer: analyzer,
		engine:   engine,
		checker:  checker,
		logger:   logger,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"loanguard",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildAnalyzeLoanTool(), s.handleAnalyzeLoan)
	mcpSrv.AddTool(buildListRequirementsTool(), s.handleListRequirements)
	mcpSrv.AddTool(buildUpcomingDeadlinesTool(), s.handleUpcomingDeadlines)
	mcpSrv.AddTool(buildAskLoanTool(), s.handleAskLoan)
	mcpSrv.AddTool(buildLoanSummaryTool(), s.handleLoanSummary)
	mcpSrv.AddTool(buildLoanAlertsTool(), s.handleLoanAlerts)
	mcpSrv.AddTool(buildUpdateStatusTool(), s.handleUpdateStatus)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleAnalyzeLoan is the exported handler for the "analyze_loan" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleAnalyzeLoan(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAnalyzeLoan(ctx, req)
}

// HandleListRequirements is the exported handler for the "list_requirements" tool.
func (s *Server) HandleListRequirements(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleListRequirements(ctx, req)
}

// HandleUpcomingDeadlines is the exported handler for the "upcoming_deadlines" tool.
func (s *Server) HandleUpcomingDeadlines(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpcomingDeadlines(ctx, req)
}

// HandleAskLoan is the exported handler for the "ask_loan" tool.
func (s *Server) HandleAskLoan(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAskLoan(ctx, req)
}

// HandleLoanSummary is the exported handler for the "loan_summary" tool.
func (s *Server) HandleLoanSummary(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleLoanSummary(ctx, req)
}

// HandleLoanAlerts is the exported handler for the "loan_alerts" tool.
func (s *Server) HandleLoanAlerts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleLoanAlerts(ctx, req)
}

// HandleUpdateStatus is the exported handler for the "update_status" tool.
func (s *Server) HandleUpdateStatus(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUpdateStatus(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// loadProfile fetches a loan by ID, returning a tool error result on failure.
func (s *Server) loadProfile(ctx context.Context, loanID string) (*models.LoanProfile, *mcpgo.CallToolResult) {
	if s.st == nil {
		return nil, mcpgo.NewToolResultError("store is unavailable")
	}
	if strings.TrimSpace(loanID) == "" {
		return nil, mcpgo.NewToolResultError("loan_id is required and must not be empty")
	}
	profile, err := s.st.Get(ctx, loanID)
	if err != nil {
		return nil, mcpgo.NewToolResultErrorf("loading loan failed: %s", err.Error())
	}
	return profile, nil
}

// --- tool definitions ---

func buildAnalyzeLoanTool() mcpgo.Tool {
	return mcpgo.NewTool("analyze_loan",
		mcpgo.WithDescription("Extract compliance requirements from loan document text and store the resulting profile."),
		mcpgo.WithString("text",
			mcpgo.Required(),
			mcpgo.Description("The loan document text to analyze"),
		),
		mcpgo.WithString("loan_id",
			mcpgo.Description("Loan identifier (generated when omitted)"),
		),
		mcpgo.WithString("document_name",
			mcpgo.Description("Name of the source document"),
		),
	)
}

func buildListRequirementsTool() mcpgo.Tool {
	return mcpgo.NewTool("list_requirements",
		mcpgo.WithDescription("List a loan's requirements, optionally filtered by category, severity, status, or free-text search."),
		mcpgo.WithString("loan_id",
			mcpgo.Required(),
			mcpgo.Description("The loan to query"),
		),
		mcpgo.WithString("category",
			mcpgo.Description("Filter by category, e.g. financial_reporting, covenant_compliance, insurance"),
		),
		mcpgo.WithString("severity",
			mcpgo.Description("Filter by severity: critical, high, medium, or low"),
		),
		mcpgo.WithString("status",
			mcpgo.Description("Filter by status: unknown, compliant, at_risk, or non_compliant"),
		),
		mcpgo.WithString("search",
			mcpgo.Description("Free-text search over titles and descriptions"),
		),
	)
}

func buildUpcomingDeadlinesTool() mcpgo.Tool {
	return mcpgo.NewTool("upcoming_deadlines",
		mcpgo.WithDescription("List a loan's deadlines ordered by next due date."),
		mcpgo.WithString("loan_id",
			mcpgo.Required(),
			mcpgo.Description("The loan to query"),
		),
		mcpgo.WithNumber("days",
			mcpgo.Description("Only include deadlines due within this many days (default: all)"),
		),
	)
}

func buildAskLoanTool() mcpgo.Tool {
	return mcpgo.NewTool("ask_loan",
		mcpgo.WithDescription("Answer a natural-language question about a loan's obligations from the extracted profile."),
		mcpgo.WithString("loan_id",
			mcpgo.Required(),
			mcpgo.Description("The loan to query"),
		),
		mcpgo.WithString("question",
			mcpgo.Required(),
			mcpgo.Description("The question, e.g. 'When is my insurance certificate due?'"),
		),
	)
}

func buildLoanSummaryTool() mcpgo.Tool {
	return mcpgo.NewTool("loan_summary",
		mcpgo.WithDescription("Get a compliance summary for a loan: counts by category and status, critical items."),
		mcpgo.WithString("loan_id",
			mcpgo.Required(),
			mcpgo.Description("The loan to summarize"),
		),
	)
}

func buildLoanAlertsTool() mcpgo.Tool {
	return mcpgo.NewTool("loan_alerts",
		mcpgo.WithDescription("List active alerts for a loan: upcoming and overdue deadlines, covenants at risk or in breach."),
		mcpgo.WithString("loan_id",
			mcpgo.Required(),
			mcpgo.Description("The loan to check"),
		),
	)
}

func buildUpdateStatusTool() mcpgo.Tool {
	return mcpgo.NewTool("update_status",
		mcpgo.WithDescription("Set the compliance status of one requirement."),
		mcpgo.WithString("loan_id",
			mcpgo.Required(),
			mcpgo.Description("The loan containing the requirement"),
		),
		mcpgo.WithString("requirement_id",
			mcpgo.Required(),
			mcpgo.Description("The requirement to update, e.g. REQ-003"),
		),
		mcpgo.WithString("status",
			mcpgo.Required(),
			mcpgo.Description("New status: unknown, compliant, at_risk, or non_compliant"),
		),
		mcpgo.WithString("notes",
			mcpgo.Description("Optional note recording why the status changed"),
		),
	)
}

// --- tool handlers ---

// handleAnalyzeLoan runs the extraction pipeline and stores the profile.
func (s *Server) handleAnalyzeLoan(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}
	if s.analyzer == nil {
		return mcpgo.NewToolResultError("analyzer is unavailable"), nil
	}

	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcpgo.NewToolResultError("text is required and must not be empty"), nil
	}
	loanID := req.GetString("loan_id", "")
	docName := req.GetString("document_name", "")

	profile, err := s.analyzer.Analyze(ctx, text, loanID, docName)
	if err != nil {
		return mcpgo.NewToolResultErrorf("analysis failed: %s", err.Error()), nil
	}
	if err := s.st.Put(ctx, profile); err != nil {
		return mcpgo.NewToolResultErrorf("storing profile failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: analyzed loan", "loan_id", profile.LoanID, "requirements", len(profile.Requirements), "incomplete", profile.Incomplete)

	result := map[string]any{
		"loan_id":      profile.LoanID,
		"requirements": len(profile.Requirements),
		"incomplete":   profile.Incomplete,
	}
	return toolResultJSON(result)
}

// handleListRequirements returns filtered requirements for one loan.
func (s *Server) handleListRequirements(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	profile, errResult := s.loadProfile(ctx, req.GetString("loan_id", ""))
	if errResult != nil {
		return errResult, nil
	}

	filter := query.Filter{
		Category: req.GetString("category", ""),
		Severity: req.GetString("severity", ""),
		Status:   req.GetString("status", ""),
		Search:   req.GetString("search", ""),
	}
	reqs := s.engine.Requirements(profile, filter)
	result := map[string]any{
		"loan_id":      profile.LoanID,
		"requirements": reqs,
	}
	return toolResultJSON(result)
}

// handleUpcomingDeadlines returns deadlines ordered by next due date.
func (s *Server) handleUpcomingDeadlines(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	profile, errResult := s.loadProfile(ctx, req.GetString("loan_id", ""))
	if errResult != nil {
		return errResult, nil
	}

	days := req.GetInt("days", 0)
	if days < 0 {
		return mcpgo.NewToolResultError("days must be >= 0"), nil
	}

	deadlines := s.engine.Deadlines(profile, time.Now().UTC(), days)
	result := map[string]any{
		"loan_id":   profile.LoanID,
		"deadlines": deadlines,
	}
	return toolResultJSON(result)
}

// handleAskLoan ranks requirements against a natural-language question.
func (s *Server) handleAskLoan(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	profile, errResult := s.loadProfile(ctx, req.GetString("loan_id", ""))
	if errResult != nil {
		return errResult, nil
	}

	question := req.GetString("question", "")
	if strings.TrimSpace(question) == "" {
		return mcpgo.NewToolResultError("question is required and must not be empty"), nil
	}

	answers := s.engine.Ask(profile, question)
	result := map[string]any{
		"loan_id": profile.LoanID,
		"answers": answers,
	}
	return toolResultJSON(result)
}

// handleLoanSummary returns compliance counts for one loan.
func (s *Server) handleLoanSummary(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	profile, errResult := s.loadProfile(ctx, req.GetString("loan_id", ""))
	if errResult != nil {
		return errResult, nil
	}
	return toolResultJSON(profile.Summarize())
}

// handleLoanAlerts returns active alerts for one loan.
func (s *Server) handleLoanAlerts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	profile, errResult := s.loadProfile(ctx, req.GetString("loan_id", ""))
	if errResult != nil {
		return errResult, nil
	}

	found := s.checker.Check(profile, time.Now().UTC())
	result := map[string]any{
		"loan_id": profile.LoanID,
		"alerts":  found,
	}
	return toolResultJSON(result)
}

// handleUpdateStatus sets one requirement's compliance status.
func (s *Server) handleUpdateStatus(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.st == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	loanID := req.GetString("loan_id", "")
	reqID := req.GetString("requirement_id", "")
	if strings.TrimSpace(loanID) == "" || strings.TrimSpace(reqID) == "" {
		return mcpgo.NewToolResultError("loan_id and requirement_id are required"), nil
	}

	status := models.Status(req.GetString("status", ""))
	if !status.IsValid() {
		return mcpgo.NewToolResultErrorf("invalid status %q: must be one of unknown, compliant, at_risk, non_compliant", string(status)), nil
	}
	notes := req.GetString("notes", "")

	updated, err := s.st.UpdateStatus(ctx, loanID, reqID, status, notes)
	if err != nil {
		return mcpgo.NewToolResultErrorf("status update failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: updated requirement status", "loan_id", loanID, "requirement_id", reqID, "status", status)
	return toolResultJSON(updated)
}
