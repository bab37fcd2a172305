package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loanguard/loanguard/internal/alerts"
	"github.com/loanguard/loanguard/internal/analyze"
	"github.com/loanguard/loanguard/internal/config"
	"github.com/loanguard/loanguard/internal/deadline"
	"github.com/loanguard/loanguard/internal/extract"
	"github.com/loanguard/loanguard/internal/models"
	"github.com/loanguard/loanguard/internal/normalizer"
	"github.com/loanguard/loanguard/internal/query"
	"github.com/loanguard/loanguard/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "loanguard",
		Short: "Loan document compliance extraction and monitoring",
		Long:  "LoanGuard reads commercial loan documents, extracts every operational requirement the borrower must comply with, and answers questions about deadlines, covenants, and compliance status.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		analyzeCmd(),
		demoCmd(),
		requirementsCmd(),
		deadlinesCmd(),
		askCmd(),
		summaryCmd(),
		alertsCmd(),
		statusCmd(),
		loansCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newResolver(logger *slog.Logger) *deadline.Resolver {
	return deadline.NewResolver(time.Month(cfg.Fiscal.YearEndMonth), cfg.Fiscal.YearEndDay, logger)
}

// newOracle picks the extraction backend: the canned dataset in mock mode,
// the Anthropic API otherwise.
func newOracle(logger *slog.Logger, mock bool) (extract.Oracle, error) {
	if mock || cfg.Extract.Mock {
		return extract.NewMockOracle(), nil
	}
	if cfg.Claude.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set; use --mock to run without an API key")
	}
	return extract.NewClaudeOracle(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Extract.CallTimeout(), logger), nil
}

func newAnalyzer(logger *slog.Logger, oracle extract.Oracle) *analyze.Analyzer {
	norm := normalizer.New(newResolver(logger), logger)
	return analyze.NewAnalyzer(oracle, norm, analyze.Config{
		ChunkSize:    cfg.Extract.ChunkSize,
		ChunkOverlap: cfg.Extract.ChunkOverlap,
		Concurrency:  cfg.Extract.Concurrency,
		MaxRetries:   cfg.Extract.MaxRetries,
	}, logger)
}

func newEngine(logger *slog.Logger) *query.Engine {
	return query.NewEngine(newResolver(logger), nil, cfg.Query.TopK, cfg.Query.MinScore, logger)
}

func newChecker(logger *slog.Logger) *alerts.Checker {
	return alerts.NewChecker(newResolver(logger), alerts.Horizon{
		AnyDays:      cfg.Alerts.UpcomingDays,
		CriticalDays: cfg.Alerts.CriticalUpcomingDays,
	}, logger)
}

// newStore returns the graph store when configured, the in-memory store
// otherwise. In-memory profiles only live for the duration of the process;
// CLI query commands work from profile files instead.
func newStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	if cfg.Neo4j.Enabled {
		st, err := store.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return store.NewMemoryStore(), nil
}

// loadProfileSource resolves the profile a query command should run
// against: a profile JSON file when --profile is given, the graph store
// when a loan ID is given and Neo4j is configured.
func loadProfileSource(ctx context.Context, logger *slog.Logger, profilePath, loanID string) (*models.LoanProfile, error) {
	if profilePath != "" {
		return readProfileFile(profilePath)
	}
	if loanID == "" {
		return nil, fmt.Errorf("either --profile or --loan-id is required")
	}
	if !cfg.Neo4j.Enabled {
		return nil, fmt.Errorf("loan %s: no profile file given and neo4j is not configured", loanID)
	}
	st, err := store.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close(ctx) }()
	return st.Get(ctx, loanID)
}

func readProfileFile(path string) (*models.LoanProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var profile models.LoanProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &profile, nil
}

func writeProfileFile(path string, profile *models.LoanProfile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
