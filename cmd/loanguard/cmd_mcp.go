package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	loanmcp "github.com/loanguard/loanguard/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var mock bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  analyze_loan       extract requirements from document text and store the profile
  list_requirements  list a loan's requirements with optional filters
  upcoming_deadlines deadlines ordered by next due date
  ask_loan           answer a natural-language question about a loan
  loan_summary       compliance counts by category and status
  loan_alerts        upcoming/overdue deadlines and covenant warnings
  update_status      set a requirement's compliance status

If the store is unavailable at startup the server still starts; individual
tool calls will return MCP error responses on failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, storeErr := newStore(ctx, logger)
			if storeErr != nil {
				// Log to stderr and continue with a nil store.
				// Tool calls will return per-call errors rather than crashing.
				logger.Error("mcp: failed to connect to store; tool calls requiring storage will fail",
					"error", storeErr)
			}

			oracle, err := newOracle(logger, mock)
			if err != nil {
				return fmt.Errorf("mcp: %w", err)
			}

			analyzer := newAnalyzer(logger, oracle)
			engine := newEngine(logger)
			checker := newChecker(logger)

			srv := loanmcp.NewServer(st, analyzer, engine, checker, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: loanguard MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "use the built-in demo extractor instead of the Anthropic API")
	return cmd
}
