package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loanguard/loanguard/internal/extract"
)

func demoCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Generate the demo loan profile without calling the API",
		Long:  "Runs the built-in demo dataset through the full extraction pipeline and writes the resulting profile. Useful for trying the query commands without an API key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			analyzer := newAnalyzer(logger, extract.NewMockOracle())
			profile, err := analyzer.Analyze(cmd.Context(), "demo loan agreement", extract.DemoLoanID, "demo-loan-agreement.txt")
			if err != nil {
				return fmt.Errorf("demo: %w", err)
			}

			if err := writeProfileFile(out, profile); err != nil {
				return fmt.Errorf("demo: %w", err)
			}

			fmt.Printf("Demo profile %s written to %s (%d requirements)\n", profile.LoanID, out, len(profile.Requirements))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "DEMO-001.json", "profile output path")
	return cmd
}
