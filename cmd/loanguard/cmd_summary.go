package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	var (
		profilePath string
		loanID      string
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a compliance summary for a loan",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			profile, err := loadProfileSource(cmd.Context(), logger, profilePath, loanID)
			if err != nil {
				return fmt.Errorf("summary: %w", err)
			}

			s := profile.Summarize()

			fmt.Printf("Loan: %s", profile.LoanID)
			if profile.PropertyName != "" {
				fmt.Printf(" (%s)", profile.PropertyName)
			}
			fmt.Println()
			fmt.Printf("Requirements: %d total, %d critical\n", s.TotalRequirements, s.CriticalItems)
			if profile.Incomplete {
				fmt.Println("Note: extraction was incomplete; some requirements may be missing.")
			}

			fmt.Println("\nBy category:")
			for _, k := range sortedKeys(s.ByCategory) {
				fmt.Printf("  %-22s %d\n", k, s.ByCategory[k])
			}

			fmt.Println("\nBy status:")
			for _, k := range sortedKeys(s.ByStatus) {
				fmt.Printf("  %-22s %d\n", k, s.ByStatus[k])
			}

			if s.NonCompliantCount > 0 || s.AtRiskCount > 0 {
				fmt.Printf("\nAttention: %d non-compliant, %d at risk\n", s.NonCompliantCount, s.AtRiskCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "profile JSON file produced by analyze")
	cmd.Flags().StringVar(&loanID, "loan-id", "", "loan ID in the configured store")
	return cmd
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
