package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loanguard/loanguard/internal/query"
)

func requirementsCmd() *cobra.Command {
	var (
		profilePath string
		loanID      string
		category    string
		severity    string
		status      string
		search      string
	)

	cmd := &cobra.Command{
		Use:   "requirements",
		Short: "List a loan's requirements",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			profile, err := loadProfileSource(cmd.Context(), logger, profilePath, loanID)
			if err != nil {
				return fmt.Errorf("requirements: %w", err)
			}

			engine := newEngine(logger)
			reqs := engine.Requirements(profile, query.Filter{
				Category: category,
				Severity: severity,
				Status:   status,
				Search:   search,
			})

			for _, r := range reqs {
				fmt.Printf("%s [%s/%s] %s\n", r.ID, r.Category, r.Severity, r.Title)
				fmt.Printf("    %s\n", truncate(r.PlainLanguageSummary, 120))
				if r.Threshold != nil {
					fmt.Printf("    Threshold: %s\n", r.Threshold.Human())
				}
				if r.Deadline != nil {
					fmt.Printf("    Deadline: %s (%s)\n", r.Deadline.Description, r.Deadline.Frequency)
				}
				fmt.Printf("    Status: %s | Ref: %s\n", r.Status, r.DocumentRef)
			}

			if len(reqs) == 0 {
				fmt.Println("No matching requirements.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "profile JSON file produced by analyze")
	cmd.Flags().StringVar(&loanID, "loan-id", "", "loan ID in the configured store")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&search, "search", "", "free-text search")
	return cmd
}
