package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func alertsCmd() *cobra.Command {
	var (
		profilePath string
		loanID      string
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show active alerts for a loan",
		Long:  "Scans the profile for upcoming and overdue deadlines and for covenants at risk or in breach, and prints each alert. Nothing is sent anywhere; wire the output into your own notification tooling.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			profile, err := loadProfileSource(cmd.Context(), logger, profilePath, loanID)
			if err != nil {
				return fmt.Errorf("alerts: %w", err)
			}

			checker := newChecker(logger)
			found := checker.Check(profile, time.Now().UTC())

			for _, a := range found {
				fmt.Printf("[%s] %s (%s): %s\n", a.Severity, a.RequirementID, a.Type, a.Message)
			}
			if len(found) == 0 {
				fmt.Println("No active alerts.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "profile JSON file produced by analyze")
	cmd.Flags().StringVar(&loanID, "loan-id", "", "loan ID in the configured store")
	return cmd
}
