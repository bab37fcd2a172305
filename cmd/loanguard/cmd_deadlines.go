package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func deadlinesCmd() *cobra.Command {
	var (
		profilePath string
		loanID      string
		days        int
	)

	cmd := &cobra.Command{
		Use:   "deadlines",
		Short: "List a loan's deadlines ordered by next due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			profile, err := loadProfileSource(cmd.Context(), logger, profilePath, loanID)
			if err != nil {
				return fmt.Errorf("deadlines: %w", err)
			}

			engine := newEngine(logger)
			deadlines := engine.Deadlines(profile, time.Now().UTC(), days)

			for _, d := range deadlines {
				r := d.Requirement
				if d.Due != nil {
					fmt.Printf("%-12s %4d days  %s [%s] %s\n", d.Due.Format("2006-01-02"), d.DaysUntil, r.ID, r.Severity, r.Title)
				} else {
					fmt.Printf("%-12s %10s %s [%s] %s (%s)\n", "event-driven", "", r.ID, r.Severity, r.Title, r.Deadline.Description)
				}
			}

			if len(deadlines) == 0 {
				fmt.Println("No deadlines found.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "profile JSON file produced by analyze")
	cmd.Flags().StringVar(&loanID, "loan-id", "", "loan ID in the configured store")
	cmd.Flags().IntVar(&days, "days", 0, "only show deadlines due within this many days (0 = all)")
	return cmd
}
