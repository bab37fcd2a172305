package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var (
		profilePath string
		loanID      string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a natural-language question about a loan's obligations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			question := strings.Join(args, " ")

			profile, err := loadProfileSource(cmd.Context(), logger, profilePath, loanID)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			engine := newEngine(logger)
			answers := engine.Ask(profile, question)

			if len(answers) == 0 {
				fmt.Println("No requirement in this loan matches the question.")
				return nil
			}

			for i, a := range answers {
				r := a.Requirement
				fmt.Printf("[%d] %s: %s\n", i+1, r.ID, r.Title)
				fmt.Printf("    %s\n", r.PlainLanguageSummary)
				if r.Deadline != nil {
					fmt.Printf("    Due: %s\n", r.Deadline.Description)
				}
				if r.Threshold != nil {
					fmt.Printf("    Threshold: %s\n", r.Threshold.Human())
				}
				fmt.Printf("    Ref: %s\n", r.DocumentRef)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "profile JSON file produced by analyze")
	cmd.Flags().StringVar(&loanID, "loan-id", "", "loan ID in the configured store")
	return cmd
}
