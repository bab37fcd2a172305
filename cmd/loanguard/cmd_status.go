package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/loanguard/loanguard/internal/models"
)

func statusCmd() *cobra.Command {
	var (
		profilePath string
		loanID      string
		notes       string
	)

	cmd := &cobra.Command{
		Use:   "status <requirement-id> <status>",
		Short: "Set the compliance status of a requirement",
		Long:  "Marks a requirement as unknown, compliant, at_risk, or non_compliant. With --profile the file is updated in place; with --loan-id the configured store is updated.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			reqID := args[0]

			status := models.Status(args[1])
			if !status.IsValid() {
				return fmt.Errorf("status: unknown status %q (valid: unknown, compliant, at_risk, non_compliant)", args[1])
			}

			if profilePath != "" {
				profile, err := readProfileFile(profilePath)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				req := profile.Requirement(reqID)
				if req == nil {
					return fmt.Errorf("status: requirement %s not found in %s", reqID, profilePath)
				}
				if err := req.SetStatus(status, notes, time.Now().UTC()); err != nil {
					return fmt.Errorf("status: %w", err)
				}
				if err := writeProfileFile(profilePath, profile); err != nil {
					return fmt.Errorf("status: %w", err)
				}
				fmt.Printf("%s is now %s\n", reqID, status)
				return nil
			}

			if loanID == "" {
				return fmt.Errorf("status: either --profile or --loan-id is required")
			}
			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("status: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			updated, err := st.UpdateStatus(ctx, loanID, reqID, status, notes)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			fmt.Printf("%s is now %s\n", updated.ID, updated.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "profile JSON file produced by analyze")
	cmd.Flags().StringVar(&loanID, "loan-id", "", "loan ID in the configured store")
	cmd.Flags().StringVar(&notes, "notes", "", "note recording why the status changed")
	return cmd
}
