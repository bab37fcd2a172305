package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func loansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Manage loans in the configured store",
	}
	cmd.AddCommand(loansListCmd(), loansDeleteCmd())
	return cmd
}

func loansListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("loans list: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			profiles, err := st.List(ctx)
			if err != nil {
				return fmt.Errorf("loans list: %w", err)
			}

			for _, p := range profiles {
				fmt.Printf("%s  %-30s %3d requirements  extracted %s\n",
					p.LoanID, truncate(p.PropertyName, 30), len(p.Requirements), p.ExtractedAt.Format("2006-01-02"))
			}
			if len(profiles) == 0 {
				fmt.Println("No loans stored.")
			}
			return nil
		},
	}
}

func loansDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <loan-id>",
		Short: "Delete a stored loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("loans delete: connecting to store: %w", err)
			}
			defer func() { _ = st.Close(ctx) }()

			if err := st.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("loans delete: %w", err)
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
