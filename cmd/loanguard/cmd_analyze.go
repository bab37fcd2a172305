package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	var (
		loanID string
		out    string
		save   bool
		mock   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <document.txt>",
		Short: "Extract compliance requirements from a loan document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("analyze: reading document: %w", err)
			}

			oracle, err := newOracle(logger, mock)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}

			analyzer := newAnalyzer(logger, oracle)
			profile, err := analyzer.Analyze(ctx, string(data), loanID, filepath.Base(args[0]))
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}

			if save {
				st, err := newStore(ctx, logger)
				if err != nil {
					return fmt.Errorf("analyze: connecting to store: %w", err)
				}
				defer func() { _ = st.Close(ctx) }()
				if err := st.Put(ctx, profile); err != nil {
					return fmt.Errorf("analyze: storing profile: %w", err)
				}
			}

			if out == "" {
				out = profile.LoanID + ".json"
			}
			if err := writeProfileFile(out, profile); err != nil {
				return fmt.Errorf("analyze: %w", err)
			}

			fmt.Printf("Analyzed %s: %d requirements extracted\n", profile.LoanID, len(profile.Requirements))
			if profile.Incomplete {
				fmt.Println("Warning: some document sections could not be processed; the profile is incomplete.")
			}
			fmt.Printf("Profile written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&loanID, "loan-id", "", "loan identifier (generated when omitted)")
	cmd.Flags().StringVar(&out, "out", "", "profile output path (default <loan-id>.json)")
	cmd.Flags().BoolVar(&save, "save", false, "also save the profile to the configured store")
	cmd.Flags().BoolVar(&mock, "mock", false, "use the built-in demo extractor instead of the Anthropic API")
	return cmd
}
