package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coinsort/coinsort/internal/cli"
	"github.com/coinsort/coinsort/internal/engine"
)

func categorizeCmd() *cobra.Command {
	var (
		userID   string
		account  string
		polarity string
		simple   bool
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize uncategorized transactions",
		Long: `Run the rule engine over the user's uncategorized transactions.

The default path walks each category tree in post-order, so a child
category's rules are always tested before its parent's and the most specific
match wins. With --simple, rule sets are evaluated independently instead and
unmatched transactions fall back to the counterparty's default category.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			pol, err := parsePolarity(polarity)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			expenses, revenue, err := loadTrees()
			if err != nil {
				return err
			}

			eng := engine.NewWithConfig(store, expenses, revenue, engine.Config{ShowProgress: true})

			var stats = struct {
				Matched   int
				Unmatched int
			}{}
			if simple {
				result, err := eng.CategorizeSimple(ctx, userID, account, pol)
				if err != nil {
					return fmt.Errorf("categorization failed: %w", err)
				}
				stats.Matched, stats.Unmatched = result.Matched, result.Unmatched
			} else {
				result, err := eng.CategorizeBatch(ctx, userID, account, pol)
				if err != nil {
					return fmt.Errorf("categorization failed: %w", err)
				}
				stats.Matched, stats.Unmatched = result.Matched, result.Unmatched
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Matched:   %d", stats.Matched)))
			fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("Unmatched: %d", stats.Unmatched)))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user to categorize for (required)")
	cmd.Flags().StringVar(&account, "account", "", "restrict to one bank account")
	cmd.Flags().StringVar(&polarity, "polarity", "", "restrict to expenses or revenue")
	cmd.Flags().BoolVar(&simple, "simple", false, "use the simple evaluation path with counterparty fallback")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
