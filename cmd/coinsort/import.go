package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coinsort/coinsort/internal/cli"
	"github.com/coinsort/coinsort/internal/ingest"
	"github.com/coinsort/coinsort/internal/model"
	"github.com/coinsort/coinsort/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bank statements",
	}

	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importOFXCmd())

	return cmd
}

func importCSVCmd() *cobra.Command {
	var (
		userID  string
		account string
	)

	cmd := &cobra.Command{
		Use:   "csv FILE",
		Short: "Import a CSV statement export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open statement: %w", err)
			}
			defer f.Close()

			transactions, err := ingest.NewCSVParser().ParseFile(f, userID, account)
			if err != nil {
				return fmt.Errorf("failed to parse statement: %w", err)
			}

			return saveImported(cmd, transactions)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user (required)")
	cmd.Flags().StringVar(&account, "account", "", "bank account number (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func importOFXCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "ofx FILE",
		Short: "Import an OFX/QFX statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open statement: %w", err)
			}
			defer f.Close()

			transactions, err := ofx.NewParser().ParseFile(f, userID)
			if err != nil {
				return fmt.Errorf("failed to parse statement: %w", err)
			}

			return saveImported(cmd, transactions)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func saveImported(cmd *cobra.Command, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No transactions found in statement."))
		return nil
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveTransactions(ctx, transactions); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Imported %d transactions", len(transactions))))
	return nil
}
