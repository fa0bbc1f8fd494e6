package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coinsort/coinsort/internal/cli"
	"github.com/coinsort/coinsort/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// initStorage migrates on open.
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			if status {
				fmt.Println(cli.BoldStyle.Render(
					fmt.Sprintf("schema version %d of %d", version, storage.ExpectedSchemaVersion)))
				return nil
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Database migrated to version %d", version)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print the schema version without changing anything")

	return cmd
}
