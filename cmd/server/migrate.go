package main

import (
	"fmt"

	"match-engine/internal/app"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending analytics schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := app.OpenDatabase(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("DB_DRIVER=%s has no schema to migrate", cfg.Database.Driver)
		}
		defer db.Close()

		applied, err := app.Migrate(cmd.Context(), db, cfg.Database.MigrationsDir)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		}
		for _, v := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied V%d\n", v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
