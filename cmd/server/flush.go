package main

import (
	"fmt"

	"match-engine/internal/app"

	"github.com/spf13/cobra"
)

var flushCacheCmd = &cobra.Command{
	Use:   "flush-cache",
	Short: "Drop every cached match result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		c, err := app.NewContainer(cmd.Context(), cfg, logger, app.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		if !c.Cache.Available() {
			return fmt.Errorf("redis is not reachable")
		}
		n, err := c.Matching.InvalidateCache(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d cached result(s) deleted\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flushCacheCmd)
}
