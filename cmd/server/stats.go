package main

import (
	"encoding/json"

	"match-engine/internal/analytics"
	"match-engine/internal/app"
	"match-engine/internal/delivery/http/dto"

	"github.com/spf13/cobra"
)

var (
	statsDays int
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the analytics summary of recent matches",
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

		sum, err := c.Matching.Summary(cmd.Context(), statsDays)
		if err != nil {
			return err
		}

		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewSummaryResponse(sum))
		}
		return renderSummary(cmd.OutOrStdout(), sum)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().IntVar(&statsDays, "days", analytics.DefaultSummaryDays, "trailing window in days")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the summary as JSON")
}
