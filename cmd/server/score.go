package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"match-engine/internal/app"
	"match-engine/internal/config"
	"match-engine/internal/delivery/http/dto"
	"match-engine/internal/usecase"

	"github.com/spf13/cobra"
)

var (
	scoreFile    string
	scoreReverse bool
	scoreRecord  bool
	scoreJSON    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a match request file offline and print the ranking",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if scoreFile == "" {
			return errors.New("--file is required")
		}
		raw, err := os.ReadFile(scoreFile)
		if err != nil {
			return err
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if !scoreRecord {
			offline(&cfg)
		}

		c, err := app.NewContainer(cmd.Context(), cfg, logger, app.Options{Migrate: scoreRecord})
		if err != nil {
			return err
		}
		defer c.Close()

		var res usecase.MatchResponse
		if scoreReverse {
			var req usecase.ReverseMatchRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("decoding %s: %w", scoreFile, err)
			}
			res, err = c.Matching.ReverseMatch(cmd.Context(), req)
		} else {
			var req usecase.MatchRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("decoding %s: %w", scoreFile, err)
			}
			res, err = c.Matching.Match(cmd.Context(), req)
		}
		if err != nil {
			return err
		}

		out := dto.NewMatchListResponse(res)
		if scoreJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		return renderMatches(cmd.OutOrStdout(), out)
	},
}

// offline keeps a tuning session away from shared state: no database, no redis.
func offline(cfg *config.Config) {
	cfg.Database.Driver = config.DriverMemory
	cfg.Redis.Enabled = false
	cfg.Redis.HealthStore = config.HealthStoreMemory
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVarP(&scoreFile, "file", "f", "", "JSON match request")
	scoreCmd.Flags().BoolVar(&scoreReverse, "reverse", false, "the file is a reverse (job to candidates) request")
	scoreCmd.Flags().BoolVar(&scoreRecord, "record", false, "record results in the configured analytics store and cache")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the ranking as JSON")
}
