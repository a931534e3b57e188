package main

import (
	"errors"
	"fmt"
	"io/fs"

	"match-engine/internal/config"
	"match-engine/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const appName = "matchd"

var (
	envFile   string
	debugFlag bool
	jsonFlag  bool

	rootCmd = &cobra.Command{
		Use:          appName,
		Short:        "matchd scores candidates against job offers and serves the matching API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args)
		},
	}
)

// Execute runs the root command; without a subcommand it serves HTTP.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonFlag, "json-log", "j", false, "json format for logging")
}

// loadConfig reads the dotenv file (a missing default file is fine) and the environment.
func loadConfig() (config.Config, *zap.Logger, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !(errors.Is(err, fs.ErrNotExist) && envFile == ".env") {
			return config.Config{}, nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	l, err := logger.New(cfg.Log.JSON || jsonFlag, cfg.Log.Debug || debugFlag)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, l, nil
}
