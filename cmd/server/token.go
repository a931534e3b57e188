package main

import (
	"errors"
	"fmt"

	"match-engine/internal/pkg/jwt"

	"github.com/spf13/cobra"
)

var tokenSubject string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a gateway client",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.AccessSecret == "" {
			return errors.New("JWT_ACCESS_SECRET is not set")
		}

		tok, err := jwt.NewHMACService(cfg.Auth.AccessSecret, cfg.Auth.AccessExpiresIn).GenerateAccessToken(tokenSubject)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "gateway", "client identifier stored in the sub claim")
}
