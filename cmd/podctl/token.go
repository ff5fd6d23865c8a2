package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"podstudio/internal/middleware"
)

func tokenCmd() *cobra.Command {
	var (
		locale string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an API bearer token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			token, err := middleware.SignJWT(cfg.JWTSecret, middleware.TokenClaims{
				Sub:      args[0],
				Locale:   locale,
				Exp:      time.Now().Add(ttl).Unix(),
				Issuer:   middleware.TokenIssuer,
				Audience: middleware.TokenAudience,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "en", "locale claim (en or id)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
