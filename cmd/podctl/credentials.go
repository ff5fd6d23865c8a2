package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podstudio/internal/infra"
	"podstudio/internal/infra/credentials"
)

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage provider tokens stored in the record store",
	}

	var storeID string
	set := &cobra.Command{
		Use:       "set <provider> <token>",
		Short:     "Store a provider token (" + strings.Join(credentials.Providers, ", ") + ")",
		Args:      cobra.ExactArgs(2),
		ValidArgs: credentials.Providers,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			pool, err := infra.NewDBPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			var props map[string]any
			if storeID != "" {
				props = map[string]any{"store_id": storeID}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
			if err := store.Set(ctx, args[0], args[1], props); err != nil {
				return fmt.Errorf("persist %s token: %w", args[0], err)
			}
			logger.Info().Str("provider", strings.ToLower(args[0])).Msg("token stored")
			return nil
		},
	}
	set.Flags().StringVar(&storeID, "store-id", "", "Printful store id kept alongside the token")
	cmd.AddCommand(set)
	return cmd
}
