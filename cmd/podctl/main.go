package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"podstudio/internal/infra"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "podctl",
		Short:         "Operate the podstudio design pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), credentialsCmd(), tokenCmd(), renderCmd())
	return root
}

// loadConfig reads the environment once per command.
func loadConfig() (*infra.Config, infra.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, infra.Logger{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, infra.NewLogger("cli").With().Str("cmd", "podctl").Logger(), nil
}
