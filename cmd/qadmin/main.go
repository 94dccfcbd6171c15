package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"discovery/internal/app"
	"discovery/internal/config"
	"discovery/internal/logging"
)

var (
	verbose bool
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "qadmin",
	Short: "Administer discovery questionnaire responses",
	Long: `qadmin works directly against the configured response store.

It reads the same environment as the server (STORE_BACKEND, REDIS_URI,
MONGO_URI, JWT_SECRET, ...) and a .env file in development.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment configuration and builds a logger for it
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withApp connects to the store, runs fn and releases the connections
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return fn(ctx, a)
}
