package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/timesheet_app/internal/platform/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "timesheet_backend",
	Short: "Timesheet backend: clock-in, breaks and availability tracking",
	Long: `timesheet_backend serves the timesheet HTTP API and manages its database schema.
Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// bootstrap sets up the JSON logger as default and loads configuration.
func bootstrap() (*slog.Logger, *config.Config, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		return nil, nil, err
	}
	return logger, cfg, nil
}
