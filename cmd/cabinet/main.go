// Package main is the entry point for the cabinet CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalyzer/cabinet/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cabinet",
		Short: "Cabinet catalog server",
		Long:  `Cabinet is a multi-tenant catalog store for markdown documents with bibliographic metadata, tag and text search, and optional vector similarity.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(stdioCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
