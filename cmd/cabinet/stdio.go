package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalyzer/cabinet"
	"github.com/catalyzer/cabinet/internal/log"
	"github.com/catalyzer/cabinet/internal/mcp"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants search, read, and add catalog records.
Configuration is loaded from environment variables and .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	if !cfg.IsRemote() {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	// Stdout carries the MCP protocol; logs go to stderr.
	logger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
	logger.SetDefault()
	slogger := logger.Slog()

	slogger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
	)

	client, err := cabinet.New(
		cabinet.WithAppConfig(cfg),
		cabinet.WithLogger(slogger),
	)
	if err != nil {
		return fmt.Errorf("create cabinet client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close cabinet client", slog.Any("error", err))
		}
	}()

	return mcp.NewServer(client.Catalogs, slogger).ServeStdio()
}
