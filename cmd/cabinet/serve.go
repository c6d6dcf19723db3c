package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/catalyzer/cabinet"
	"github.com/catalyzer/cabinet/infrastructure/api"
	apimiddleware "github.com/catalyzer/cabinet/infrastructure/api/middleware"
	"github.com/catalyzer/cabinet/infrastructure/api/routes"
	"github.com/catalyzer/cabinet/internal/config"
	"github.com/catalyzer/cabinet/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DATA_DIR                     Directory for per-organization SQLite files (default: ~/.cabinet)
  DB_URL                       PostgreSQL URL for shared remote storage (default: unset, local files)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  API_KEYS                     Comma-separated API keys protecting mutating routes
  ACQUIRE_TIMEOUT_SECONDS      Tenant storage acquisition bound (default: 5)

  EMBEDDING_ENDPOINT_*         Embedding AI service configuration
    BASE_URL                   Base URL (e.g., https://api.openai.com/v1)
    MODEL                      Model identifier (e.g., text-embedding-3-small)
    API_KEY                    API key for authentication
    TIMEOUT                    Request timeout in seconds (default: 60)
    MAX_RETRIES                Retry attempts (default: 5)

  READER_*                     URL-to-markdown converter service
    ENDPOINT                   Converter base URL (default: https://r.jina.ai)
    TIMEOUT                    Per-request timeout in seconds (default: 30)
    MAX_RETRIES                Retry attempts (default: 3)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Flags take precedence over env vars.
	if host != "" {
		cfg = cfg.Apply(config.WithHost(host))
	}
	if port != 0 {
		cfg = cfg.Apply(config.WithPort(port))
	}

	if !cfg.IsRemote() {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	logger := log.NewLogger(cfg)
	logger.SetDefault()
	slogger := logger.Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting cabinet", attrs...)

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

	server := api.NewServer(cfg.Addr(), slogger)

	protect := apimiddleware.APIKey(apimiddleware.NewAuthConfig(cfg.APIKeys()))
	routes.NewCatalogs(client.Catalogs, slogger).Register(server.Router(), protect)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		cancel()
		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
