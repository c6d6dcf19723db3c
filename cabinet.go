// Package cabinet provides a multi-tenant catalog store for markdown
// documents with bibliographic metadata.
//
// Records are scoped to an organization/group/user tenant and persisted
// in per-organization embedded SQLite files, or in a shared PostgreSQL
// database when one is configured. Documents can be ingested directly,
// from markdown with YAML frontmatter, or from web URLs through an
// external reader service, and optionally vectorized for similarity
// search.
//
// Basic usage:
//
//	client, err := cabinet.New(
//	    cabinet.WithDataDir("/var/lib/cabinet"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	tenant, _ := catalog.NewTenant("acme", "research", "jane")
//	record, err := client.Catalogs.CreateFromMarkdown(ctx, tenant, "notes.md", doc)
package cabinet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/catalyzer/cabinet/application/service"
	"github.com/catalyzer/cabinet/infrastructure/persistence"
	"github.com/catalyzer/cabinet/infrastructure/provider"
	"github.com/catalyzer/cabinet/infrastructure/reader"
	"github.com/catalyzer/cabinet/internal/database"
)

// Client is the main entry point for the cabinet library.
//
// Access catalog operations via the Catalogs field:
//
//	client.Catalogs.Search(ctx, tenant, tags, query)
type Client struct {
	// Catalogs exposes all catalog use cases.
	Catalogs *service.CatalogService

	tenants *persistence.Tenants
	shared  *database.Database
	apiKeys []string
	logger  *slog.Logger
	closed  atomic.Bool
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		tenants *persistence.Tenants
		shared  *database.Database
	)
	if isPostgresURL(cfg.dbURL) {
		db, err := database.NewDatabase(context.Background(), cfg.dbURL)
		if err != nil {
			return nil, fmt.Errorf("connect shared database: %w", err)
		}
		shared = &db
		tenants = persistence.NewRemoteTenants(db, cfg.acquireTimeout, logger)
	} else {
		tenants = persistence.NewLocalTenants(cfg.dataDir, cfg.acquireTimeout, logger)
	}

	var embedder service.Embedder
	if cfg.embedding != nil {
		embedder = provider.NewOpenAIEmbedder(*cfg.embedding)
	}

	fetcher := reader.NewClient(cfg.reader)

	return &Client{
		Catalogs: service.NewCatalogService(tenants, embedder, fetcher, logger),
		tenants:  tenants,
		shared:   shared,
		apiKeys:  cfg.apiKeys,
		logger:   logger,
	}, nil
}

// APIKeys returns the keys protecting mutating HTTP routes.
func (c *Client) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Close releases all storage handles. Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if err := c.tenants.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.shared != nil {
		if err := c.shared.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}
