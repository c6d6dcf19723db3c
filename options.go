package cabinet

import (
	"log/slog"
	"time"

	"github.com/catalyzer/cabinet/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dataDir        string
	dbURL          string
	acquireTimeout time.Duration
	embedding      *config.Endpoint
	reader         config.ReaderConfig
	apiKeys        []string
	logger         *slog.Logger
}

// newClientConfig creates a clientConfig with the package defaults so
// all defaults come from the single source of truth.
func newClientConfig() *clientConfig {
	appCfg := config.NewAppConfig()
	return &clientConfig{
		dataDir:        appCfg.DataDir(),
		acquireTimeout: appCfg.AcquireTimeout(),
		reader:         appCfg.Reader(),
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithDataDir sets the directory holding per-organization SQLite files.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) { c.dataDir = dir }
}

// WithPostgres stores all tenants in a remote PostgreSQL database
// instead of local embedded files.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) { c.dbURL = dsn }
}

// WithAcquireTimeout bounds tenant storage handle acquisition.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.acquireTimeout = d }
}

// WithEmbedding enables vectorization and similarity search through an
// OpenAI-compatible embeddings endpoint.
func WithEmbedding(endpoint config.Endpoint) Option {
	return func(c *clientConfig) { c.embedding = &endpoint }
}

// WithReader configures the URL-to-markdown converter service.
func WithReader(reader config.ReaderConfig) Option {
	return func(c *clientConfig) { c.reader = reader }
}

// WithAPIKeys protects mutating HTTP routes with X-API-KEY auth.
func WithAPIKeys(keys []string) Option {
	return func(c *clientConfig) { c.apiKeys = keys }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// WithAppConfig applies a resolved application configuration wholesale,
// used by the CLI after env/flag resolution.
func WithAppConfig(appCfg config.AppConfig) Option {
	return func(c *clientConfig) {
		c.dataDir = appCfg.DataDir()
		c.dbURL = appCfg.DBURL()
		c.acquireTimeout = appCfg.AcquireTimeout()
		c.embedding = appCfg.EmbeddingEndpoint()
		c.reader = appCfg.Reader()
		c.apiKeys = appCfg.APIKeys()
	}
}
