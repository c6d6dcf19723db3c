// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8080
	DefaultLogLevel       = "INFO"
	DefaultAcquireTimeout = 5 * time.Second
	DefaultReaderEndpoint = "https://r.jina.ai"
	DefaultReaderTimeout  = 30 * time.Second
	DefaultReaderRetries  = 3
	DefaultEmbedTimeout   = 60 * time.Second
	DefaultEmbedRetries   = 5
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures the embedding AI service.
type Endpoint struct {
	baseURL    string
	model      string
	apiKey     string
	timeout    time.Duration
	maxRetries int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:    DefaultEmbedTimeout,
		maxRetries: DefaultEmbedRetries,
	}
}

// EndpointOption configures an Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the endpoint base URL.
func WithBaseURL(u string) EndpointOption { return func(e *Endpoint) { e.baseURL = u } }

// WithModel sets the model identifier.
func WithModel(m string) EndpointOption { return func(e *Endpoint) { e.model = m } }

// WithAPIKey sets the API key.
func WithAPIKey(k string) EndpointOption { return func(e *Endpoint) { e.apiKey = k } }

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption { return func(e *Endpoint) { e.timeout = d } }

// WithMaxRetries sets the retry budget.
func WithMaxRetries(n int) EndpointOption { return func(e *Endpoint) { e.maxRetries = n } }

// NewEndpointWithOptions creates an Endpoint from options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the retry budget.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// ReaderConfig configures the external URL-to-markdown reader service.
type ReaderConfig struct {
	endpoint   string
	timeout    time.Duration
	maxRetries int
}

// NewReaderConfig creates a ReaderConfig with defaults.
func NewReaderConfig() ReaderConfig {
	return ReaderConfig{
		endpoint:   DefaultReaderEndpoint,
		timeout:    DefaultReaderTimeout,
		maxRetries: DefaultReaderRetries,
	}
}

// Endpoint returns the reader service base URL.
func (r ReaderConfig) Endpoint() string { return r.endpoint }

// Timeout returns the per-request timeout.
func (r ReaderConfig) Timeout() time.Duration { return r.timeout }

// MaxRetries returns the retry budget for transient fetch failures.
func (r ReaderConfig) MaxRetries() int { return r.maxRetries }

// WithEndpoint returns a copy with the given endpoint.
func (r ReaderConfig) WithEndpoint(endpoint string) ReaderConfig {
	r.endpoint = endpoint
	return r
}

// WithTimeout returns a copy with the given timeout.
func (r ReaderConfig) WithTimeout(d time.Duration) ReaderConfig {
	r.timeout = d
	return r
}

// WithMaxRetries returns a copy with the given retry budget.
func (r ReaderConfig) WithMaxRetries(n int) ReaderConfig {
	r.maxRetries = n
	return r
}

// AppConfig holds the resolved application configuration.
type AppConfig struct {
	host              string
	port              int
	dataDir           string
	dbURL             string
	logLevel          string
	logFormat         LogFormat
	apiKeys           []string
	acquireTimeout    time.Duration
	embeddingEndpoint *Endpoint
	reader            ReaderConfig
}

// NewAppConfig creates an AppConfig with default values.
func NewAppConfig() AppConfig {
	return AppConfig{
		host:           DefaultHost,
		port:           DefaultPort,
		dataDir:        defaultDataDir(),
		logLevel:       DefaultLogLevel,
		logFormat:      LogFormatPretty,
		acquireTimeout: DefaultAcquireTimeout,
		reader:         NewReaderConfig(),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cabinet"
	}
	return filepath.Join(home, ".cabinet")
}

// Host returns the server host.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port.
func (c AppConfig) Port() int { return c.port }

// Addr returns the host:port listen address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL, or empty when the local
// per-organization SQLite layout under DataDir should be used.
func (c AppConfig) DBURL() string { return c.dbURL }

// IsRemote reports whether catalogs are stored in a remote managed
// database rather than local embedded files.
func (c AppConfig) IsRemote() bool {
	return strings.HasPrefix(c.dbURL, "postgres://") || strings.HasPrefix(c.dbURL, "postgresql://")
}

// LogLevel returns the log verbosity level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log output format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// AcquireTimeout returns the bound on acquiring a tenant storage handle.
func (c AppConfig) AcquireTimeout() time.Duration { return c.acquireTimeout }

// EmbeddingEndpoint returns the embedding service endpoint, or nil when
// embedding is not configured.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// Reader returns the URL-to-markdown reader configuration.
func (c AppConfig) Reader() ReaderConfig { return c.reader }

// EnsureDataDir creates the data directory if needed.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption mutates an AppConfig during construction.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption { return func(c *AppConfig) { c.host = host } }

// WithPort sets the server port.
func WithPort(port int) AppConfigOption { return func(c *AppConfig) { c.port = port } }

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption { return func(c *AppConfig) { c.dataDir = dir } }

// WithDBURL sets the database connection URL.
func WithDBURL(url string) AppConfigOption { return func(c *AppConfig) { c.dbURL = url } }

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption { return func(c *AppConfig) { c.logLevel = level } }

// WithLogFormat sets the log format.
func WithLogFormat(f LogFormat) AppConfigOption { return func(c *AppConfig) { c.logFormat = f } }

// WithAPIKeys sets the API keys protecting mutating routes.
func WithAPIKeys(keys []string) AppConfigOption { return func(c *AppConfig) { c.apiKeys = keys } }

// WithAcquireTimeout bounds tenant storage handle acquisition.
func WithAcquireTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) { c.acquireTimeout = d }
}

// WithEmbeddingEndpoint sets the embedding service endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithReaderConfig sets the reader service configuration.
func WithReaderConfig(r ReaderConfig) AppConfigOption {
	return func(c *AppConfig) { c.reader = r }
}

// NewAppConfigWithOptions creates an AppConfig from options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	cfg := NewAppConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Apply returns a copy of the config with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ParseAPIKeys splits a comma-separated key list, dropping blanks.
func ParseAPIKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ParseLogFormat maps a string to a LogFormat, defaulting to pretty.
func ParseLogFormat(s string) LogFormat {
	if strings.EqualFold(s, string(LogFormatJSON)) {
		return LogFormatJSON
	}
	return LogFormatPretty
}

// LogAttrs returns startup log attributes with secrets masked.
func (c AppConfig) LogAttrs() []slog.Attr {
	mode := "local"
	if c.IsRemote() {
		mode = "remote"
	}
	attrs := []slog.Attr{
		slog.String("addr", c.Addr()),
		slog.String("data_dir", c.dataDir),
		slog.String("storage_mode", mode),
		slog.String("log_level", c.logLevel),
	}
	if c.embeddingEndpoint != nil {
		attrs = append(attrs, slog.String("embedding_model", c.embeddingEndpoint.Model()))
	}
	return attrs
}
