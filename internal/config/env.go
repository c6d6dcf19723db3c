package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the directory holding per-organization SQLite files.
	// Env: DATA_DIR
	// Default: ~/.cabinet
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL selects remote managed storage when set to a PostgreSQL URL.
	// When empty, catalogs live in local embedded files under DataDir.
	// Env: DB_URL
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of valid API keys.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// AcquireTimeoutSeconds bounds tenant storage handle acquisition.
	// Env: ACQUIRE_TIMEOUT_SECONDS (default: 5)
	AcquireTimeoutSeconds float64 `envconfig:"ACQUIRE_TIMEOUT_SECONDS" default:"5"`

	// EmbeddingEndpoint configures the embedding AI service.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// Reader configures the URL-to-markdown converter service.
	Reader ReaderEnv `envconfig:"READER"`
}

// EndpointEnv holds environment configuration for an AI service endpoint.
type EndpointEnv struct {
	// BaseURL is the service base URL.
	// Env: EMBEDDING_ENDPOINT_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier (e.g. text-embedding-3-small).
	// Env: EMBEDDING_ENDPOINT_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey authenticates against the service.
	// Env: EMBEDDING_ENDPOINT_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_ENDPOINT_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the retry budget.
	// Env: EMBEDDING_ENDPOINT_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`
}

// ReaderEnv holds environment configuration for the reader service.
type ReaderEnv struct {
	// Endpoint is the reader service base URL.
	// Env: READER_ENDPOINT (default: https://r.jina.ai)
	Endpoint string `envconfig:"ENDPOINT"`

	// Timeout is the per-request timeout in seconds.
	// Env: READER_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`

	// MaxRetries is the retry budget for transient fetch failures.
	// Env: READER_MAX_RETRIES (default: 3)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Normalize trims whitespace from string fields that commonly pick up
// stray spaces from .env files.
func (e EnvConfig) Normalize() EnvConfig {
	e.Host = strings.TrimSpace(e.Host)
	e.DataDir = strings.TrimSpace(e.DataDir)
	e.DBURL = strings.TrimSpace(e.DBURL)
	e.LogLevel = strings.TrimSpace(e.LogLevel)
	e.LogFormat = strings.TrimSpace(e.LogFormat)
	e.Reader.Endpoint = strings.TrimSpace(e.Reader.Endpoint)
	return e
}

// IsConfigured returns true if the endpoint has a model configured.
func (e EndpointEnv) IsConfigured() bool {
	return e.Model != ""
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(e.Model),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithMaxRetries(e.MaxRetries),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	return NewEndpointWithOptions(opts...)
}

// ToReaderConfig converts ReaderEnv to ReaderConfig.
func (e ReaderEnv) ToReaderConfig() ReaderConfig {
	cfg := NewReaderConfig()
	if e.Endpoint != "" {
		cfg = cfg.WithEndpoint(e.Endpoint)
	}
	if e.Timeout > 0 {
		cfg = cfg.WithTimeout(time.Duration(e.Timeout * float64(time.Second)))
	}
	if e.MaxRetries > 0 {
		cfg = cfg.WithMaxRetries(e.MaxRetries)
	}
	return cfg
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = cfg.Apply(WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = cfg.Apply(WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(ParseLogFormat(e.LogFormat)))
	}
	if e.APIKeys != "" {
		cfg = cfg.Apply(WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	}
	if e.AcquireTimeoutSeconds > 0 {
		cfg = cfg.Apply(WithAcquireTimeout(time.Duration(e.AcquireTimeoutSeconds * float64(time.Second))))
	}
	if e.EmbeddingEndpoint.IsConfigured() {
		cfg = cfg.Apply(WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	}
	cfg = cfg.Apply(WithReaderConfig(e.Reader.ToReaderConfig()))

	return cfg
}
