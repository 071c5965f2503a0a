// Package config loads engine configuration from file, defaults, and
// environment overrides, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engine and its HTTP surface.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Chunker   ChunkerConfig   `mapstructure:"chunker" yaml:"chunker"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot" yaml:"snapshot"`
	Ingest    IngestConfig    `mapstructure:"ingest" yaml:"ingest"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	Mode string `mapstructure:"mode" yaml:"mode"` // gin mode: debug, release, test
}

// EmbeddingConfig holds the embedder capability configuration.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"` // openai, mock
	Model      string `mapstructure:"model" yaml:"model"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
}

// ChunkerConfig holds document chunking configuration.
type ChunkerConfig struct {
	MaxTokens     int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	OverlapTokens int    `mapstructure:"overlap_tokens" yaml:"overlap_tokens"`
	Tokenizer     string `mapstructure:"tokenizer" yaml:"tokenizer"` // tiktoken, approx
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	DefaultAlpha float64 `mapstructure:"default_alpha" yaml:"default_alpha"`
	DefaultTopK  int     `mapstructure:"default_top_k" yaml:"default_top_k"`
	Reranker     string  `mapstructure:"reranker" yaml:"reranker"` // none, local, embedding
}

// CacheConfig holds query-cache bounds.
type CacheConfig struct {
	Capacity   int `mapstructure:"capacity" yaml:"capacity"`
	TTLSeconds int `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
}

// SnapshotConfig holds the persisted snapshot store configuration.
type SnapshotConfig struct {
	Path     string `mapstructure:"path" yaml:"path"`
	InMemory bool   `mapstructure:"in_memory" yaml:"in_memory"`
}

// IngestConfig holds ingestion pipeline configuration.
type IngestConfig struct {
	// EmbedWorkers bounds the pool used for chunk embedding.
	EmbedWorkers int `mapstructure:"embed_workers" yaml:"embed_workers"`
}

// TelemetryConfig holds the error-log sink configuration.
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path" yaml:"parquet_path"`
}

// CircuitBreakerConfig guards the embedder against a flapping backend.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled" yaml:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests" yaml:"max_requests"`
	Interval         int     `mapstructure:"interval" yaml:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout" yaml:"timeout"`   // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio" yaml:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

// Dump renders the effective configuration as YAML with secrets redacted.
func (c *Config) Dump() (string, error) {
	clone := *c
	if clone.Embedding.APIKey != "" {
		clone.Embedding.APIKey = "***"
	}
	out, err := yaml.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("render config: %w", err)
	}
	return string(out), nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("embedding.provider", "mock")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 1536)

	viper.SetDefault("chunker.max_tokens", 400)
	viper.SetDefault("chunker.overlap_tokens", 40)
	viper.SetDefault("chunker.tokenizer", "tiktoken")

	viper.SetDefault("search.default_alpha", 0.5)
	viper.SetDefault("search.default_top_k", 10)
	viper.SetDefault("search.reranker", "none")

	viper.SetDefault("cache.capacity", 512)
	viper.SetDefault("cache.ttl_seconds", 300)

	viper.SetDefault("snapshot.path", "./graphein_db")
	viper.SetDefault("snapshot.in_memory", false)

	viper.SetDefault("ingest.embed_workers", 4)

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.graphein/telemetry", home))
	}
}

// overrideWithEnv overrides config with environment variables.
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
		if config.Embedding.Provider == "" || config.Embedding.Provider == "mock" {
			config.Embedding.Provider = "openai"
		}
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			config.Server.Port = parsed
		}
	}

	if path := os.Getenv("GRAPHEIN_SNAPSHOT_PATH"); path != "" {
		config.Snapshot.Path = path
	}
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
