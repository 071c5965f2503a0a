package graphein

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/graphein/graphein"
	"github.com/graphein/graphein/pkg/chunker"
	"github.com/graphein/graphein/pkg/config"
	"github.com/graphein/graphein/pkg/embedder"
	"github.com/graphein/graphein/pkg/logger"
	"github.com/graphein/graphein/pkg/persist"
	"github.com/graphein/graphein/pkg/rerank"
	"github.com/graphein/graphein/pkg/telemetry"
)

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildLogger assembles the handler chain: colored terminal output, wrapped
// by the parquet error sink when one is configured. The returned flush
// function must run on shutdown.
func buildLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var handler slog.Handler = logger.NewColorHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	})

	flush := func() {}
	if cfg.Telemetry.ParquetPath != "" {
		parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
		if err != nil {
			return nil, nil, fmt.Errorf("telemetry handler: %w", err)
		}
		handler = parquetHandler
		flush = func() {
			if err := parquetHandler.Flush(); err != nil {
				fmt.Fprintln(os.Stderr, "telemetry flush failed:", err)
			}
		}
	}
	return slog.New(handler), flush, nil
}

// buildEngine wires the engine from configuration: embedder, chunker,
// reranker, persistence, and cache bounds.
func buildEngine(cfg *config.Config, log *slog.Logger) (*graphein.Engine, error) {
	var embedClient embedder.Client
	switch cfg.Embedding.Provider {
	case "openai":
		embedClient = embedder.NewOpenAIClient(&embedder.Config{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		dims := cfg.Embedding.Dimensions
		if dims <= 0 {
			dims = 64
		}
		embedClient = embedder.NewMockClient(dims)
	}

	if cfg.CircuitBreaker.Enabled {
		embedClient = embedder.NewBreakerClient(embedClient, embedder.BreakerConfig{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         time.Duration(cfg.CircuitBreaker.Interval) * time.Second,
			Timeout:          time.Duration(cfg.CircuitBreaker.Timeout) * time.Second,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		})
	}

	var counter chunker.TokenCounter
	if cfg.Chunker.Tokenizer == "tiktoken" {
		counter = chunker.NewTiktokenCounter("cl100k_base")
	}

	var reranker rerank.Client
	switch cfg.Search.Reranker {
	case "local":
		reranker = rerank.NewLocalClient()
	case "embedding":
		reranker = rerank.NewEmbeddingClient(embedClient)
	}

	var store *persist.Store
	if cfg.Snapshot.Path != "" {
		var err error
		store, err = persist.Open(cfg.Snapshot.Path, cfg.Snapshot.InMemory)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
	}

	eng, err := graphein.New(graphein.Options{
		Logger:   log,
		Embedder: embedClient,
		Chunker: chunker.Config{
			MaxTokens:     cfg.Chunker.MaxTokens,
			OverlapTokens: cfg.Chunker.OverlapTokens,
		},
		TokenCounter:  counter,
		Reranker:      reranker,
		Persist:       store,
		CacheCapacity: cfg.Cache.Capacity,
		CacheTTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		EmbedWorkers:  cfg.Ingest.EmbedWorkers,
		DefaultAlpha:  cfg.Search.DefaultAlpha,
		DefaultTopK:   cfg.Search.DefaultTopK,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	if store != nil {
		if err := eng.LoadSnapshot(); err != nil {
			eng.Close()
			return nil, err
		}
	}
	return eng, nil
}
