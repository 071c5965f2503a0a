package logger_test

import (
	"log/slog"

	"github.com/graphein/graphein/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("resolving snapshot path")
	log.Info("document ingested", "chunks", 12)
	log.Warn("embedder slow", "latency_ms", 1840)
	log.Error("snapshot save failed", "error", "disk full")
}

func ExampleNewColorHandler() {
	log := logger.NewDefaultLogger(slog.LevelInfo)

	log.Info("search completed", "mode", "hybrid", "query_time_ms", 4)
	log.Warn("degraded to keyword search", "reason", "embedder unavailable")
}
