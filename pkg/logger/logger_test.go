package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerWritesMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, nil))

	log.Info("document ingested", "chunks", 3)

	out := buf.String()
	assert.Contains(t, out, "document ingested")
	assert.Contains(t, out, "chunks=")
	assert.Contains(t, out, "3")
}

func TestHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	base := NewColorHandler(&buf, nil)
	log := slog.New(base.WithGroup("ingest").WithAttrs([]slog.Attr{slog.String("doc", "d1")}))

	log.Info("done", "chunks", 2)

	out := buf.String()
	assert.Contains(t, out, "ingest.doc=")
	assert.Contains(t, out, "ingest.chunks=")
}
