package graphein

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graphein/graphein/pkg/index"
	"github.com/graphein/graphein/pkg/types"
)

// IngestRequest describes one document to ingest.
type IngestRequest struct {
	// SourceURI identifies the document origin. Re-ingesting the same
	// source with unchanged content is a no-op; with changed content the
	// previous version is superseded.
	SourceURI string
	Text      string
	Metadata  map[string]string

	// SaveSnapshot persists the engine state after this ingest completes.
	SaveSnapshot bool
}

// Ingest runs the full pipeline for one document: chunk, embed, index,
// extract, and merge into the graph. Embedding failures are reported in the
// result but never fail the call; keyword indexing and extraction proceed
// regardless.
func (e *Engine) Ingest(ctx context.Context, req IngestRequest) (*types.IngestResult, error) {
	started := time.Now()

	if req.SourceURI == "" {
		return nil, types.ErrEmptySourceURI
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, types.ErrEmptyContent
	}

	hash := types.HashContent(req.Text)

	e.mu.Lock()
	if prevID, ok := e.bySource[req.SourceURI]; ok {
		if e.documents[prevID].ContentHash == hash {
			e.mu.Unlock()
			e.logger.Info("ingest skipped, content unchanged", "source_uri", req.SourceURI, "document_id", prevID)
			return &types.IngestResult{DocumentID: prevID, Duplicate: true}, nil
		}
		// Changed content supersedes the old version entirely.
		e.removeDocumentLocked(prevID)
	}

	doc := &types.Document{
		ID:          uuid.New().String(),
		SourceURI:   req.SourceURI,
		Content:     req.Text,
		ContentHash: hash,
		Metadata:    req.Metadata,
		IngestedAt:  time.Now().UTC(),
	}
	e.documents[doc.ID] = doc
	e.bySource[doc.SourceURI] = doc.ID
	e.mu.Unlock()

	chunks, err := e.chunker.Chunk(doc)
	if err != nil {
		e.mu.Lock()
		delete(e.documents, doc.ID)
		delete(e.bySource, doc.SourceURI)
		e.mu.Unlock()
		return nil, fmt.Errorf("chunk document: %w", err)
	}

	result := &types.IngestResult{DocumentID: doc.ID, ChunksCreated: len(chunks)}

	vectors := e.embedChunks(ctx, chunks, result)

	e.mu.Lock()
	for i, chunk := range chunks {
		e.chunks[chunk.ID] = chunk
		e.docChunks[doc.ID] = append(e.docChunks[doc.ID], chunk.ID)

		e.index.InsertTokens(chunk.ID, index.Tokenize(chunk.Text))
		if vectors[i] == nil {
			result.EmbeddingsSkipped++
			continue
		}
		if err := e.index.InsertVector(chunk.ID, vectors[i]); err != nil {
			result.EmbeddingsSkipped++
			result.Warnings = append(result.Warnings, fmt.Sprintf("chunk %s: %v", chunk.ID, err))
		}
	}
	e.index.Rebuild()
	e.mu.Unlock()

	for _, chunk := range chunks {
		extracted := e.registry.Run(chunk)
		for _, ent := range extracted.Entities {
			if e.graph.UpsertEntity(ent, doc.ID) {
				result.EntitiesCreated++
			} else {
				result.EntitiesUpdated++
			}
		}
		for _, rel := range extracted.Relations {
			if e.graph.UpsertRelation(rel, doc.ID) {
				result.RelationsCreated++
			}
		}
	}
	e.cache.Invalidate()

	if req.SaveSnapshot && e.store != nil {
		if _, err := e.SaveSnapshot(); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("snapshot save failed: %v", err))
			e.logger.Error("snapshot save after ingest failed", "document_id", doc.ID, "error", err)
		}
	}

	e.logger.Info("document ingested",
		"document_id", doc.ID,
		"source_uri", doc.SourceURI,
		"chunks", result.ChunksCreated,
		"entities_created", result.EntitiesCreated,
		"relations_created", result.RelationsCreated,
		"embeddings_skipped", result.EmbeddingsSkipped,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

// embedChunks embeds chunk texts in batches on the worker pool. A failed
// batch leaves nil vectors, recorded as a warning; the chunks still get
// keyword-indexed by the caller.
func (e *Engine) embedChunks(ctx context.Context, chunks []*types.Chunk, result *types.IngestResult) [][]float32 {
	vectors := make([][]float32, len(chunks))

	var wg sync.WaitGroup
	var warnMu sync.Mutex
	embedFailed := false

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]
		offset := start

		wg.Add(1)
		task := func() {
			defer wg.Done()
			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}
			embedded, err := e.embedder.Embed(ctx, texts)
			if err != nil || len(embedded) != len(batch) {
				warnMu.Lock()
				embedFailed = true
				if err != nil {
					result.Warnings = append(result.Warnings, fmt.Sprintf("embedding batch at chunk %d: %v", offset, err))
				} else {
					result.Warnings = append(result.Warnings, fmt.Sprintf("embedding batch at chunk %d: got %d vectors for %d chunks", offset, len(embedded), len(batch)))
				}
				warnMu.Unlock()
				return
			}
			for i := range batch {
				vectors[offset+i] = embedded[i]
			}
		}
		if err := e.pool.Submit(task); err != nil {
			// Pool unavailable; run inline rather than dropping the batch.
			task()
		}
	}
	wg.Wait()

	e.mu.Lock()
	e.modelOK = !embedFailed
	e.mu.Unlock()
	return vectors
}

// DeleteDocument removes a document, its chunks from both indexes, and its
// contribution to the graph. It reports whether the document existed.
func (e *Engine) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	e.mu.Lock()
	_, ok := e.documents[documentID]
	if !ok {
		e.mu.Unlock()
		return false, nil
	}
	e.removeDocumentLocked(documentID)
	e.mu.Unlock()

	e.cache.Invalidate()
	e.logger.Info("document deleted", "document_id", documentID)
	return true, nil
}

// removeDocumentLocked unindexes a document. Caller holds e.mu.
func (e *Engine) removeDocumentLocked(documentID string) {
	doc := e.documents[documentID]
	chunkIDs := e.docChunks[documentID]

	e.index.Remove(chunkIDs...)
	e.index.Rebuild()
	for _, id := range chunkIDs {
		delete(e.chunks, id)
	}
	delete(e.docChunks, documentID)
	delete(e.documents, documentID)
	if doc != nil {
		delete(e.bySource, doc.SourceURI)
	}

	e.graph.RemoveDocument(documentID)
}
