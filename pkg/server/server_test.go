package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphein/graphein"
	"github.com/graphein/graphein/pkg/chunker"
	"github.com/graphein/graphein/pkg/config"
	"github.com/graphein/graphein/pkg/embedder"
)

const sampleText = `Alice Smith works at Acme Corp. Her email is alice@acme.com.
Acme Corp is located in Berlin. Bob Jones owns Widget LLC.
Contact bob@widget.io or call 415-555-0100. Alice Smith emailed bob@widget.io on 2024-03-15.`

func newTestServer(t *testing.T) (*gin.Engine, graphein.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eng, err := graphein.New(graphein.Options{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Embedder: embedder.NewMockClient(32),
		Chunker:  chunker.Config{MaxTokens: 100, OverlapTokens: 10},
	})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	srv := New(cfg, eng, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return srv.Setup(), eng
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func ingestSample(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/rag/ingest", map[string]any{
		"source_uri": "docs/sample.txt",
		"text":       sampleText,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		DocumentID string `json:"document_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotEmpty(t, result.DocumentID)
	return result.DocumentID
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestIngestValidation(t *testing.T) {
	router, _ := newTestServer(t)

	// Neither path nor text.
	w := doJSON(t, router, http.MethodPost, "/rag/ingest", map[string]any{"source_uri": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Both path and text.
	w = doJSON(t, router, http.MethodPost, "/rag/ingest", map[string]any{
		"source_uri": "x", "path": "/tmp/x", "text": "hello",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Inline text without a source.
	w = doJSON(t, router, http.MethodPost, "/rag/ingest", map[string]any{"text": "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Malformed JSON body.
	req := httptest.NewRequest(http.MethodPost, "/rag/ingest", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestFromPath(t *testing.T) {
	router, _ := newTestServer(t)

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleText), 0o644))

	w := doJSON(t, router, http.MethodPost, "/rag/ingest", map[string]any{"path": path})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		DocumentID    string `json:"document_id"`
		ChunksCreated int    `json:"chunks_created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEmpty(t, result.DocumentID)
	assert.Positive(t, result.ChunksCreated)
}

func TestIngestUnreadablePath(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/rag/ingest", map[string]any{
		"path": filepath.Join(t.TempDir(), "missing.txt"),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unreadable_path")
}

func TestSearchBeforeIngest(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/rag/search?query=alice", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "index_not_ready")
}

func TestSearchModes(t *testing.T) {
	router, _ := newTestServer(t)
	ingestSample(t, router)

	for _, mode := range []string{"", "semantic", "keyword", "hybrid"} {
		w := doJSON(t, router, http.MethodGet, "/rag/search?query=alice+acme&mode="+mode, nil)
		require.Equal(t, http.StatusOK, w.Code, mode)

		var resp struct {
			Items []struct {
				ChunkID string `json:"chunk_id"`
			} `json:"items"`
			QueryTimeMS int64 `json:"query_time_ms"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Items, mode)
	}
}

func TestSearchAlphaZeroIsKeywordRanking(t *testing.T) {
	router, _ := newTestServer(t)
	ingestSample(t, router)

	chunkIDs := func(w *httptest.ResponseRecorder) []string {
		var resp struct {
			Items []struct {
				ChunkID string `json:"chunk_id"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		ids := make([]string, len(resp.Items))
		for i, item := range resp.Items {
			ids[i] = item.ChunkID
		}
		return ids
	}

	keyword := doJSON(t, router, http.MethodGet, "/rag/search?query=alice+acme&mode=keyword", nil)
	require.Equal(t, http.StatusOK, keyword.Code)

	zero := doJSON(t, router, http.MethodGet, "/rag/search?query=alice+acme&mode=hybrid&alpha=0", nil)
	require.Equal(t, http.StatusOK, zero.Code)
	assert.Equal(t, chunkIDs(keyword), chunkIDs(zero))

	semantic := doJSON(t, router, http.MethodGet, "/rag/search?query=alice+acme&mode=semantic", nil)
	require.Equal(t, http.StatusOK, semantic.Code)

	one := doJSON(t, router, http.MethodGet, "/rag/search?query=alice+acme&mode=hybrid&alpha=1", nil)
	require.Equal(t, http.StatusOK, one.Code)
	assert.Equal(t, chunkIDs(semantic), chunkIDs(one))
}

func TestSearchParamValidation(t *testing.T) {
	router, _ := newTestServer(t)
	ingestSample(t, router)

	cases := []string{
		"/rag/search?query=x&mode=fuzzy",
		"/rag/search?query=x&alpha=1.5",
		"/rag/search?query=x&alpha=abc",
		"/rag/search?query=x&top_k=-1",
		"/rag/search?query=x&top_k=many",
		"/rag/search?query=", // empty query
	}
	for _, path := range cases {
		w := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestDeleteDocument(t *testing.T) {
	router, _ := newTestServer(t)
	docID := ingestSample(t, router)

	w := doJSON(t, router, http.MethodDelete, "/rag/documents/"+docID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Deleted bool `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)

	// A second delete is a 404.
	w = doJSON(t, router, http.MethodDelete, "/rag/documents/"+docID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), docID)
}

func TestKGQueryEndpoint(t *testing.T) {
	router, _ := newTestServer(t)
	ingestSample(t, router)

	w := doJSON(t, router, http.MethodGet, "/kg/query?query_type=entities&type=person", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Results []struct {
			ID     string `json:"id"`
			Degree int    `json:"degree"`
		} `json:"results"`
		Cached bool `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.False(t, resp.Cached)

	// The identical query is served from the cache.
	w = doJSON(t, router, http.MethodGet, "/kg/query?query_type=entities&type=person", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
}

func TestKGQueryValidation(t *testing.T) {
	router, _ := newTestServer(t)
	ingestSample(t, router)

	w := doJSON(t, router, http.MethodGet, "/kg/query?query_type=teleport", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "teleport")

	w = doJSON(t, router, http.MethodGet, "/kg/query?query_type=path&max_depth=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Path query with an unknown endpoint names the offending ID.
	w = doJSON(t, router, http.MethodGet,
		"/kg/query?query_type=path&source=person:nobody&target=person:alice+smith", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "person:nobody")
}

func TestKGSnapshotEndpoint(t *testing.T) {
	router, _ := newTestServer(t)
	ingestSample(t, router)

	w := doJSON(t, router, http.MethodGet, "/kg/snapshot?sample=3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Nodes  int `json:"nodes"`
		Edges  int `json:"edges"`
		Sample []struct {
			ID string `json:"id"`
		} `json:"sample"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Positive(t, resp.Nodes)
	assert.Positive(t, resp.Edges)
	assert.LessOrEqual(t, len(resp.Sample), 3)
}

func TestIndexInfoEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/index/info", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var info struct {
		IndexDocs  int  `json:"index_docs"`
		Dimension  int  `json:"dimension"`
		IndexReady bool `json:"index_matrix_ok"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 32, info.Dimension)
	assert.False(t, info.IndexReady)

	ingestSample(t, router)

	w = doJSON(t, router, http.MethodGet, "/index/info", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.True(t, info.IndexReady)
	assert.Positive(t, info.IndexDocs)
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	// A missing request ID is generated server-side.
	w = doJSON(t, router, http.MethodGet, "/live", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/rag/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestIdempotentReingest(t *testing.T) {
	router, _ := newTestServer(t)
	docID := ingestSample(t, router)

	w := doJSON(t, router, http.MethodPost, "/rag/ingest", map[string]any{
		"source_uri": "docs/sample.txt",
		"text":       sampleText,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		DocumentID string `json:"document_id"`
		Duplicate  bool   `json:"duplicate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, docID, result.DocumentID)
	assert.True(t, result.Duplicate)
}

func TestStatisticsThroughAPI(t *testing.T) {
	router, _ := newTestServer(t)
	ingestSample(t, router)

	w := doJSON(t, router, http.MethodGet, "/kg/query?query_type=statistics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Statistics struct {
			TotalNodes  int            `json:"total_nodes"`
			TotalEdges  int            `json:"total_edges"`
			NodesByType map[string]int `json:"nodes_by_type"`
		} `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Positive(t, resp.Statistics.TotalNodes)
	assert.Positive(t, resp.Statistics.NodesByType["person"])
}
