package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/graphein/graphein"
	"github.com/graphein/graphein/pkg/server/dto"
)

// RAG serves the document lifecycle and retrieval endpoints.
type RAG struct {
	Service graphein.Service
	Logger  *slog.Logger
}

// Ingest handles POST /rag/ingest. A path request is resolved server-side;
// the file must be readable by the service process.
func (h *RAG) Ingest(c *gin.Context) {
	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_json", Detail: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	text := req.Text
	if req.Path != "" {
		data, err := os.ReadFile(req.Path)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:  "unreadable_path",
				Detail: err.Error(),
			})
			return
		}
		text = string(data)
	}

	result, err := h.Service.Ingest(c.Request.Context(), graphein.IngestRequest{
		SourceURI:    req.EffectiveSourceURI(),
		Text:         text,
		Metadata:     req.Metadata,
		SaveSnapshot: req.SaveIndex,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteDocument handles DELETE /rag/documents/:id.
func (h *RAG) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.Service.DeleteDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:  "document_not_found",
			Detail: id,
		})
		return
	}
	c.JSON(http.StatusOK, dto.DeleteResponse{DocumentID: id, Deleted: true})
}

// Search handles GET /rag/search.
func (h *RAG) Search(c *gin.Context) {
	mode, err := graphein.ParseSearchMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "invalid_mode",
			Detail: err.Error(),
		})
		return
	}

	req := graphein.SearchRequest{
		Query: c.Query("query"),
		Mode:  mode,
	}
	if raw := c.Query("alpha"); raw != "" {
		alpha, err := strconv.ParseFloat(raw, 64)
		if err != nil || alpha < 0 || alpha > 1 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:  "invalid_alpha",
				Detail: "alpha must be a number in [0, 1]",
			})
			return
		}
		req.Alpha = &alpha
	}
	if raw := c.Query("top_k"); raw != "" {
		topK, err := strconv.Atoi(raw)
		if err != nil || topK < 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:  "invalid_top_k",
				Detail: "top_k must be a non-negative integer",
			})
			return
		}
		req.TopK = topK
	}
	req.Rerank = c.Query("rerank") == "true"

	resp, err := h.Service.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
