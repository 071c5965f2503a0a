package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/graphein/graphein"
	"github.com/graphein/graphein/pkg/server/dto"
	"github.com/graphein/graphein/pkg/types"
)

// KG serves the knowledge-graph query endpoints.
type KG struct {
	Service graphein.Service
	Logger  *slog.Logger
}

// queryResponse wraps a graph result with cache provenance.
type queryResponse struct {
	*types.GraphResult
	Cached bool `json:"cached"`
}

// Query handles GET /kg/query.
func (h *KG) Query(c *gin.Context) {
	params := dto.KGQueryParams{
		QueryType:    c.Query("query_type"),
		EntityType:   c.Query("type"),
		ValuePattern: c.Query("value_pattern"),
		Source:       c.Query("source"),
		Target:       c.Query("target"),
		RelationType: c.Query("relation_type"),
		MaxDepth:     c.Query("max_depth"),
		Limit:        c.Query("limit"),
	}
	q, err := params.ToGraphQuery()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	result, cached, err := h.Service.KGQuery(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, queryResponse{GraphResult: result, Cached: cached})
}

// Snapshot handles GET /kg/snapshot.
func (h *KG) Snapshot(c *gin.Context) {
	sample := 10
	if raw := c.Query("sample"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:  "invalid_sample",
				Detail: "sample must be a non-negative integer",
			})
			return
		}
		sample = n
	}

	preview, err := h.Service.GraphSnapshot(c.Request.Context(), sample)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// IndexInfo handles GET /index/info.
func (h *KG) IndexInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Info())
}
