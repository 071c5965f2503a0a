// Package handlers implements the HTTP endpoints, translating between the
// wire DTOs and the engine API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphein/graphein"
)

// Build metadata, overridden at link time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Health serves the liveness and readiness probes.
type Health struct {
	Service graphein.Admin
}

// Check reports overall service health plus build metadata.
func (h *Health) Check(c *gin.Context) {
	info := h.Service.Info()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    Version,
		"git_commit": GitCommit,
		"index_docs": info.IndexDocs,
		"model_ok":   info.ModelOK,
	})
}

// Ready reports whether the service can accept traffic. The engine is ready
// as soon as it is constructed; an empty index is still ready because
// ingestion works.
func (h *Health) Ready(c *gin.Context) {
	info := h.Service.Info()
	c.JSON(http.StatusOK, gin.H{
		"ready":       true,
		"index_ready": info.IndexReady,
	})
}

// Live is the bare liveness probe.
func (h *Health) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}
