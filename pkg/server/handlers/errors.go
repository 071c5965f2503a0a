package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphein/graphein/pkg/server/dto"
	"github.com/graphein/graphein/pkg/types"
)

// respondError maps engine errors onto HTTP status codes. Client mistakes
// echo the offending value back; everything else is a 500 with the detail
// kept out of the response body.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		invalidQuery *types.InvalidQueryTypeError
		malformedID  *types.MalformedEntityIDError
		validation   *dto.ValidationError
	)
	switch {
	case errors.Is(err, types.ErrIndexNotReady):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:  "index_not_ready",
			Detail: "no document has been ingested yet",
		})
	case errors.As(err, &invalidQuery):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "invalid_query_type",
			Detail: err.Error(),
		})
	case errors.As(err, &malformedID):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "malformed_entity_id",
			Detail: err.Error(),
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "validation_failed",
			Detail: err.Error(),
		})
	case errors.Is(err, types.ErrEmptyContent), errors.Is(err, types.ErrEmptySourceURI):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "validation_failed",
			Detail: err.Error(),
		})
	default:
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal_error",
		})
	}
}
