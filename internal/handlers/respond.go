package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-board/internal/apperr"
	"github.com/justsurfingit/job-board/internal/dtos"
)

// respondError classifies err once and writes {"message"} (plus "reason" for
// eligibility failures). Unclassified errors are logged and hidden.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("request timed out", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, dtos.MessageResponse{Message: "Request timed out"})
		return
	}

	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dtos.MessageResponse{Message: "Internal server error"})
		return
	}

	body := gin.H{"message": e.Message}
	if e.Reason != "" {
		body["reason"] = e.Reason
	}
	c.AbortWithStatusJSON(e.Kind.HTTPStatus(), body)
}

func badJSON(c *gin.Context, log *slog.Logger, err error) {
	respondError(c, log, apperr.Validation("Invalid JSON format: "+err.Error()))
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
