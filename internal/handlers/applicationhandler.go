package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-board/internal/dtos"
	"github.com/justsurfingit/job-board/internal/services"
)

type ApplicationHandler struct {
	Applications *services.ApplicationService
	Log          *slog.Logger
}

func NewApplicationHandler(apps *services.ApplicationService, log *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{Applications: apps, Log: log}
}

// Apply is POST /jobs/:id/applications. The body is optional.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dtos.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badJSON(c, h.Log, err)
		return
	}
	app, err := h.Applications.Submit(c.Request.Context(), callerFrom(c), c.Param("id"), req.SOP)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, dtos.ApplicationResponse{Message: "Job application successful", Application: app})
}

func (h *ApplicationHandler) ListForJob(c *gin.Context) {
	apps, err := h.Applications.ListForJob(c.Request.Context(), callerFrom(c), c.Param("id"), c.Query("status"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *ApplicationHandler) CheckAccepted(c *gin.Context) {
	ok, err := h.Applications.HasAccepted(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, dtos.CheckAcceptedResponse{HasAcceptedJob: ok})
}

func (h *ApplicationHandler) ListMine(c *gin.Context) {
	apps, err := h.Applications.ListMine(c.Request.Context(), callerFrom(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req dtos.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.Log, err)
		return
	}
	app, err := h.Applications.UpdateStatus(c.Request.Context(), callerFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, dtos.ApplicationResponse{Message: "Application " + string(app.Status), Application: app})
}
