package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-board/internal/dtos"
	"github.com/justsurfingit/job-board/internal/services"
)

type JobHandler struct {
	Extraction *services.ExtractionService
	JobService *services.JobService
	Log        *slog.Logger
}

func NewJobHandler(extraction *services.ExtractionService, j *services.JobService, log *slog.Logger) *JobHandler {
	return &JobHandler{Extraction: extraction, JobService: j, Log: log}
}

// ParseJob is the POST /jobs/extract endpoint
func (h *JobHandler) ParseJob(c *gin.Context) {
	var req dtos.JobExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.Log, err)
		return
	}
	draft, err := h.Extraction.ExtractJob(c.Request.Context(), callerFrom(c), req.RawHTML)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, dtos.ExtractionResponse{Success: true, Data: draft})
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dtos.JobCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.Log, err)
		return
	}
	job, err := h.JobService.CreateJob(c.Request.Context(), callerFrom(c), &req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, dtos.JobCreatedResponse{Message: "Job added successfully to the database", ID: job.ID})
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs, err := h.JobService.ListJobs(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.JobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) UpdateJob(c *gin.Context) {
	var req dtos.JobUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c, h.Log, err)
		return
	}
	job, err := h.JobService.UpdateJob(c.Request.Context(), callerFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, dtos.JobUpdatedResponse{Message: "Job details updated successfully", UpdatedJob: job})
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	if err := h.JobService.DeleteJob(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, dtos.MessageResponse{Message: "Job deleted successfully"})
}
