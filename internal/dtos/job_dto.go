package dtos

import (
	"encoding/json"
	"time"

	"github.com/justsurfingit/job-board/internal/models"
)

type JobExtractionRequest struct {
	RawHTML string `json:"raw_html" binding:"required"`
	URL     string `json:"url"`
}

// JobCreationRequest is validated by the job service, not by binding tags,
// so every missing field yields the same client message.
type JobCreationRequest struct {
	Title         string     `json:"title"`
	MaxApplicants *int       `json:"maxApplicants"`
	MaxPositions  *int       `json:"maxPositions"`
	Deadline      *time.Time `json:"deadline"`
	Skillsets     []string   `json:"skillsets"`

	// Optional Fields
	JobType     string `json:"jobType"`
	Duration    *int   `json:"duration"`
	Salary      *int   `json:"salary"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// JobUpdateRequest is a partial update; nil fields are left untouched.
type JobUpdateRequest struct {
	Title         *string    `json:"title"`
	MaxApplicants *int       `json:"maxApplicants"`
	MaxPositions  *int       `json:"maxPositions"`
	Deadline      *time.Time `json:"deadline"`
	Skillsets     []string   `json:"skillsets"`
	JobType       *string    `json:"jobType"`
	Duration      *int       `json:"duration"`
	Salary        *int       `json:"salary"`
	Description   *string    `json:"description"`
	Location      *string    `json:"location"`
}

type ApplyRequest struct {
	SOP string `json:"sop"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type JobCreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type JobUpdatedResponse struct {
	Message    string      `json:"message"`
	UpdatedJob *models.Job `json:"updatedJob"`
}

// ExtractionResponse wraps the model's JSON without re-encoding it.
type ExtractionResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type ApplicationResponse struct {
	Message     string              `json:"message"`
	Application *models.Application `json:"application"`
}

type CheckAcceptedResponse struct {
	HasAcceptedJob bool `json:"hasAcceptedJob"`
}
