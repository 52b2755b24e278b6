package dtos

import "github.com/justsurfingit/job-board/internal/models"

// SignUpRequest carries the account fields plus the role-specific profile.
type SignUpRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Type     string `json:"type" binding:"required"`

	Name    string `json:"name"`
	Profile string `json:"profile"`

	// Recruiter
	ContactNumber string `json:"contactNumber"`
	Bio           string `json:"bio"`

	// Applicant
	Education []models.Education `json:"education"`
	Skills    []string           `json:"skills"`
	Rating    *float64           `json:"rating"`
	Resume    string             `json:"resume"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	Token string          `json:"token"`
	Type  models.UserType `json:"type"`
	ID    string          `json:"_id"`
}
