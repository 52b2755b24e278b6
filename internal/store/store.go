// Package store is the storage boundary. Services receive a Store explicitly;
// the gorm implementation lives alongside and tests may supply their own.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/justsurfingit/job-board/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale means a conditional write matched no row because the record changed.
	ErrStale = errors.New("record changed concurrently")
)

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateRecruiter(ctx context.Context, r *models.Recruiter) error
	CreateApplicant(ctx context.Context, a *models.Applicant) error
}

type Jobs interface {
	CreateJob(ctx context.Context, j *models.Job) error
	FindJob(ctx context.Context, id string) (*models.Job, error)
	// FindOwnedJob returns ErrNotFound unless the job exists and belongs to ownerID.
	FindOwnedJob(ctx context.Context, id, ownerID string) (*models.Job, error)
	SaveJob(ctx context.Context, j *models.Job) error
	DeleteJob(ctx context.Context, id string) error
	ListJobs(ctx context.Context, q JobQuery) ([]models.Job, error)
}

type Applications interface {
	CreateApplication(ctx context.Context, a *models.Application) error
	FindApplication(ctx context.Context, id string) (*models.Application, error)
	ExistsApplication(ctx context.Context, f ApplicationFilter) (bool, error)
	CountApplications(ctx context.Context, f ApplicationFilter) (int64, error)
	ListApplications(ctx context.Context, f ApplicationFilter) ([]models.Application, error)
	// UpdateApplicationStatus writes to only when the stored status is still from.
	UpdateApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error
	SetJoiningDate(ctx context.Context, id string, joined time.Time) error
	// SetStatusWhere moves every application matching f to status and reports how many changed.
	SetStatusWhere(ctx context.Context, f ApplicationFilter, status models.ApplicationStatus) (int64, error)
}

type Store interface {
	Users
	Jobs
	Applications
	// WithinTx runs fn against a transactional view of the store.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// ApplicationFilter fields are ANDed; zero values are ignored.
type ApplicationFilter struct {
	ID          string
	ExcludeID   string
	UserID      string
	JobID       string
	RecruiterID string
	StatusIn    []models.ApplicationStatus
	StatusNotIn []models.ApplicationStatus
}

// Matches applies the filter to a single application in memory.
func (f ApplicationFilter) Matches(a *models.Application) bool {
	if f.ID != "" && a.ID != f.ID {
		return false
	}
	if f.ExcludeID != "" && a.ID == f.ExcludeID {
		return false
	}
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.JobID != "" && a.JobID != f.JobID {
		return false
	}
	if f.RecruiterID != "" && a.RecruiterID != f.RecruiterID {
		return false
	}
	if len(f.StatusIn) > 0 && !containsStatus(f.StatusIn, a.Status) {
		return false
	}
	if len(f.StatusNotIn) > 0 && containsStatus(f.StatusNotIn, a.Status) {
		return false
	}
	return true
}

func containsStatus(set []models.ApplicationStatus, s models.ApplicationStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// JobQuery is the storage-level form of a job listing request.
type JobQuery struct {
	TitleContains string
	JobTypes      []string
	SalaryMin     *int
	SalaryMax     *int
	// DurationBelow keeps jobs whose duration is strictly lower.
	DurationBelow *int
	Sort          []SortKey
}

// SortKey orders by a job column. Column must be one of SortableColumns.
type SortKey struct {
	Column string
	Desc   bool
}

// SortableColumns maps client field names to job columns.
var SortableColumns = map[string]string{
	"salary":        "salary",
	"duration":      "duration",
	"rating":        "rating",
	"title":         "title",
	"deadline":      "deadline",
	"dateOfPosting": "date_of_posting",
	"maxApplicants": "max_applicants",
	"maxPositions":  "max_positions",
}
