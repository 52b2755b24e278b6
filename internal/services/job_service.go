package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/justsurfingit/job-board/internal/apperr"
	"github.com/justsurfingit/job-board/internal/auth"
	"github.com/justsurfingit/job-board/internal/dtos"
	"github.com/justsurfingit/job-board/internal/lock"
	"github.com/justsurfingit/job-board/internal/models"
	"github.com/justsurfingit/job-board/internal/store"
)

var (
	errJobNotFound    = apperr.NotFound("Job does not exist")
	errNoJobsFound    = apperr.NotFound("No job found")
	errMissingFields  = apperr.Validation("Missing required fields")
	errNoPermission   = apperr.Authorization("You don't have permissions")
	errRecruitersOnly = apperr.Authorization("You don't have permissions to add jobs")
)

type JobService struct {
	Store  store.Store
	Locker lock.Locker
	Log    *slog.Logger
	Now    func() time.Time
}

// NewJobService shares locker with the ApplicationService so job edits and
// submissions against the same job are serialized.
func NewJobService(st store.Store, locker lock.Locker, log *slog.Logger) *JobService {
	return &JobService{Store: st, Locker: locker, Log: log, Now: time.Now}
}

func (s *JobService) CreateJob(ctx context.Context, caller auth.Caller, req *dtos.JobCreationRequest) (*models.Job, error) {
	if caller.UserType != models.UserRecruiter {
		return nil, errRecruitersOnly
	}
	if strings.TrimSpace(req.Title) == "" || req.Deadline == nil || len(cleanSkills(req.Skillsets)) == 0 {
		return nil, errMissingFields
	}

	job := &models.Job{
		UserID:        caller.UserID,
		Title:         strings.TrimSpace(req.Title),
		DateOfPosting: s.Now().UTC(),
		Deadline:      *req.Deadline,
		Skillsets:     cleanSkills(req.Skillsets),
		JobType:       strings.TrimSpace(req.JobType),
		Description:   req.Description,
		Location:      strings.TrimSpace(req.Location),
	}
	if req.MaxApplicants != nil {
		job.MaxApplicants = *req.MaxApplicants
	}
	if req.MaxPositions != nil {
		job.MaxPositions = *req.MaxPositions
	}
	if req.Duration != nil {
		job.Duration = *req.Duration
	}
	if req.Salary != nil {
		job.Salary = *req.Salary
	}
	if err := validateJob(job); err != nil {
		return nil, err
	}

	if err := s.Store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.Log.Info("job created", "job_id", job.ID, "recruiter_id", caller.UserID)
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.Store.FindJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errJobNotFound
	}
	return job, err
}

// UpdateJob merges the supplied fields into the caller's job and re-validates
// it. Capacity may not shrink below what applications already hold.
func (s *JobService) UpdateJob(ctx context.Context, caller auth.Caller, id string, req *dtos.JobUpdateRequest) (*models.Job, error) {
	if caller.UserType != models.UserRecruiter {
		return nil, errNoPermission
	}
	unlock, err := s.Locker.Lock(ctx, "job:"+id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var job *models.Job
	err = s.Store.WithinTx(ctx, func(tx store.Store) error {
		found, err := tx.FindOwnedJob(ctx, id, caller.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return errJobNotFound
		}
		if err != nil {
			return err
		}
		job = found
		mergeJobUpdate(job, req)

		if job.Title == "" || job.Deadline.IsZero() || len(job.Skillsets) == 0 {
			return errMissingFields
		}
		if err := validateJob(job); err != nil {
			return err
		}
		if err := checkHeldCapacity(ctx, tx, job); err != nil {
			return err
		}
		if err := tx.SaveJob(ctx, job); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errJobNotFound
			}
			return fmt.Errorf("update job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func mergeJobUpdate(job *models.Job, req *dtos.JobUpdateRequest) {
	if req.Title != nil {
		job.Title = strings.TrimSpace(*req.Title)
	}
	if req.MaxApplicants != nil {
		job.MaxApplicants = *req.MaxApplicants
	}
	if req.MaxPositions != nil {
		job.MaxPositions = *req.MaxPositions
	}
	if req.Deadline != nil {
		job.Deadline = *req.Deadline
	}
	if req.Skillsets != nil {
		job.Skillsets = cleanSkills(req.Skillsets)
	}
	if req.JobType != nil {
		job.JobType = strings.TrimSpace(*req.JobType)
	}
	if req.Duration != nil {
		job.Duration = *req.Duration
	}
	if req.Salary != nil {
		job.Salary = *req.Salary
	}
	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.Location != nil {
		job.Location = strings.TrimSpace(*req.Location)
	}
}

// checkHeldCapacity rejects limits below the job's current non-closed and
// accepted-class application counts.
func checkHeldCapacity(ctx context.Context, tx store.Store, job *models.Job) error {
	open, err := tx.CountApplications(ctx, store.ApplicationFilter{JobID: job.ID, StatusNotIn: models.ClosedStatuses})
	if err != nil {
		return fmt.Errorf("count open applications: %w", err)
	}
	if int64(job.MaxApplicants) < open {
		return apperr.Validation(fmt.Sprintf("maxApplicants cannot be lower than the %d applications already open", open))
	}
	accepted, err := tx.CountApplications(ctx, store.ApplicationFilter{JobID: job.ID, StatusIn: models.AcceptedStatuses})
	if err != nil {
		return fmt.Errorf("count accepted applications: %w", err)
	}
	if int64(job.MaxPositions) < accepted {
		return apperr.Validation(fmt.Sprintf("maxPositions cannot be lower than the %d applicants already accepted", accepted))
	}
	return nil
}

// DeleteJob removes a job and marks its active applications as deleted.
func (s *JobService) DeleteJob(ctx context.Context, caller auth.Caller, id string) error {
	if caller.UserType != models.UserRecruiter && caller.UserType != models.UserAdmin {
		return errNoPermission
	}
	unlock, err := s.Locker.Lock(ctx, "job:"+id)
	if err != nil {
		return err
	}
	defer unlock()

	return s.Store.WithinTx(ctx, func(tx store.Store) error {
		job, err := tx.FindJob(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Job not found")
		}
		if err != nil {
			return err
		}
		if caller.UserType == models.UserRecruiter && job.UserID != caller.UserID {
			return errNoPermission
		}
		if err := tx.DeleteJob(ctx, id); err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		n, err := tx.SetStatusWhere(ctx, store.ApplicationFilter{JobID: id, StatusIn: models.ActiveStatuses}, models.StatusDeleted)
		if err != nil {
			return fmt.Errorf("close applications of deleted job: %w", err)
		}
		s.Log.Info("job deleted", "job_id", id, "by", caller.UserID, "applications_closed", n)
		return nil
	})
}

// ListJobs returns jobs joined with their recruiter profile. An empty result
// is reported as NotFound.
func (s *JobService) ListJobs(ctx context.Context, params url.Values) ([]models.Job, error) {
	q, err := BuildJobQuery(params)
	if err != nil {
		return nil, err
	}
	jobs, err := s.Store.ListJobs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, errNoJobsFound
	}
	return jobs, nil
}

func validateJob(j *models.Job) error {
	switch {
	case j.MaxApplicants < 1:
		return apperr.Validation("maxApplicants must be a positive integer")
	case j.MaxPositions < 1:
		return apperr.Validation("maxPositions must be a positive integer")
	case j.MaxPositions > j.MaxApplicants:
		return apperr.Validation("maxPositions cannot exceed maxApplicants")
	case !j.Deadline.After(j.DateOfPosting):
		return apperr.Validation("deadline must be after the posting date")
	case j.Salary < 0:
		return apperr.Validation("salary cannot be negative")
	case j.Duration < 0:
		return apperr.Validation("duration cannot be negative")
	}
	return nil
}

func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}
