package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/justsurfingit/job-board/internal/apperr"
	"github.com/justsurfingit/job-board/internal/auth"
	"github.com/justsurfingit/job-board/internal/lock"
	"github.com/justsurfingit/job-board/internal/models"
	"github.com/justsurfingit/job-board/internal/notify"
	"github.com/justsurfingit/job-board/internal/store"
)

// MaxActiveApplications caps the non-closed applications one applicant may hold.
const MaxActiveApplications = 10

// Reasons a submission is refused, in the order they are checked.
var (
	ErrAlreadyAccepted      = apperr.Eligibility("already_accepted", "You already have an accepted/finished job, so you cannot apply")
	ErrDuplicateApplication = apperr.Eligibility("duplicate_application", "You have already applied for this job")
	ErrJobNotFound          = &apperr.Error{Kind: apperr.KindNotFound, Reason: "job_not_found", Message: "Job does not exist"}
	ErrCapacityExceeded     = apperr.Eligibility("capacity_exceeded", "Application limit reached for this job")
	ErrTooManyActive        = apperr.Eligibility("too_many_active_applications", fmt.Sprintf("You already have %d active applications", MaxActiveApplications))
)

var (
	errApplicationNotFound = apperr.NotFound("Application does not exist")
	errApplicantsOnly      = apperr.Authorization("You don't have permissions to apply")
	errPositionsFilled     = apperr.Validation("All positions for this job are already filled")
	errStaleStatus         = apperr.Validation("Application status changed, reload and retry")
)

type ApplicationService struct {
	Store    store.Store
	Locker   lock.Locker
	Notifier notify.Sender
	Log      *slog.Logger
	Now      func() time.Time
}

func NewApplicationService(st store.Store, locker lock.Locker, notifier notify.Sender, log *slog.Logger) *ApplicationService {
	return &ApplicationService{Store: st, Locker: locker, Notifier: notifier, Log: log, Now: time.Now}
}

func lockKeys(jobID, applicantID string) []string {
	return []string{"job:" + jobID, "applicant:" + applicantID}
}

// Submit creates an application in status applied if the applicant is eligible.
func (s *ApplicationService) Submit(ctx context.Context, caller auth.Caller, jobID, sop string) (*models.Application, error) {
	if caller.UserType != models.UserApplicant {
		return nil, errApplicantsOnly
	}

	unlock, err := s.Locker.Lock(ctx, lockKeys(jobID, caller.UserID)...)
	if err != nil {
		return nil, fmt.Errorf("acquire application lock: %w", err)
	}
	defer unlock()

	var (
		app *models.Application
		job *models.Job
	)
	err = s.Store.WithinTx(ctx, func(tx store.Store) error {
		job, err = checkEligibility(ctx, tx, caller.UserID, jobID)
		if err != nil {
			return err
		}
		app = &models.Application{
			UserID:            caller.UserID,
			RecruiterID:       job.UserID,
			JobID:             job.ID,
			Status:            models.StatusApplied,
			SOP:               strings.TrimSpace(sop),
			DateOfApplication: s.Now().UTC(),
		}
		if err := tx.CreateApplication(ctx, app); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrDuplicateApplication
			}
			return fmt.Errorf("create application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("application submitted", "application_id", app.ID, "job_id", jobID, "applicant_id", caller.UserID)
	s.notifyUser(ctx, job.UserID, notify.ApplicationReceived("", job.Title))
	return app, nil
}

// checkEligibility runs the five submission checks in order and returns the
// job on success. It only reads.
func checkEligibility(ctx context.Context, st store.Store, applicantID, jobID string) (*models.Job, error) {
	accepted, err := st.ExistsApplication(ctx, store.ApplicationFilter{
		UserID:   applicantID,
		StatusIn: models.AcceptedStatuses,
	})
	if err != nil {
		return nil, err
	}
	if accepted {
		return nil, ErrAlreadyAccepted
	}

	duplicate, err := st.ExistsApplication(ctx, store.ApplicationFilter{
		UserID:   applicantID,
		JobID:    jobID,
		StatusIn: models.ActiveStatuses,
	})
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, ErrDuplicateApplication
	}

	job, err := st.FindJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	forJob, err := st.CountApplications(ctx, store.ApplicationFilter{
		JobID:       jobID,
		StatusNotIn: models.ClosedStatuses,
	})
	if err != nil {
		return nil, err
	}
	if forJob >= int64(job.MaxApplicants) {
		return nil, ErrCapacityExceeded
	}

	mine, err := st.CountApplications(ctx, store.ApplicationFilter{
		UserID:      applicantID,
		StatusNotIn: models.ClosedStatuses,
	})
	if err != nil {
		return nil, err
	}
	if mine >= MaxActiveApplications {
		return nil, ErrTooManyActive
	}
	return job, nil
}

// HasAccepted reports whether the applicant already holds an accepted or finished application.
func (s *ApplicationService) HasAccepted(ctx context.Context, caller auth.Caller) (bool, error) {
	if caller.UserType != models.UserApplicant {
		return false, errNoPermission
	}
	return s.Store.ExistsApplication(ctx, store.ApplicationFilter{
		UserID:   caller.UserID,
		StatusIn: models.AcceptedStatuses,
	})
}

// ListForJob lists applications to one of the recruiter's jobs, optionally by status.
func (s *ApplicationService) ListForJob(ctx context.Context, caller auth.Caller, jobID, status string) ([]models.Application, error) {
	if caller.UserType != models.UserRecruiter {
		return nil, errNoPermission
	}
	f := store.ApplicationFilter{JobID: jobID, RecruiterID: caller.UserID}
	if status = strings.TrimSpace(status); status != "" {
		st := models.ApplicationStatus(strings.ToLower(status))
		if !st.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("Unknown status %q", status))
		}
		f.StatusIn = []models.ApplicationStatus{st}
	}
	return s.Store.ListApplications(ctx, f)
}

// ListMine lists the applications an applicant sent or a recruiter received.
func (s *ApplicationService) ListMine(ctx context.Context, caller auth.Caller) ([]models.Application, error) {
	var f store.ApplicationFilter
	switch caller.UserType {
	case models.UserApplicant:
		f.UserID = caller.UserID
	case models.UserRecruiter:
		f.RecruiterID = caller.UserID
	case models.UserAdmin:
	default:
		return nil, errNoPermission
	}
	return s.Store.ListApplications(ctx, f)
}

// Targets each role may move an application to.
var (
	recruiterTargets = []models.ApplicationStatus{models.StatusShortlisted, models.StatusAccepted, models.StatusRejected, models.StatusFinished}
	applicantTargets = []models.ApplicationStatus{models.StatusCancelled}
)

// UpdateStatus moves an application along the state machine on behalf of its
// recruiter (review outcomes) or its applicant (cancellation).
func (s *ApplicationService) UpdateStatus(ctx context.Context, caller auth.Caller, id, status string) (*models.Application, error) {
	next := models.ApplicationStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("Unknown status %q", status))
	}

	app, err := s.Store.FindApplication(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errApplicationNotFound
	}
	if err != nil {
		return nil, err
	}

	switch caller.UserType {
	case models.UserRecruiter:
		if app.RecruiterID != caller.UserID || !slices.Contains(recruiterTargets, next) {
			return nil, errNoPermission
		}
	case models.UserApplicant:
		if app.UserID != caller.UserID || !slices.Contains(applicantTargets, next) {
			return nil, errNoPermission
		}
	default:
		return nil, errNoPermission
	}

	unlock, err := s.Locker.Lock(ctx, lockKeys(app.JobID, app.UserID)...)
	if err != nil {
		return nil, fmt.Errorf("acquire application lock: %w", err)
	}
	defer unlock()

	var job *models.Job
	err = s.Store.WithinTx(ctx, func(tx store.Store) error {
		current, err := tx.FindApplication(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == next {
			app = current
			return nil
		}
		if !models.CanTransition(current.Status, next) {
			return apperr.Validation(fmt.Sprintf("Cannot change status from %s to %s", current.Status, next))
		}
		job, err = tx.FindJob(ctx, current.JobID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if next == models.StatusAccepted {
			if err := s.accept(ctx, tx, current, job); err != nil {
				return err
			}
		} else if err := tx.UpdateApplicationStatus(ctx, id, current.Status, next); err != nil {
			return err
		}
		app, err = tx.FindApplication(ctx, id)
		return err
	})
	switch {
	case errors.Is(err, store.ErrStale):
		return nil, errStaleStatus
	case errors.Is(err, store.ErrNotFound):
		return nil, errApplicationNotFound
	case err != nil:
		return nil, err
	}

	s.Log.Info("application status changed", "application_id", id, "status", app.Status, "by", caller.UserID)
	if job != nil && caller.UserType == models.UserRecruiter {
		s.notifyUser(ctx, app.UserID, notify.StatusChanged("", job.Title, string(app.Status)))
	}
	return app, nil
}

// accept enforces the job's position count, stamps the joining date and
// cancels the applicant's other open applications.
func (s *ApplicationService) accept(ctx context.Context, tx store.Store, app *models.Application, job *models.Job) error {
	if job == nil {
		return ErrJobNotFound
	}
	filled, err := tx.CountApplications(ctx, store.ApplicationFilter{JobID: job.ID, StatusIn: models.AcceptedStatuses})
	if err != nil {
		return err
	}
	if filled >= int64(job.MaxPositions) {
		return errPositionsFilled
	}
	if err := tx.UpdateApplicationStatus(ctx, app.ID, app.Status, models.StatusAccepted); err != nil {
		return err
	}
	if err := tx.SetJoiningDate(ctx, app.ID, s.Now().UTC()); err != nil {
		return err
	}
	cancelled, err := tx.SetStatusWhere(ctx, store.ApplicationFilter{
		UserID:    app.UserID,
		ExcludeID: app.ID,
		StatusIn:  models.ActiveStatuses,
	}, models.StatusCancelled)
	if err != nil {
		return err
	}
	if cancelled > 0 {
		s.Log.Info("cancelled other applications after acceptance", "applicant_id", app.UserID, "count", cancelled)
	}
	return nil
}

// notifyUser fills in the recipient address and sends msg. Failures are only logged.
func (s *ApplicationService) notifyUser(ctx context.Context, userID string, msg notify.Message) {
	if s.Notifier == nil {
		return
	}
	user, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		s.Log.Warn("notification skipped, user lookup failed", "user_id", userID, "error", err)
		return
	}
	msg.To = user.Email
	if err := s.Notifier.Send(ctx, msg); err != nil {
		s.Log.Warn("notification failed", "user_id", userID, "error", err)
	}
}
