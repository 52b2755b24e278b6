package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/justsurfingit/job-board/internal/apperr"
	"github.com/justsurfingit/job-board/internal/auth"
	"github.com/justsurfingit/job-board/internal/lock"
	"github.com/justsurfingit/job-board/internal/logging"
	"github.com/justsurfingit/job-board/internal/models"
	"github.com/justsurfingit/job-board/internal/store"
)

type appFixture struct {
	store     *memStore
	notifier  *recordingSender
	svc       *ApplicationService
	recruiter auth.Caller
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()
	st := newMemStore()
	n := &recordingSender{}
	recruiter := auth.Caller{UserID: "recruiter-1", UserType: models.UserRecruiter}
	st.users[recruiter.UserID] = &models.User{ID: recruiter.UserID, Email: "hr@example.com", Type: models.UserRecruiter}
	return &appFixture{
		store:     st,
		notifier:  n,
		svc:       NewApplicationService(st, lock.NewKeyedMutex(), n, logging.Discard()),
		recruiter: recruiter,
	}
}

func (f *appFixture) job(t *testing.T, maxApplicants, maxPositions int) *models.Job {
	t.Helper()
	j := &models.Job{
		UserID:        f.recruiter.UserID,
		Title:         "Backend Engineer",
		MaxApplicants: maxApplicants,
		MaxPositions:  maxPositions,
		DateOfPosting: time.Now(),
		Deadline:      time.Now().Add(24 * time.Hour),
		Skillsets:     []string{"go"},
	}
	if err := f.store.CreateJob(context.Background(), j); err != nil {
		t.Fatal(err)
	}
	return j
}

func applicant(id string) auth.Caller {
	return auth.Caller{UserID: id, UserType: models.UserApplicant}
}

func TestSubmit_CreatesAppliedApplication(t *testing.T) {
	f := newAppFixture(t)
	job := f.job(t, 3, 1)

	app, err := f.svc.Submit(context.Background(), applicant("a1"), job.ID, "  hire me  ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if app.Status != models.StatusApplied || app.RecruiterID != f.recruiter.UserID || app.SOP != "hire me" {
		t.Fatalf("unexpected application %+v", app)
	}
	if f.notifier.count() != 1 || f.notifier.sent[0].To != "hr@example.com" {
		t.Fatalf("expected recruiter notification, got %+v", f.notifier.sent)
	}
}

func TestSubmit_RejectsNonApplicants(t *testing.T) {
	f := newAppFixture(t)
	job := f.job(t, 3, 1)

	_, err := f.svc.Submit(context.Background(), f.recruiter, job.ID, "")
	if apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestSubmit_ChecksRunInOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted dominates everything", func(t *testing.T) {
		f := newAppFixture(t)
		job := f.job(t, 1, 1)
		other := f.job(t, 1, 1)
		f.store.put("a1", other.ID, models.StatusAccepted)
		f.store.put("a1", job.ID, models.StatusApplied)

		_, err := f.svc.Submit(ctx, applicant("a1"), job.ID, "")
		if !errors.Is(err, ErrAlreadyAccepted) {
			t.Fatalf("expected ErrAlreadyAccepted, got %v", err)
		}
		_, err = f.svc.Submit(ctx, applicant("a1"), "missing", "")
		if !errors.Is(err, ErrAlreadyAccepted) {
			t.Fatalf("expected ErrAlreadyAccepted for a missing job, got %v", err)
		}
	})

	t.Run("finished counts as accepted", func(t *testing.T) {
		f := newAppFixture(t)
		job := f.job(t, 1, 1)
		f.store.put("a1", "old-job", models.StatusFinished)

		_, err := f.svc.Submit(ctx, applicant("a1"), job.ID, "")
		if !errors.Is(err, ErrAlreadyAccepted) {
			t.Fatalf("expected ErrAlreadyAccepted, got %v", err)
		}
	})

	t.Run("duplicate before capacity", func(t *testing.T) {
		f := newAppFixture(t)
		job := f.job(t, 1, 1)
		f.store.put("a1", job.ID, models.StatusShortlisted)

		_, err := f.svc.Submit(ctx, applicant("a1"), job.ID, "")
		if !errors.Is(err, ErrDuplicateApplication) {
			t.Fatalf("expected ErrDuplicateApplication, got %v", err)
		}
	})

	t.Run("missing job", func(t *testing.T) {
		f := newAppFixture(t)
		_, err := f.svc.Submit(ctx, applicant("a1"), "nope", "")
		if !errors.Is(err, ErrJobNotFound) {
			t.Fatalf("expected ErrJobNotFound, got %v", err)
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			t.Fatalf("expected a not found kind, got %v", apperr.KindOf(err))
		}
	})

	t.Run("capacity before applicant limit", func(t *testing.T) {
		f := newAppFixture(t)
		job := f.job(t, 1, 1)
		f.store.put("someone-else", job.ID, models.StatusApplied)
		for i := 0; i < MaxActiveApplications; i++ {
			f.store.put("a1", fmt.Sprintf("job-%d", i), models.StatusApplied)
		}

		_, err := f.svc.Submit(ctx, applicant("a1"), job.ID, "")
		if !errors.Is(err, ErrCapacityExceeded) {
			t.Fatalf("expected ErrCapacityExceeded, got %v", err)
		}
	})
}

func TestSubmit_CapacityCountsNonClosedApplications(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	job := f.job(t, 2, 1)

	f.store.put("x", job.ID, models.StatusRejected)
	f.store.put("y", job.ID, models.StatusCancelled)
	f.store.put("z", job.ID, models.StatusDeleted)

	if _, err := f.svc.Submit(ctx, applicant("a1"), job.ID, ""); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := f.svc.Submit(ctx, applicant("a2"), job.ID, ""); err != nil {
		t.Fatalf("second: %v", err)
	}
	if _, err := f.svc.Submit(ctx, applicant("a3"), job.ID, ""); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestSubmit_ActiveApplicationLimit(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	for i := 0; i < MaxActiveApplications-1; i++ {
		f.store.put("a1", fmt.Sprintf("job-%d", i), models.StatusApplied)
	}
	f.store.put("a1", "closed-job", models.StatusRejected)

	tenth := f.job(t, 5, 1)
	if _, err := f.svc.Submit(ctx, applicant("a1"), tenth.ID, ""); err != nil {
		t.Fatalf("tenth active application should be allowed: %v", err)
	}

	eleventh := f.job(t, 5, 1)
	_, err := f.svc.Submit(ctx, applicant("a1"), eleventh.ID, "")
	if !errors.Is(err, ErrTooManyActive) {
		t.Fatalf("expected ErrTooManyActive, got %v", err)
	}
	e, _ := apperr.As(err)
	if e.Reason != "too_many_active_applications" {
		t.Fatalf("unexpected reason %q", e.Reason)
	}
}

func TestSubmit_RejectionFreesCapacity(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	job := f.job(t, 1, 1)

	x, err := f.svc.Submit(ctx, applicant("x"), job.ID, "")
	if err != nil {
		t.Fatalf("x: %v", err)
	}
	if _, err := f.svc.Submit(ctx, applicant("y"), job.ID, ""); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.recruiter, x.ID, "rejected"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Submit(ctx, applicant("y"), job.ID, ""); err != nil {
		t.Fatalf("y should now fit: %v", err)
	}
}

func TestSubmit_ConcurrentSubmissionsRespectCapacity(t *testing.T) {
	f := newAppFixture(t)
	job := f.job(t, 5, 1)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Submit(context.Background(), applicant(fmt.Sprintf("a%d", i)), job.ID, "")
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, ErrCapacityExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted != 5 {
		t.Fatalf("expected exactly 5 submissions, got %d", accepted)
	}
}

func TestSubmit_ConcurrentDuplicateSubmissions(t *testing.T) {
	f := newAppFixture(t)
	job := f.job(t, 50, 1)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Submit(context.Background(), applicant("a1"), job.ID, "")
		}()
	}
	wg.Wait()

	n, _ := f.store.CountApplications(context.Background(), store.ApplicationFilter{UserID: "a1", JobID: job.ID})
	if n != 1 {
		t.Fatalf("expected one application, got %d", n)
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	job := f.job(t, 5, 2)
	f.store.users["a1"] = &models.User{ID: "a1", Email: "a1@example.com", Type: models.UserApplicant}
	app := f.store.put("a1", job.ID, models.StatusApplied)

	if _, err := f.svc.UpdateStatus(ctx, f.recruiter, app.ID, "accepted"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("applied -> accepted must be refused, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.recruiter, app.ID, "bogus"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("unknown status must be refused, got %v", err)
	}
	got, err := f.svc.UpdateStatus(ctx, f.recruiter, app.ID, "Shortlisted")
	if err != nil || got.Status != models.StatusShortlisted {
		t.Fatalf("shortlist: %v %+v", err, got)
	}
	// Same status again is a no-op.
	if _, err := f.svc.UpdateStatus(ctx, f.recruiter, app.ID, "shortlisted"); err != nil {
		t.Fatalf("repeat shortlist: %v", err)
	}
	got, err = f.svc.UpdateStatus(ctx, f.recruiter, app.ID, "accepted")
	if err != nil || got.Status != models.StatusAccepted || got.DateOfJoining == nil {
		t.Fatalf("accept: %v %+v", err, got)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.recruiter, app.ID, "rejected"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("accepted -> rejected must be refused, got %v", err)
	}
	got, err = f.svc.UpdateStatus(ctx, f.recruiter, app.ID, "finished")
	if err != nil || got.Status != models.StatusFinished {
		t.Fatalf("finish: %v %+v", err, got)
	}
	if f.notifier.count() != 3 {
		t.Fatalf("expected 3 applicant notifications, got %d", f.notifier.count())
	}
}

func TestUpdateStatus_Permissions(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	job := f.job(t, 5, 1)
	app := f.store.put("a1", job.ID, models.StatusApplied)

	stranger := auth.Caller{UserID: "recruiter-2", UserType: models.UserRecruiter}
	if _, err := f.svc.UpdateStatus(ctx, stranger, app.ID, "shortlisted"); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("foreign recruiter must be refused, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, applicant("a1"), app.ID, "shortlisted"); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("applicant cannot shortlist, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, applicant("a2"), app.ID, "cancelled"); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("other applicant cannot cancel, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.recruiter, "missing", "shortlisted"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	got, err := f.svc.UpdateStatus(ctx, applicant("a1"), app.ID, "cancelled")
	if err != nil || got.Status != models.StatusCancelled {
		t.Fatalf("cancel: %v %+v", err, got)
	}
}

func TestAccept_CancelsOtherActiveApplications(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	job := f.job(t, 5, 1)
	target := f.store.put("a1", job.ID, models.StatusShortlisted)
	otherActive := f.store.put("a1", "job-b", models.StatusApplied)
	otherShort := f.store.put("a1", "job-c", models.StatusShortlisted)
	otherClosed := f.store.put("a1", "job-d", models.StatusRejected)
	someoneElse := f.store.put("a2", "job-b", models.StatusApplied)

	if _, err := f.svc.UpdateStatus(ctx, f.recruiter, target.ID, "accepted"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for id, want := range map[string]models.ApplicationStatus{
		target.ID:      models.StatusAccepted,
		otherActive.ID: models.StatusCancelled,
		otherShort.ID:  models.StatusCancelled,
		otherClosed.ID: models.StatusRejected,
		someoneElse.ID: models.StatusApplied,
	} {
		if got := f.store.status(id); got != want {
			t.Errorf("application %s: want %s, got %s", id, want, got)
		}
	}
}

func TestAccept_EnforcesMaxPositions(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	job := f.job(t, 5, 1)
	first := f.store.put("a1", job.ID, models.StatusShortlisted)
	second := f.store.put("a2", job.ID, models.StatusShortlisted)

	if _, err := f.svc.UpdateStatus(ctx, f.recruiter, first.ID, "accepted"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err := f.svc.UpdateStatus(ctx, f.recruiter, second.ID, "accepted")
	if !errors.Is(err, errPositionsFilled) {
		t.Fatalf("expected positions filled, got %v", err)
	}
	if f.store.status(second.ID) != models.StatusShortlisted {
		t.Fatalf("refused accept must leave the application untouched")
	}
}

func TestHasAccepted(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	f.store.put("a1", "j", models.StatusFinished)

	ok, err := f.svc.HasAccepted(ctx, applicant("a1"))
	if err != nil || !ok {
		t.Fatalf("expected true, got %v %v", ok, err)
	}
	ok, err = f.svc.HasAccepted(ctx, applicant("a2"))
	if err != nil || ok {
		t.Fatalf("expected false, got %v %v", ok, err)
	}
	if _, err := f.svc.HasAccepted(ctx, f.recruiter); apperr.KindOf(err) != apperr.KindAuthorization {
		t.Fatalf("recruiters cannot ask, got %v", err)
	}
}

func TestListForJobAndMine(t *testing.T) {
	ctx := context.Background()
	f := newAppFixture(t)
	job := f.job(t, 5, 1)
	f.store.put("a1", job.ID, models.StatusApplied)
	f.store.put("a2", job.ID, models.StatusRejected)

	all, err := f.svc.ListForJob(ctx, f.recruiter, job.ID, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2, got %d (%v)", len(all), err)
	}
	rejected, err := f.svc.ListForJob(ctx, f.recruiter, job.ID, "rejected")
	if err != nil || len(rejected) != 1 || rejected[0].UserID != "a2" {
		t.Fatalf("unexpected filtered list %+v (%v)", rejected, err)
	}
	if _, err := f.svc.ListForJob(ctx, f.recruiter, job.ID, "weird"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	mine, err := f.svc.ListMine(ctx, applicant("a1"))
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected 1, got %d (%v)", len(mine), err)
	}
	received, err := f.svc.ListMine(ctx, f.recruiter)
	if err != nil || len(received) != 2 {
		t.Fatalf("expected 2, got %d (%v)", len(received), err)
	}
}
