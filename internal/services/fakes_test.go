package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/job-board/internal/models"
	"github.com/justsurfingit/job-board/internal/notify"
	"github.com/justsurfingit/job-board/internal/store"
)

// memStore is an in-memory store.Store. WithinTx does not roll back.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*models.User
	recruiters   map[string]*models.Recruiter
	applicants   map[string]*models.Applicant
	jobs         map[string]*models.Job
	applications map[string]*models.Application

	// Injected failures.
	profileErr error
	deleteErr  error
	deleted    []string
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]*models.User{},
		recruiters:   map[string]*models.Recruiter{},
		applicants:   map[string]*models.Applicant{},
		jobs:         map[string]*models.Job{},
		applications: map[string]*models.Application{},
	}
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) CreateRecruiter(_ context.Context, r *models.Recruiter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profileErr != nil {
		return m.profileErr
	}
	r.ID = uuid.NewString()
	m.recruiters[r.UserID] = r
	return nil
}

func (m *memStore) CreateApplicant(_ context.Context, a *models.Applicant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profileErr != nil {
		return m.profileErr
	}
	a.ID = uuid.NewString()
	m.applicants[a.UserID] = a
	return nil
}

func (m *memStore) CreateJob(_ context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *memStore) FindJob(_ context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) FindOwnedJob(ctx context.Context, id, ownerID string) (*models.Job, error) {
	j, err := m.FindJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	return j, nil
}

func (m *memStore) SaveJob(_ context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.jobs[j.ID]
	if !ok {
		return store.ErrNotFound
	}
	cp := *j
	cp.UserID, cp.DateOfPosting = old.UserID, old.DateOfPosting
	m.jobs[j.ID] = &cp
	return nil
}

func (m *memStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

// ListJobs ignores the query; BuildJobQuery and the gorm store are tested on their own.
func (m *memStore) ListJobs(_ context.Context, _ store.JobQuery) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Job
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (m *memStore) CreateApplication(_ context.Context, a *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Status.IsActive() {
		for _, other := range m.applications {
			if other.UserID == a.UserID && other.JobID == a.JobID && other.Status.IsActive() {
				return store.ErrDuplicate
			}
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	m.applications[a.ID] = &cp
	return nil
}

func (m *memStore) FindApplication(_ context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ExistsApplication(ctx context.Context, f store.ApplicationFilter) (bool, error) {
	n, err := m.CountApplications(ctx, f)
	return n > 0, err
}

func (m *memStore) CountApplications(_ context.Context, f store.ApplicationFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.applications {
		if f.Matches(a) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListApplications(_ context.Context, f store.ApplicationFilter) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Application
	for _, a := range m.applications {
		if f.Matches(a) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) UpdateApplicationStatus(_ context.Context, id string, from, to models.ApplicationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return store.ErrNotFound
	}
	if a.Status != from {
		return store.ErrStale
	}
	a.Status = to
	return nil
}

func (m *memStore) SetJoiningDate(_ context.Context, id string, joined time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return store.ErrNotFound
	}
	a.DateOfJoining = &joined
	return nil
}

func (m *memStore) SetStatusWhere(_ context.Context, f store.ApplicationFilter, status models.ApplicationStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.applications {
		if f.Matches(a) {
			a.Status = status
			n++
		}
	}
	return n, nil
}

// put stores an application directly, bypassing the eligibility engine.
func (m *memStore) put(userID, jobID string, status models.ApplicationStatus) *models.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &models.Application{ID: uuid.NewString(), UserID: userID, JobID: jobID, Status: status}
	if j, ok := m.jobs[jobID]; ok {
		a.RecruiterID = j.UserID
	}
	m.applications[a.ID] = a
	return a
}

func (m *memStore) status(id string) models.ApplicationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applications[id].Status
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
