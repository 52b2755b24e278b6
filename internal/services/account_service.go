package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/justsurfingit/job-board/internal/apperr"
	"github.com/justsurfingit/job-board/internal/auth"
	"github.com/justsurfingit/job-board/internal/dtos"
	"github.com/justsurfingit/job-board/internal/models"
	"github.com/justsurfingit/job-board/internal/services/schemas"
	"github.com/justsurfingit/job-board/internal/store"
)

const minPasswordLength = 6

type AccountService struct {
	Users  store.Users
	Tokens *auth.TokenIssuer
	Log    *slog.Logger
}

func NewAccountService(users store.Users, tokens *auth.TokenIssuer, log *slog.Logger) *AccountService {
	return &AccountService{Users: users, Tokens: tokens, Log: log}
}

// provisioning tracks the user+profile saga. The profile step has no
// transaction around it, so a failure after the user insert is undone by
// compensate.
type provisioning struct {
	user        *models.User
	created     bool
	compensated bool
}

func (p *provisioning) compensate(ctx context.Context, users store.Users, log *slog.Logger) {
	if !p.created || p.compensated {
		return
	}
	// The request may already be cancelled; the cleanup must still run.
	ctx = context.WithoutCancel(ctx)
	if err := users.DeleteUser(ctx, p.user.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to delete user after profile failure", "user_id", p.user.ID, "email", p.user.Email, "error", err)
		return
	}
	p.compensated = true
	log.Warn("deleted orphaned user after profile failure", "user_id", p.user.ID)
}

func (s *AccountService) SignUp(ctx context.Context, req *dtos.SignUpRequest) (*dtos.SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, apperr.Validation("Invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperr.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	userType := models.UserType(strings.ToLower(strings.TrimSpace(req.Type)))
	if userType != models.UserApplicant && userType != models.UserRecruiter {
		return nil, apperr.Validation("type must be applicant or recruiter")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &provisioning{user: &models.User{Email: email, PasswordHash: hash, Type: userType}}
	if err := s.Users.CreateUser(ctx, p.user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Validation("Email is already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	p.created = true

	if err := s.createProfile(ctx, p.user, req); err != nil {
		p.compensate(ctx, s.Users, s.Log)
		return nil, err
	}

	token, err := s.Tokens.Issue(p.user.ID, p.user.Type)
	if err != nil {
		return nil, err
	}
	return &dtos.SessionResponse{Token: token, Type: p.user.Type, ID: p.user.ID}, nil
}

func (s *AccountService) createProfile(ctx context.Context, user *models.User, req *dtos.SignUpRequest) error {
	switch user.Type {
	case models.UserRecruiter:
		profile := &models.Recruiter{
			UserID:        user.ID,
			Name:          strings.TrimSpace(req.Name),
			ContactNumber: strings.TrimSpace(req.ContactNumber),
			Bio:           req.Bio,
			Profile:       req.Profile,
		}
		if err := schemas.ValidateRecruiter(profile); err != nil {
			return profileError(err)
		}
		if err := s.Users.CreateRecruiter(ctx, profile); err != nil {
			return fmt.Errorf("create recruiter profile: %w", err)
		}
	default:
		rating := -1.0
		if req.Rating != nil {
			rating = *req.Rating
		}
		profile := &models.Applicant{
			UserID:    user.ID,
			Name:      strings.TrimSpace(req.Name),
			Education: req.Education,
			Skills:    req.Skills,
			Rating:    rating,
			Resume:    req.Resume,
			Profile:   req.Profile,
		}
		if err := schemas.ValidateApplicant(profile); err != nil {
			return profileError(err)
		}
		if err := s.Users.CreateApplicant(ctx, profile); err != nil {
			return fmt.Errorf("create applicant profile: %w", err)
		}
	}
	return nil
}

func profileError(err error) error {
	var verr *schemas.ValidationError
	if errors.As(err, &verr) {
		return apperr.Validation(verr.Error())
	}
	return err
}

func (s *AccountService) Login(ctx context.Context, req *dtos.LoginRequest) (*dtos.SessionResponse, error) {
	user, err := s.Users.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Authorization("Invalid email or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperr.Authorization("Invalid email or password")
	}
	token, err := s.Tokens.Issue(user.ID, user.Type)
	if err != nil {
		return nil, err
	}
	return &dtos.SessionResponse{Token: token, Type: user.Type, ID: user.ID}, nil
}

// EnsureAdmin creates the configured admin account once. Empty credentials skip it.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.Users.FindUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.Users.CreateUser(ctx, &models.User{Email: email, PasswordHash: hash, Type: models.UserAdmin}); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.Log.Info("admin account created", "email", email)
	return nil
}
