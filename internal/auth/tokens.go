package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/justsurfingit/job-board/internal/models"
)

// Caller is the identity resolved from a bearer token.
type Caller struct {
	UserID   string
	UserType models.UserType
}

type claims struct {
	Type models.UserType `json:"type"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(userID string, userType models.UserType) (string, error) {
	now := t.now()
	c := claims{
		Type: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) Parse(token string) (Caller, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Caller{}, err
	}
	if c.Subject == "" {
		return Caller{}, errors.New("token has no subject")
	}
	switch c.Type {
	case models.UserApplicant, models.UserRecruiter, models.UserAdmin:
	default:
		return Caller{}, fmt.Errorf("token has unknown user type %q", c.Type)
	}
	return Caller{UserID: c.Subject, UserType: c.Type}, nil
}
