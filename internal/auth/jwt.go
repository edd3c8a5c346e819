// Package auth issues and validates the bearer tokens that carry tool
// authorization scopes into agent runs.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/haasonsaas/conductor/internal/agent"
)

var (
	ErrAuthDisabled = errors.New("auth disabled")
	ErrInvalidToken = errors.New("invalid token")
)

// Service handles token signing and verification.
type Service struct {
	secret []byte
	expiry time.Duration
}

// NewService builds a JWT helper with the given secret and expiry. An empty
// secret disables auth; every operation then returns ErrAuthDisabled.
func NewService(secret string, expiry time.Duration) *Service {
	return &Service{secret: []byte(strings.TrimSpace(secret)), expiry: expiry}
}

// Enabled reports whether token checks should run.
func (s *Service) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// Generate issues a signed token for the given user and scopes.
func (s *Service) Generate(userID string, scopes []string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id required")
	}

	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(userID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expiry)),
		},
	}
	if s.expiry <= 0 {
		claims.ExpiresAt = nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a token and returns the authorization
// context embedded in it.
func (s *Service) Validate(token string) (*agent.ToolAuthContext, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return &agent.ToolAuthContext{
		UserID: claims.Subject,
		Scopes: claims.Scopes,
	}, nil
}
