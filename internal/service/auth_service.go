package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"art-store/internal/apperr"
	"art-store/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAdminNotConfigured is returned by Login when no admin password is set.
var ErrAdminNotConfigured = errors.New("admin password not configured")

// AuthService gates the admin area behind one shared password
type AuthService struct {
	password   string
	sessions   SessionStore
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(password string, sessions SessionStore, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		password:   password,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     util.Component("admin-auth"),
	}
}

// SessionTTL is the lifetime of an issued admin session
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// CheckPassword compares a submitted secret in constant time.
func (s *AuthService) CheckPassword(submitted string) bool {
	if s.password == "" {
		return false
	}
	submitted = strings.TrimSpace(submitted)
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(s.password)) == 1
}

// Login issues a session token for the correct password.
func (s *AuthService) Login(ctx context.Context, submitted string) (string, error) {
	if s.password == "" {
		util.AdminLoginsTotal.WithLabelValues("not_configured").Inc()
		return "", ErrAdminNotConfigured
	}
	if !s.CheckPassword(submitted) {
		util.AdminLoginsTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn("Admin login rejected")
		return "", apperr.Unauthorized("invalid password")
	}

	token := uuid.New().String()
	if err := s.sessions.CreateAdminSession(ctx, token, s.sessionTTL); err != nil {
		util.AdminLoginsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Failed to store admin session", zap.Error(err))
		return "", apperr.Upstream("session store unavailable", err)
	}

	util.AdminLoginsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Admin logged in")
	return token, nil
}

// Authenticate reports whether token names a live session. Store errors
// count as unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := s.sessions.AdminSessionExists(ctx, token)
	if err != nil {
		s.logger.Warn("Failed to look up admin session", zap.Error(err))
		return false
	}
	return ok
}

// Logout ends a session. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteAdminSession(ctx, token); err != nil {
		return apperr.Upstream("session store unavailable", err)
	}
	return nil
}
