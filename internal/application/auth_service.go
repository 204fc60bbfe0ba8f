package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore resolves the accounts allowed to sign in.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionRepository persists issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// DefaultSessionTTL is used when SessionPolicy.TTL is unset.
const DefaultSessionTTL = 24 * time.Hour

// SessionPolicy governs session lifetime. A session validated while less than
// RenewWithin remains before it expires is extended to a full TTL from that
// moment. RenewWithin defaults to half the TTL.
type SessionPolicy struct {
	TTL         time.Duration
	RenewWithin time.Duration
}

func (p SessionPolicy) withDefaults() SessionPolicy {
	if p.TTL <= 0 {
		p.TTL = DefaultSessionTTL
	}
	if p.RenewWithin <= 0 || p.RenewWithin > p.TTL {
		p.RenewWithin = p.TTL / 2
	}
	return p
}

// AuthService signs users in and out and resolves session tokens to principals.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	policy         SessionPolicy
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService. A nil verifier falls back to VerifyPassword.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, idGenerator, tokenGenerator func() string, now func() time.Time, policy SessionPolicy) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, verify, idGenerator, tokenGenerator, now, policy, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, idGenerator, tokenGenerator func() string, now func() time.Time, policy SessionPolicy, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		verifyPassword: verify,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		policy:         policy.withDefaults(),
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) ready() error {
	switch {
	case s == nil:
		return fmt.Errorf("AuthService is nil")
	case s.credentials == nil:
		return fmt.Errorf("credential store not configured")
	case s.sessions == nil:
		return fmt.Errorf("session repository not configured")
	case s.idGenerator == nil || s.tokenGenerator == nil:
		return fmt.Errorf("session token generators not configured")
	}
	return nil
}

// Authenticate checks an email and password pair and opens a session for the account.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.Principal.UserID,
			"role", result.Principal.Role,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	if creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	// Disabled accounts are only reported to callers holding the password.
	if s.verifyPassword(creds.PasswordHash, params.Password) != nil {
		err = ErrInvalidCredentials
		return
	}
	if creds.Disabled || creds.User.Disabled {
		err = ErrAccountDisabled
		return
	}

	now := s.now()
	s.pruneExpired(ctx, logger, now)

	token := s.tokenGenerator()
	if token == "" {
		err = fmt.Errorf("session token generator returned an empty token")
		return
	}
	session := Session{
		ID:          s.idGenerator(),
		UserID:      creds.User.ID,
		Token:       token,
		Fingerprint: strings.TrimSpace(params.Fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.policy.TTL),
	}
	if session, err = s.sessions.CreateSession(ctx, session); err != nil {
		return
	}

	result = AuthenticateResult{User: creds.User, Principal: principalOf(creds.User), Session: session}
	return
}

// ValidateSession resolves token to the principal it was issued for, renewing
// the session when it is close to expiry.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if err = s.ready(); err != nil {
		return
	}

	token = strings.TrimSpace(token)
	renewed := false
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID, "renewed", renewed).DebugContext(ctx, "session validated")
	}()

	if token == "" {
		err = ErrUnauthorized
		return
	}

	var session Session
	if session, err = s.sessions.GetSession(ctx, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	now := s.now()
	if err = checkSessionActive(session, now); err != nil {
		return
	}

	var user User
	if user, err = s.credentials.GetUser(ctx, session.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if user.Disabled {
		err = ErrAccountDisabled
		return
	}

	renewed = s.renew(ctx, logger, session, now)
	principal = principalOf(user)
	return
}

// RevokeSession signs the session behind token out.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	token = strings.TrimSpace(token)
	var revoked Session
	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session revocation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", revoked.ID, "user_id", revoked.UserID).InfoContext(ctx, "session revoked")
	}()

	if token == "" {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	if revoked, err = s.sessions.RevokeSession(ctx, token, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	s.pruneExpired(ctx, logger, now)
	return
}

// renew pushes the expiry of a session nearing its end. A failed write only
// costs the extension, never the request.
func (s *AuthService) renew(ctx context.Context, logger *slog.Logger, session Session, now time.Time) bool {
	if session.ExpiresAt.IsZero() || session.ExpiresAt.Sub(now) > s.policy.RenewWithin {
		return false
	}
	session.ExpiresAt = now.Add(s.policy.TTL)
	session.UpdatedAt = now
	if _, err := s.sessions.UpdateSession(ctx, session); err != nil {
		logger.WarnContext(ctx, "session renewal failed", "session_id", session.ID, "error", err)
		return false
	}
	return true
}

// pruneExpired drops sessions past their expiry. Housekeeping failures are
// logged so they cannot block sign-in or sign-out.
func (s *AuthService) pruneExpired(ctx context.Context, logger *slog.Logger, now time.Time) {
	if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		logger.WarnContext(ctx, "expired session cleanup failed", "error", err)
	}
}

func checkSessionActive(session Session, now time.Time) error {
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		return ErrSessionExpired
	}
	return nil
}

func principalOf(user User) Principal {
	return Principal{UserID: user.ID, Role: user.Role, Name: user.DisplayName}
}
