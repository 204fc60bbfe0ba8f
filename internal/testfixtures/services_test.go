package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/gencare-scheduler/internal/application"
)

type capturingUserRepo struct {
	created application.UserCredentials
}

func (c *capturingUserRepo) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	c.created = creds
	return creds.User, nil
}

func (c *capturingUserRepo) GetUser(ctx context.Context, id string) (application.User, error) {
	return application.User{}, application.ErrNotFound
}

func (c *capturingUserRepo) GetUsers(ctx context.Context, ids []string) ([]application.User, error) {
	return nil, nil
}

func (c *capturingUserRepo) GetUserByEmail(ctx context.Context, email string) (application.User, error) {
	return application.User{}, application.ErrNotFound
}

func (c *capturingUserRepo) GetUserCredentials(ctx context.Context, id string) (application.UserCredentials, error) {
	return application.UserCredentials{}, application.ErrNotFound
}

func (c *capturingUserRepo) UpdateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	return creds.User, nil
}

func (c *capturingUserRepo) DeleteUser(ctx context.Context, id string) error {
	return nil
}

func (c *capturingUserRepo) ListUsers(ctx context.Context) ([]application.User, error) {
	return nil, nil
}

func TestServiceFactoryNewUserService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingUserRepo{}

	svc := factory.NewUserService(UserServiceDeps{Users: repo})
	admin := NewUserFixture(WithUserRole(application.RoleAdmin))
	input := NewConsultantFixture().Input("correct-horse")

	user, err := svc.CreateUser(context.Background(), application.CreateUserParams{Principal: admin.Principal(), Input: input})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if user.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", user.ID)
	}
	if repo.created.User.ID != user.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.User.ID)
	}
	if err := PlainVerifier(repo.created.PasswordHash, "correct-horse"); err != nil {
		t.Fatalf("expected plain hash, got %q", repo.created.PasswordHash)
	}
	if !user.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), user.CreatedAt)
	}
}

func TestPlainVerifierRejectsMismatch(t *testing.T) {
	hash, _ := PlainHasher("secret-one")
	if err := PlainVerifier(hash, "secret-two"); err != application.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

type fixtureCredentials struct {
	user UserFixture
}

func (c fixtureCredentials) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	if email != c.user.Email {
		return application.UserCredentials{}, application.ErrNotFound
	}
	return c.user.Credentials(), nil
}

func (c fixtureCredentials) GetUser(ctx context.Context, id string) (application.User, error) {
	if id != c.user.ID {
		return application.User{}, application.ErrNotFound
	}
	return c.user.Application(), nil
}

type fixtureSessions struct {
	byToken map[string]application.Session
}

func (s *fixtureSessions) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	s.byToken[session.Token] = session
	return session, nil
}

func (s *fixtureSessions) GetSession(ctx context.Context, token string) (application.Session, error) {
	session, ok := s.byToken[token]
	if !ok {
		return application.Session{}, application.ErrNotFound
	}
	return session, nil
}

func (s *fixtureSessions) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	s.byToken[session.Token] = session
	return session, nil
}

func (s *fixtureSessions) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	session, ok := s.byToken[token]
	if !ok {
		return application.Session{}, application.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.byToken[token] = session
	return session, nil
}

func (s *fixtureSessions) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return nil
}

func TestServiceFactoryNewAuthService(t *testing.T) {
	factory := NewServiceFactory()
	hash, _ := PlainHasher("correct-horse")
	consultant := NewConsultantFixture(WithUserPasswordHash(hash))
	sessions := &fixtureSessions{byToken: make(map[string]application.Session)}

	svc := factory.NewAuthService(AuthServiceDeps{
		Credentials: fixtureCredentials{user: consultant},
		Sessions:    sessions,
		Policy:      application.SessionPolicy{TTL: time.Hour},
	})

	result, err := svc.Authenticate(context.Background(), application.AuthenticateParams{Email: consultant.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if result.Session.ID != "id-1" || result.Session.Token != "token-1" {
		t.Fatalf("expected deterministic id and token, got %q / %q", result.Session.ID, result.Session.Token)
	}
	if !result.Session.ExpiresAt.Equal(factory.Clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", result.Session.ExpiresAt)
	}
	if result.Principal != consultant.Principal() {
		t.Fatalf("expected principal %+v, got %+v", consultant.Principal(), result.Principal)
	}

	principal, err := svc.ValidateSession(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if principal != consultant.Principal() {
		t.Fatalf("unexpected principal %+v", principal)
	}
}
