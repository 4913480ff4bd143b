package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSessionSecret = []byte("test-session-secret")

func plainVerifier(hashedPassword, password string) error {
	if hashedPassword != password {
		return ErrInvalidCredentials
	}
	return nil
}

func sequentialIDs(ids ...string) func() string {
	return func() string {
		if len(ids) == 0 {
			return "fallback"
		}
		id := ids[0]
		ids = ids[1:]
		return id
	}
}

func newTestAuthService(creds *credentialStoreStub, repo *sessionRepositoryStub, now *time.Time) *AuthService {
	return NewAuthService(creds, repo, plainVerifier, testSessionSecret, sequentialIDs("session-1", "session-2"), func() time.Time { return *now }, time.Hour)
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues signed sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{
			credentials: UserCredentials{
				User:         User{ID: "user-1", Email: "user@example.com"},
				PasswordHash: "secret",
			},
		}
		repo := newSessionRepositoryStub()
		svc := newTestAuthService(creds, repo, &now)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "User@example.com", Password: "secret", Fingerprint: " device "})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		if result.Session.ID != "session-1" {
			t.Fatalf("expected session id from generator, got %s", result.Session.ID)
		}
		if result.Session.Fingerprint != "device" {
			t.Fatalf("expected fingerprint to be trimmed, got %q", result.Session.Fingerprint)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour after login, got %v", result.Session.ExpiresAt)
		}
		if len(repo.deleteCalls) != 1 || !repo.deleteCalls[0].Equal(now) {
			t.Fatalf("expected DeleteExpiredSessions to be called with now, got %#v", repo.deleteCalls)
		}

		claims := &jwt.RegisteredClaims{}
		if _, err := jwt.ParseWithClaims(result.Session.Token, claims, func(*jwt.Token) (any, error) {
			return testSessionSecret, nil
		}, jwt.WithTimeFunc(func() time.Time { return now })); err != nil {
			t.Fatalf("expected token to verify, got %v", err)
		}
		if claims.ID != "session-1" || claims.Subject != "user-1" {
			t.Fatalf("expected jti and subject claims, got %+v", claims)
		}
	})

	t.Run("rejects disabled accounts", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user", Disabled: true}, PasswordHash: "secret"}}
		svc := newTestAuthService(creds, nil, &now)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("rejects invalid credentials with sentinel error", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user"}, PasswordHash: "expected"}}
		svc := newTestAuthService(creds, nil, &now)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects unknown emails without revealing them", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		svc := newTestAuthService(&credentialStoreStub{}, nil, &now)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "nobody@example.com", Password: "secret"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		expected := errors.New("boom")
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user"}, PasswordHash: "secret"}}
		repo := newSessionRepositoryStub()
		repo.createErr = expected
		svc := newTestAuthService(creds, repo, &now)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected error %v, got %v", expected, err)
		}
	})

	t.Run("requires a signing secret", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user"}, PasswordHash: "secret"}}
		svc := NewAuthService(creds, nil, plainVerifier, nil, sequentialIDs("session-1"), time.Now, time.Hour)

		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"}); err == nil {
			t.Fatalf("expected missing secret to fail")
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	login := func(t *testing.T, creds *credentialStoreStub, repo *sessionRepositoryStub, now *time.Time) (*AuthService, string) {
		t.Helper()
		svc := newTestAuthService(creds, repo, now)
		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		return svc, result.Session.Token
	}

	t.Run("returns the principal for live sessions", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1", IsAdmin: true}, PasswordHash: "secret"}}
		svc, token := login(t, creds, newSessionRepositoryStub(), &now)

		principal, err := svc.ValidateSession(context.Background(), token)
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != "user-1" || !principal.IsAdmin {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"}}
		svc, token := login(t, creds, newSessionRepositoryStub(), &now)

		now = now.Add(2 * time.Hour)
		if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"}}
		svc, token := login(t, creds, newSessionRepositoryStub(), &now)

		if err := svc.RevokeSession(context.Background(), token); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects tokens signed with another secret", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"}}
		repo := newSessionRepositoryStub()
		_, token := login(t, creds, repo, &now)

		other := NewAuthService(creds, repo, plainVerifier, []byte("other-secret"), nil, func() time.Time { return now }, time.Hour)
		if _, err := other.ValidateSession(context.Background(), token); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rejects sessions of disabled users", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"}}
		svc, token := login(t, creds, newSessionRepositoryStub(), &now)

		creds.credentials.User.Disabled = true
		if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}
	})

	t.Run("rejects blank and malformed tokens", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		svc := newTestAuthService(&credentialStoreStub{}, newSessionRepositoryStub(), &now)
		for _, token := range []string{"", "   ", "not-a-jwt"} {
			if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for %q, got %v", token, err)
			}
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	t.Run("records the revocation time", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"}}
		repo := newSessionRepositoryStub()
		svc := newTestAuthService(creds, repo, &now)
		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		now = now.Add(30 * time.Minute)
		if err := svc.RevokeSession(context.Background(), result.Session.Token); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		stored := repo.sessionsByID["session-1"]
		if stored.RevokedAt == nil || !stored.RevokedAt.Equal(now) {
			t.Fatalf("expected session revoked at %v, got %v", now, stored.RevokedAt)
		}
	})

	t.Run("maps unknown sessions to invalid credentials", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"}}
		issuer := newTestAuthService(creds, newSessionRepositoryStub(), &now)
		result, err := issuer.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		svc := newTestAuthService(creds, newSessionRepositoryStub(), &now)
		if err := svc.RevokeSession(context.Background(), result.Session.Token); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: "user-1"}, PasswordHash: "secret"}}
		repo := newSessionRepositoryStub()
		svc := newTestAuthService(creds, repo, &now)
		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "user@example.com", Password: "secret"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		expected := errors.New("boom")
		repo.revokeErr = expected
		if err := svc.RevokeSession(context.Background(), result.Session.Token); !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

// credentialStoreStub implements CredentialStore for tests.
type credentialStoreStub struct {
	credentials UserCredentials
	err         error
}

func (c *credentialStoreStub) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	if c.err != nil {
		return UserCredentials{}, c.err
	}
	if c.credentials.User.ID == "" {
		return UserCredentials{}, ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id string) (User, error) {
	if c.err != nil {
		return User{}, c.err
	}
	if c.credentials.User.ID == id {
		return c.credentials.User, nil
	}
	return User{}, ErrNotFound
}

// sessionRepositoryStub provides an in-memory implementation of SessionRepository for tests.
type sessionRepositoryStub struct {
	sessionsByID map[string]Session

	createErr error
	getErr    error
	revokeErr error
	deleteErr error

	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessionsByID: make(map[string]Session)}
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.sessionsByID[session.ID] = cloneSession(session)
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, id string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	session, ok := s.sessionsByID[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	session, ok := s.sessionsByID[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	revoked := revokedAt.UTC()
	session.RevokedAt = &revoked
	session.UpdatedAt = revoked
	s.sessionsByID[id] = session
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	cutoff := reference.UTC()
	s.deleteCalls = append(s.deleteCalls, cutoff)
	for id, session := range s.sessionsByID {
		if session.ExpiresAt.IsZero() {
			continue
		}
		if !session.ExpiresAt.After(cutoff) {
			delete(s.sessionsByID, id)
		}
	}
	return nil
}

func cloneSession(session Session) Session {
	clone := session
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC()
		clone.RevokedAt = &revoked
	}
	return clone
}
