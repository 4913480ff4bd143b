package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/room-booking/internal/application"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error
	tokens    []string
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	f.tokens = append(f.tokens, token)
	return f.principal, f.err
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name         string
			cookieToken  *http.Cookie
			headerToken  string
			lookupError  error
			expectedCode string
		}{
			{name: "missing credentials", expectedCode: "AUTH_REQUIRED"},
			{name: "non bearer header", headerToken: "Basic abc", expectedCode: "AUTH_REQUIRED"},
			{name: "invalid token", headerToken: "Bearer malformed", lookupError: application.ErrInvalidCredentials, expectedCode: "AUTH_INVALID_SESSION"},
			{name: "revoked session", cookieToken: &http.Cookie{Name: "session_token", Value: "revoked"}, lookupError: application.ErrSessionRevoked, expectedCode: "AUTH_SESSION_REVOKED"},
			{name: "expired session", headerToken: "Bearer expired", lookupError: fmt.Errorf("wrapped: %w", application.ErrSessionExpired), expectedCode: "AUTH_SESSION_EXPIRED"},
			{name: "disabled account", headerToken: "Bearer disabled", lookupError: application.ErrAccountDisabled, expectedCode: "AUTH_ACCOUNT_DISABLED"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookieToken != nil {
					req.AddCookie(tc.cookieToken)
				}
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}
				rec := httptest.NewRecorder()

				validator := &fakeSessionValidator{err: tc.lookupError}
				handler := RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(rec, req)

				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected 401, got %d", rec.Code)
				}
				if body := decodeError(t, rec); body.ErrorCode != tc.expectedCode {
					t.Fatalf("expected error code %s, got %s", tc.expectedCode, body.ErrorCode)
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		principal := application.Principal{UserID: "employee-123", IsAdmin: true}
		validator := &fakeSessionValidator{principal: principal}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "valid-token"})
		rec := httptest.NewRecorder()

		var captured application.Principal
		handler := RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured != principal {
			t.Fatalf("unexpected principal %+v", captured)
		}
		if len(validator.tokens) != 1 || validator.tokens[0] != "valid-token" {
			t.Fatalf("expected cookie token to be validated, got %v", validator.tokens)
		}
	})

	t.Run("reports repository failures as 500", func(t *testing.T) {
		t.Parallel()

		validator := &fakeSessionValidator{err: errors.New("database is locked")}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()

		RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler should not be called")
		})).ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rooms", nil))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one completion line per request, got %d: %s", len(lines), buf.String())
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &last); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if last["request_id"] != float64(2) || last["status"] != float64(http.StatusTeapot) || last["path"] != "/rooms" {
		t.Fatalf("unexpected log entry %v", last)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(1, 2)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	calls := 0
	handler := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:5000"); code != http.StatusNoContent {
		t.Fatalf("first request: expected 204, got %d", code)
	}
	if code := send("10.0.0.1:5001"); code != http.StatusNoContent {
		t.Fatalf("second request within burst: expected 204, got %d", code)
	}
	if code := send("10.0.0.1:5002"); code != http.StatusTooManyRequests {
		t.Fatalf("third request: expected 429, got %d", code)
	}
	if code := send("10.0.0.2:5000"); code != http.StatusNoContent {
		t.Fatalf("other client: expected 204, got %d", code)
	}

	now = now.Add(time.Second)
	if code := send("10.0.0.1:5003"); code != http.StatusNoContent {
		t.Fatalf("after refill: expected 204, got %d", code)
	}
	if calls != 4 {
		t.Fatalf("expected 4 calls to reach the handler, got %d", calls)
	}

	now = now.Add(10 * time.Minute)
	if removed := limiter.Prune(); removed != 2 {
		t.Fatalf("expected both idle clients to be pruned, got %d", removed)
	}
}

func TestClientAddress(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientAddress(req); got != "192.0.2.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientAddress(req); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}
}
