package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
)

type fakeLogin struct {
	calls int
	token string
	err   error
}

func (f *fakeLogin) Login(ctx context.Context, email, password string) (string, error) {
	f.calls++
	return f.token, f.err
}

func TestSession_EnsureValidToken_LogsInWhenEmpty(t *testing.T) {
	t.Parallel()

	fl := &fakeLogin{token: "tok-1"}
	s := NewSession(fl, "ops@example.com", "pw", "")

	tok, err := s.EnsureValidToken(context.Background())
	if err != nil {
		t.Fatalf("EnsureValidToken() error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("expected token tok-1, got %q", tok)
	}
	if fl.calls != 1 {
		t.Fatalf("expected 1 login call, got %d", fl.calls)
	}
}

func TestSession_EnsureValidToken_NoopBeforeExpiry(t *testing.T) {
	t.Parallel()

	fl := &fakeLogin{token: "tok-1"}
	s := NewSession(fl, "ops@example.com", "pw", "")

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatalf("first EnsureValidToken() error: %v", err)
	}

	// 59 minutes later the token is still valid: no network call.
	now = now.Add(59 * time.Minute)
	tok, err := s.EnsureValidToken(context.Background())
	if err != nil {
		t.Fatalf("second EnsureValidToken() error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("expected cached token, got %q", tok)
	}
	if fl.calls != 1 {
		t.Fatalf("expected no extra login calls, got %d", fl.calls)
	}
}

func TestSession_EnsureValidToken_ReloginsExactlyOnceAfterExpiry(t *testing.T) {
	t.Parallel()

	fl := &fakeLogin{token: "tok-1"}
	s := NewSession(fl, "ops@example.com", "pw", "")

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatalf("first EnsureValidToken() error: %v", err)
	}

	// Expiry is strict now >= expiresAt: exactly one hour later the
	// token is already expired.
	now = now.Add(time.Hour)
	fl.token = "tok-2"

	tok, err := s.EnsureValidToken(context.Background())
	if err != nil {
		t.Fatalf("EnsureValidToken() after expiry error: %v", err)
	}
	if tok != "tok-2" {
		t.Fatalf("expected refreshed token tok-2, got %q", tok)
	}
	if fl.calls != 2 {
		t.Fatalf("expected exactly 2 login calls, got %d", fl.calls)
	}
}

func TestSession_EnsureValidToken_MissingCredentials(t *testing.T) {
	t.Parallel()

	fl := &fakeLogin{token: "tok-1"}
	s := NewSession(fl, "", "", "")

	_, err := s.EnsureValidToken(context.Background())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var cerr *errs.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
	if fl.calls != 0 {
		t.Fatalf("expected no login attempt, got %d", fl.calls)
	}
}

func TestSession_EnsureValidToken_LoginFailureDoesNotCache(t *testing.T) {
	t.Parallel()

	fl := &fakeLogin{err: &errs.ServiceError{Service: "gateway login", Status: 401, Body: "nope"}}
	s := NewSession(fl, "ops@example.com", "pw", "")

	if _, err := s.EnsureValidToken(context.Background()); err == nil {
		t.Fatalf("expected error, got nil")
	}

	// A later call must try again instead of reusing a partial session.
	fl.err = nil
	fl.token = "tok-1"

	tok, err := s.EnsureValidToken(context.Background())
	if err != nil {
		t.Fatalf("EnsureValidToken() after recovery error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("expected token tok-1, got %q", tok)
	}
	if fl.calls != 2 {
		t.Fatalf("expected 2 login calls, got %d", fl.calls)
	}
}

func TestSession_EnsureValidToken_OverrideUsedWhenResponseHasNoToken(t *testing.T) {
	t.Parallel()

	fl := &fakeLogin{err: &errs.ProtocolError{Service: "gateway login", Detail: "token not found in response"}}
	s := NewSession(fl, "ops@example.com", "pw", "pre-provisioned")

	tok, err := s.EnsureValidToken(context.Background())
	if err != nil {
		t.Fatalf("EnsureValidToken() error: %v", err)
	}
	if tok != "pre-provisioned" {
		t.Fatalf("expected override token, got %q", tok)
	}
}

func TestSession_EnsureValidToken_ProtocolErrorWithoutOverridePropagates(t *testing.T) {
	t.Parallel()

	fl := &fakeLogin{err: &errs.ProtocolError{Service: "gateway login", Detail: "token not found in response"}}
	s := NewSession(fl, "ops@example.com", "pw", "")

	_, err := s.EnsureValidToken(context.Background())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var perr *errs.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %T: %v", err, err)
	}
}

func TestSession_Reset_ForcesRelogin(t *testing.T) {
	t.Parallel()

	fl := &fakeLogin{token: "tok-1"}
	s := NewSession(fl, "ops@example.com", "pw", "")

	if _, err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatalf("EnsureValidToken() error: %v", err)
	}

	s.Reset()

	if _, err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatalf("EnsureValidToken() after reset error: %v", err)
	}
	if fl.calls != 2 {
		t.Fatalf("expected relogin after Reset, got %d calls", fl.calls)
	}
}
