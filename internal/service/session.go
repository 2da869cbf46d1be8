package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
)

// tokenValidity is how long a gateway login is trusted before the next
// call forces a relogin.
const tokenValidity = time.Hour

type GatewayLogin interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Session owns the authenticated gateway session for the process:
// one login at a time is cached with an expiry and shared by every
// dispatch. The mutex only guards the cached fields; it is never held
// across the login call, so concurrent callers hitting an expired
// cache may both log in. Relogin is idempotent, so that is accepted
// instead of single-flighting.
type Session struct {
	gateway  GatewayLogin
	email    string
	password string
	// override is a pre-provisioned bearer credential, used when the
	// login response carries no token of its own.
	override string

	now func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewSession(gateway GatewayLogin, email, password, override string) *Session {
	return &Session{
		gateway:  gateway,
		email:    email,
		password: password,
		override: override,
		now:      time.Now,
	}
}

// EnsureValidToken returns the cached bearer token, logging in first
// when there is no token or the cached one has expired. Expiry is
// strict: the token is reused right up to expiresAt, with no early
// refresh margin.
func (s *Session) EnsureValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	token, expiresAt := s.token, s.expiresAt
	s.mu.Unlock()

	if token != "" && s.now().Before(expiresAt) {
		return token, nil
	}

	if s.email == "" || s.password == "" {
		return "", &errs.ConfigError{Missing: "WHATSAPP_EMAIL/WHATSAPP_PASSWORD"}
	}

	slog.Info("gateway session: token missing or expired, logging in", "email", s.email)

	token, err := s.gateway.Login(ctx, s.email, s.password)
	if err != nil {
		var perr *errs.ProtocolError
		if !errors.As(err, &perr) || s.override == "" {
			return "", err
		}
		// The gateway logged us in but sent no token; fall back to the
		// pre-provisioned credential.
		token = s.override
	}

	expiresAt = s.now().Add(tokenValidity)

	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.mu.Unlock()

	slog.Info("gateway session: token refreshed", "expiresAt", expiresAt)
	return token, nil
}

// Reset drops the cached session, forcing the next caller to log in.
func (s *Session) Reset() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}
