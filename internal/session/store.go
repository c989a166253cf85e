package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"bookworm/internal/api"
	"bookworm/internal/credstore"
	"bookworm/pkg/domain"
)

// ErrAttemptInFlight is returned when a login or register call arrives while
// another attempt is still pending. Attempts never interleave.
var ErrAttemptInFlight = errors.New("another sign-in attempt is in progress")

// Store owns the session lifecycle: status, the bearer token, the signed-in
// profile, and the persisted credential blob. It lives for the process
// lifetime and is injected into consumers.
//
// Invariant: token and user are both set iff status is authenticated.
type Store struct {
	client *api.Client
	creds  credstore.Store

	mu      sync.Mutex
	status  domain.SessionStatus
	token   string
	user    domain.User
	attempt bool

	checkGroup singleflight.Group
}

// New creates a store in the unknown state. Consumers must not act on the
// session until CheckAuth has resolved it.
func New(client *api.Client, creds credstore.Store) *Store {
	return &Store{
		client: client,
		creds:  creds,
		status: domain.SessionUnknown,
	}
}

// CheckAuth resolves the initial unknown state from the persisted blob.
// Presence of a usable token yields authenticated; absence, a read failure,
// or a locally-expired token yields unauthenticated. Concurrent calls are
// coalesced into one read.
func (s *Store) CheckAuth(ctx context.Context) error {
	_, err, _ := s.checkGroup.Do("check", func() (any, error) {
		return nil, s.checkAuth(ctx)
	})
	return err
}

func (s *Store) checkAuth(ctx context.Context) error {
	creds, ok, err := s.creds.Read(ctx)
	if err != nil {
		slog.Warn("session: credential read failed", "error", err)
		s.setUnauthenticated()
		return nil
	}
	if !ok || strings.TrimSpace(creds.Token) == "" {
		s.setUnauthenticated()
		return nil
	}
	if tokenExpired(creds.Token) {
		slog.Info("session: persisted token expired, clearing")
		if err := s.creds.Clear(ctx); err != nil {
			slog.Warn("session: clear expired credentials failed", "error", err)
		}
		s.setUnauthenticated()
		return nil
	}
	s.mu.Lock()
	s.status = domain.SessionAuthenticated
	s.token = creds.Token
	s.user = creds.User
	s.mu.Unlock()
	return nil
}

// Login validates inputs, calls the auth endpoint, and on success persists
// the credentials and moves to authenticated. Expected failures come back as
// errors carrying the server's message; the state stays unauthenticated and
// nothing is persisted.
func (s *Store) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &api.ValidationError{Field: "email"}
	}
	if password == "" {
		return &api.ValidationError{Field: "password"}
	}
	return s.attemptAuth(ctx, func(ctx context.Context) (domain.Credentials, error) {
		return s.client.Login(ctx, email, password)
	})
}

// Register has the same contract as Login against the register endpoint.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return &api.ValidationError{Field: "username"}
	}
	if email == "" {
		return &api.ValidationError{Field: "email"}
	}
	if password == "" {
		return &api.ValidationError{Field: "password"}
	}
	return s.attemptAuth(ctx, func(ctx context.Context) (domain.Credentials, error) {
		return s.client.Register(ctx, username, email, password)
	})
}

func (s *Store) attemptAuth(ctx context.Context, call func(context.Context) (domain.Credentials, error)) error {
	s.mu.Lock()
	if s.attempt {
		s.mu.Unlock()
		return ErrAttemptInFlight
	}
	s.attempt = true
	s.status = domain.SessionAuthenticating
	s.mu.Unlock()

	creds, err := call(ctx)

	s.mu.Lock()
	s.attempt = false
	if err != nil {
		s.status = domain.SessionUnauthenticated
		s.token = ""
		s.user = domain.User{}
		s.mu.Unlock()
		return err
	}
	s.status = domain.SessionAuthenticated
	s.token = creds.Token
	s.user = creds.User
	s.mu.Unlock()

	if err := s.creds.Write(ctx, creds); err != nil {
		// The session itself is live; only the next process start loses out.
		slog.Warn("session: persist credentials failed", "error", err)
	}
	return nil
}

// Logout clears the in-memory session and the persisted blob. Safe to call
// in any state.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.status = domain.SessionUnauthenticated
	s.token = ""
	s.user = domain.User{}
	s.mu.Unlock()
	if err := s.creds.Clear(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Store) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Token satisfies api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) User() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.status == domain.SessionAuthenticated
}

func (s *Store) setUnauthenticated() {
	s.mu.Lock()
	s.status = domain.SessionUnauthenticated
	s.token = ""
	s.user = domain.User{}
	s.mu.Unlock()
}

// tokenExpired checks the exp claim without verifying the signature; the
// server remains the authority, this only skips a guaranteed 401 on start.
// Opaque non-JWT tokens pass through to the server untouched.
func tokenExpired(token string) bool {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now())
}
