package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"bookworm/internal/api"
	"bookworm/internal/credstore"
	"bookworm/pkg/domain"
)

func newFileCreds(t *testing.T) credstore.Store {
	t.Helper()
	store, err := credstore.NewFileStore(filepath.Join(t.TempDir(), "credentials.blob"), "test-key")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return store
}

func newAuthServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "good-password" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
			return
		}
		username := req["username"]
		if username == "" {
			username = "reader"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "token-123",
			"user": domain.User{
				ID:       "user-1",
				Username: username,
				Email:    req["email"],
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T, creds credstore.Store, calls *int32) *Store {
	t.Helper()
	srv := newAuthServer(t, calls)
	return New(api.NewClient(srv.URL, 5*time.Second), creds)
}

func TestLoginSuccessPersistsAndAuthenticates(t *testing.T) {
	creds := newFileCreds(t)
	s := newTestStore(t, creds, nil)
	ctx := context.Background()

	if err := s.Login(ctx, "a@b.com", "good-password"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := s.Status(); got != domain.SessionAuthenticated {
		t.Fatalf("status = %q, want authenticated", got)
	}
	if s.Token() == "" {
		t.Fatalf("token should be set after login")
	}
	user, ok := s.User()
	if !ok || user.Email != "a@b.com" {
		t.Fatalf("user = %+v ok=%v, want signed-in a@b.com", user, ok)
	}

	// A later process start resolves the session from the blob alone.
	restarted := New(api.NewClient("http://unreachable.invalid", time.Second), creds)
	if err := restarted.CheckAuth(ctx); err != nil {
		t.Fatalf("check auth: %v", err)
	}
	if got := restarted.Status(); got != domain.SessionAuthenticated {
		t.Fatalf("status after restart = %q, want authenticated", got)
	}
	if restarted.Token() != "token-123" {
		t.Fatalf("token after restart = %q, want token-123", restarted.Token())
	}
}

func TestLoginFailureLeavesNothingBehind(t *testing.T) {
	creds := newFileCreds(t)
	s := newTestStore(t, creds, nil)
	ctx := context.Background()

	err := s.Login(ctx, "a@b.com", "bad")
	if err == nil {
		t.Fatalf("expected login to fail")
	}
	if !api.IsAuth(err) {
		t.Fatalf("error should classify as auth rejection, got %v", err)
	}
	if err.Error() != "Invalid credentials" {
		t.Fatalf("error message = %q, want the server's message", err.Error())
	}
	if got := s.Status(); got != domain.SessionUnauthenticated {
		t.Fatalf("status = %q, want unauthenticated", got)
	}
	if _, ok, _ := creds.Read(ctx); ok {
		t.Fatalf("failed login must not persist credentials")
	}
}

func TestLoginValidatesBeforeRequest(t *testing.T) {
	var calls int32
	s := newTestStore(t, newFileCreds(t), &calls)
	ctx := context.Background()

	if err := s.Login(ctx, "", "pw"); !api.IsValidation(err) {
		t.Fatalf("empty email = %v, want validation error", err)
	}
	if err := s.Login(ctx, "a@b.com", ""); !api.IsValidation(err) {
		t.Fatalf("empty password = %v, want validation error", err)
	}
	if err := s.Register(ctx, "", "a@b.com", "pw"); !api.IsValidation(err) {
		t.Fatalf("empty username = %v, want validation error", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("validation failures must not reach the server, got %d calls", got)
	}
}

func TestRegisterBehavesLikeLogin(t *testing.T) {
	creds := newFileCreds(t)
	s := newTestStore(t, creds, nil)
	ctx := context.Background()

	if err := s.Register(ctx, "worm", "w@b.com", "good-password"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := s.Status(); got != domain.SessionAuthenticated {
		t.Fatalf("status = %q, want authenticated", got)
	}
	if stored, ok, _ := creds.Read(ctx); !ok || stored.User.Username != "worm" {
		t.Fatalf("credentials = %+v ok=%v, want persisted worm", stored, ok)
	}
}

func TestCheckAuthWithoutRecord(t *testing.T) {
	s := newTestStore(t, newFileCreds(t), nil)
	if got := s.Status(); got != domain.SessionUnknown {
		t.Fatalf("initial status = %q, want unknown", got)
	}
	if err := s.CheckAuth(context.Background()); err != nil {
		t.Fatalf("check auth: %v", err)
	}
	if got := s.Status(); got != domain.SessionUnauthenticated {
		t.Fatalf("status = %q, want unauthenticated", got)
	}
}

func TestCheckAuthClearsExpiredToken(t *testing.T) {
	creds := newFileCreds(t)
	ctx := context.Background()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := creds.Write(ctx, domain.Credentials{Token: expired, User: domain.User{ID: "user-1"}}); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	s := newTestStore(t, creds, nil)
	if err := s.CheckAuth(ctx); err != nil {
		t.Fatalf("check auth: %v", err)
	}
	if got := s.Status(); got != domain.SessionUnauthenticated {
		t.Fatalf("status = %q, want unauthenticated for expired token", got)
	}
	if _, ok, _ := creds.Read(ctx); ok {
		t.Fatalf("expired credentials should be cleared")
	}
}

func TestCheckAuthKeepsOpaqueToken(t *testing.T) {
	creds := newFileCreds(t)
	ctx := context.Background()
	if err := creds.Write(ctx, domain.Credentials{Token: "opaque-token", User: domain.User{ID: "user-1"}}); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	s := newTestStore(t, creds, nil)
	if err := s.CheckAuth(ctx); err != nil {
		t.Fatalf("check auth: %v", err)
	}
	if got := s.Status(); got != domain.SessionAuthenticated {
		t.Fatalf("status = %q, want authenticated for opaque token", got)
	}
}

func TestLogoutSafeInAnyState(t *testing.T) {
	creds := newFileCreds(t)
	s := newTestStore(t, creds, nil)
	ctx := context.Background()

	// Logout before any check or login.
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout from unknown: %v", err)
	}
	if got := s.Status(); got != domain.SessionUnauthenticated {
		t.Fatalf("status = %q, want unauthenticated", got)
	}

	if err := s.Login(ctx, "a@b.com", "good-password"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.Token() != "" {
		t.Fatalf("token should be cleared on logout")
	}
	if _, ok, _ := creds.Read(ctx); ok {
		t.Fatalf("logout must clear the persisted blob")
	}
}

func TestSecondAttemptRejectedWhilePending(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(arrived) })
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "token-123",
			"user":  domain.User{ID: "user-1", Username: "reader"},
		})
	}))
	defer srv.Close()

	s := New(api.NewClient(srv.URL, 5*time.Second), newFileCreds(t))
	done := make(chan error, 1)
	go func() { done <- s.Login(context.Background(), "a@b.com", "pw") }()
	<-arrived

	if err := s.Login(context.Background(), "a@b.com", "pw"); !errors.Is(err, ErrAttemptInFlight) {
		t.Fatalf("second login = %v, want ErrAttemptInFlight", err)
	}
	if err := s.Register(context.Background(), "worm", "a@b.com", "pw"); !errors.Is(err, ErrAttemptInFlight) {
		t.Fatalf("register during login = %v, want ErrAttemptInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first login: %v", err)
	}
	if got := s.Status(); got != domain.SessionAuthenticated {
		t.Fatalf("status = %q, want authenticated", got)
	}
}
