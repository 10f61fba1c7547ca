package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dethstrobe/applywize2/internal/auth"
	authstorage "github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/auth/user"
	"github.com/dethstrobe/applywize2/internal/tracker"
	trackerstorage "github.com/dethstrobe/applywize2/internal/tracker/storage"
	"github.com/dethstrobe/applywize2/internal/web/platform/ceremonytoken"
	"github.com/dethstrobe/applywize2/internal/web/platform/requestmeta"
	"github.com/dethstrobe/applywize2/internal/web/platform/sessioncookie"
)

type gateAuthService struct {
	sessions map[string]authstorage.WebSession
	users    map[string]user.User
}

func (g *gateAuthService) BeginRegistration(context.Context, string) (auth.RegistrationChallenge, error) {
	return auth.RegistrationChallenge{CeremonyID: "cer-1", OptionsJSON: []byte(`{}`)}, nil
}

func (g *gateAuthService) FinishRegistration(context.Context, string, []byte) (user.User, error) {
	return user.User{}, nil
}

func (g *gateAuthService) BeginLogin(context.Context) (auth.LoginChallenge, error) {
	return auth.LoginChallenge{CeremonyID: "cer-2", OptionsJSON: []byte(`{}`)}, nil
}

func (g *gateAuthService) FinishLogin(context.Context, string, []byte) (auth.LoginResult, error) {
	return auth.LoginResult{}, nil
}

func (g *gateAuthService) GetActiveWebSession(_ context.Context, sessionID string) (authstorage.WebSession, error) {
	session, ok := g.sessions[sessionID]
	if !ok {
		return authstorage.WebSession{}, authstorage.ErrNotFound
	}
	return session, nil
}

func (g *gateAuthService) RevokeWebSession(context.Context, string) error { return nil }

func (g *gateAuthService) GetUser(_ context.Context, userID string) (user.User, error) {
	account, ok := g.users[userID]
	if !ok {
		return user.User{}, authstorage.ErrNotFound
	}
	return account, nil
}

type emptyTrackerService struct{}

func (emptyTrackerService) Statuses(context.Context) ([]trackerstorage.Status, error) {
	return []trackerstorage.Status{{ID: 1, Name: "New"}}, nil
}

func (emptyTrackerService) CreateApplication(context.Context, string, tracker.ApplicationInput) (tracker.Details, error) {
	return tracker.Details{}, nil
}

func (emptyTrackerService) ListApplications(context.Context, string, bool) ([]tracker.Details, error) {
	return nil, nil
}

func (emptyTrackerService) GetApplication(context.Context, string, string) (tracker.Details, error) {
	return tracker.Details{}, nil
}

func (emptyTrackerService) UpdateApplication(context.Context, string, string, tracker.ApplicationInput) (tracker.Details, error) {
	return tracker.Details{}, nil
}

func (emptyTrackerService) DeleteApplication(context.Context, string, string) error { return nil }

func (emptyTrackerService) SetArchived(context.Context, string, string, bool) error { return nil }

func newTestHandler(t *testing.T, authService *gateAuthService) http.Handler {
	t.Helper()
	signer, err := ceremonytoken.NewSigner([]byte("0123456789abcdef0123456789abcdef"), nil)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	return NewHandler(HandlerConfig{
		Auth:         authService,
		Tracker:      emptyTrackerService{},
		Signer:       signer,
		SchemePolicy: requestmeta.SchemePolicy{},
		CeremonyTTL:  5 * time.Minute,
	})
}

func TestProtectedRouteRedirectsWithoutSession(t *testing.T) {
	handler := newTestHandler(t, &gateAuthService{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/applications", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != "/auth/login" {
		t.Fatalf("Location = %q, want %q", got, "/auth/login")
	}
}

func TestProtectedRouteClearsDeadSessionCookie(t *testing.T) {
	handler := newTestHandler(t, &gateAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/applications", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "ws-dead"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	cleared := false
	for _, raw := range rr.Header().Values("Set-Cookie") {
		cookie, err := http.ParseSetCookie(raw)
		if err != nil {
			t.Fatalf("ParseSetCookie() error = %v", err)
		}
		if cookie.Name == sessioncookie.Name && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected dead session cookie to be cleared")
	}
}

func TestProtectedRouteServesAuthenticatedUser(t *testing.T) {
	authService := &gateAuthService{
		sessions: map[string]authstorage.WebSession{
			"ws-1": {ID: "ws-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)},
		},
		users: map[string]user.User{
			"user-1": {ID: "user-1", Username: "alice"},
		},
	}
	handler := newTestHandler(t, authService)

	req := httptest.NewRequest(http.MethodGet, "/applications", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "ws-1"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "alice") {
		t.Fatalf("expected username in nav:\n%s", rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header from middleware chain")
	}
}

func TestAuthPagesArePublic(t *testing.T) {
	handler := newTestHandler(t, &gateAuthService{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "passkey") {
		t.Fatalf("expected login page body:\n%s", rr.Body.String())
	}
}

func TestStaticAssetsServed(t *testing.T) {
	handler := newTestHandler(t, &gateAuthService{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/passkeys.js", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "navigator.credentials") {
		t.Fatalf("expected passkey script body")
	}
}

func TestNewServerRequiresAddress(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Fatal("expected error for missing http address")
	}
}

func TestServerShutsDownOnContextCancel(t *testing.T) {
	server, err := NewServer(Config{
		HTTPAddr: "127.0.0.1:0",
		Handler: HandlerConfig{
			Auth:    &gateAuthService{},
			Tracker: emptyTrackerService{},
		},
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
