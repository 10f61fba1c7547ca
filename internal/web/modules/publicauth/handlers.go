// Package publicauth serves the unauthenticated auth pages and the
// passkey ceremony JSON endpoints.
package publicauth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/dethstrobe/applywize2/internal/auth"
	"github.com/dethstrobe/applywize2/internal/auth/passkey"
	authstorage "github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/auth/user"
	apperrors "github.com/dethstrobe/applywize2/internal/platform/errors"
	"github.com/dethstrobe/applywize2/internal/web/platform/ceremonytoken"
	"github.com/dethstrobe/applywize2/internal/web/platform/httpx"
	"github.com/dethstrobe/applywize2/internal/web/platform/requestmeta"
	"github.com/dethstrobe/applywize2/internal/web/platform/sessioncookie"
	"github.com/dethstrobe/applywize2/internal/web/routepath"
	"github.com/dethstrobe/applywize2/internal/web/templates"
)

// AuthService is the slice of the auth service the web module uses.
type AuthService interface {
	BeginRegistration(ctx context.Context, username string) (auth.RegistrationChallenge, error)
	FinishRegistration(ctx context.Context, ceremonyID string, credentialResponse []byte) (user.User, error)
	BeginLogin(ctx context.Context) (auth.LoginChallenge, error)
	FinishLogin(ctx context.Context, ceremonyID string, credentialResponse []byte) (auth.LoginResult, error)
	GetActiveWebSession(ctx context.Context, sessionID string) (authstorage.WebSession, error)
	RevokeWebSession(ctx context.Context, sessionID string) error
	GetUser(ctx context.Context, userID string) (user.User, error)
}

// Handlers serves signup/login pages and ceremony endpoints.
type Handlers struct {
	service     AuthService
	signer      *ceremonytoken.Signer
	policy      requestmeta.SchemePolicy
	ceremonyTTL time.Duration
}

// NewHandlers wires the auth web handlers.
func NewHandlers(service AuthService, signer *ceremonytoken.Signer, policy requestmeta.SchemePolicy, ceremonyTTL time.Duration) Handlers {
	if ceremonyTTL <= 0 {
		ceremonyTTL = 5 * time.Minute
	}
	return Handlers{service: service, signer: signer, policy: policy, ceremonyTTL: ceremonyTTL}
}

// Register mounts the auth routes on the mux.
func (h Handlers) Register(mux *http.ServeMux) {
	mux.Handle(routepath.Signup, httpx.Chain(http.HandlerFunc(h.handleSignupPage), httpx.RequireMethod(http.MethodGet)))
	mux.Handle(routepath.Login, httpx.Chain(http.HandlerFunc(h.handleLoginPage), httpx.RequireMethod(http.MethodGet)))
	mux.Handle(routepath.RegisterStart, httpx.Chain(http.HandlerFunc(h.handleRegisterStart), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.RegisterFinish, httpx.Chain(http.HandlerFunc(h.handleRegisterFinish), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.LoginStart, httpx.Chain(http.HandlerFunc(h.handleLoginStart), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.LoginFinish, httpx.Chain(http.HandlerFunc(h.handleLoginFinish), httpx.RequireMethod(http.MethodPost)))
	mux.Handle(routepath.Logout, httpx.Chain(http.HandlerFunc(h.handleLogout), httpx.RequireMethod(http.MethodPost)))
}

func (h Handlers) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	h.writePage(w, r, "Sign up", templates.SignupPage())
}

func (h Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	h.writePage(w, r, "Log in", templates.LoginPage())
}

func (h Handlers) handleRegisterStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, apperrors.New(apperrors.CodeInvalidInput, "invalid json body"))
		return
	}
	challenge, err := h.service.BeginRegistration(r.Context(), payload.Username)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if !h.bindCeremony(w, r, challenge.CeremonyID, passkey.CeremonyKindRegistration) {
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ceremony_id": challenge.CeremonyID,
		"options":     json.RawMessage(challenge.OptionsJSON),
	})
}

func (h Handlers) handleRegisterFinish(w http.ResponseWriter, r *http.Request) {
	ceremonyID, ok := h.boundCeremony(w, r, passkey.CeremonyKindRegistration)
	if !ok {
		return
	}
	credential, ok := decodeCredential(w, r)
	if !ok {
		return
	}
	registered, err := h.service.FinishRegistration(r.Context(), ceremonyID, credential)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	ceremonytoken.ClearCookie(w, r)
	// Registration never signs the browser in; the new passkey has to
	// prove itself through a login ceremony first.
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"username":     registered.Username,
		"redirect_url": routepath.Login,
	})
}

func (h Handlers) handleLoginStart(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.service.BeginLogin(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if !h.bindCeremony(w, r, challenge.CeremonyID, passkey.CeremonyKindLogin) {
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"ceremony_id": challenge.CeremonyID,
		"options":     json.RawMessage(challenge.OptionsJSON),
	})
}

func (h Handlers) handleLoginFinish(w http.ResponseWriter, r *http.Request) {
	ceremonyID, ok := h.boundCeremony(w, r, passkey.CeremonyKindLogin)
	if !ok {
		return
	}
	credential, ok := decodeCredential(w, r)
	if !ok {
		return
	}
	result, err := h.service.FinishLogin(r.Context(), ceremonyID, credential)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	ceremonytoken.ClearCookie(w, r)
	sessioncookie.WriteWithPolicy(w, r, result.Session.ID, h.policy)
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"username":     result.User.Username,
		"redirect_url": routepath.Root,
	})
}

func (h Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := sessioncookie.Read(r); ok {
		_ = h.service.RevokeWebSession(r.Context(), sessionID)
	}
	sessioncookie.ClearWithPolicy(w, r, h.policy)
	httpx.WriteRedirect(w, r, routepath.Login)
}

// bindCeremony issues the signed cookie tying this browser to the ceremony.
func (h Handlers) bindCeremony(w http.ResponseWriter, r *http.Request, ceremonyID string, kind passkey.CeremonyKind) bool {
	token, err := h.signer.Issue(ceremonyID, string(kind), h.ceremonyTTL)
	if err != nil {
		httpx.WriteError(w, err)
		return false
	}
	ceremonytoken.WriteCookie(w, r, token, h.ceremonyTTL)
	return true
}

// boundCeremony recovers the ceremony id from the signed cookie.
func (h Handlers) boundCeremony(w http.ResponseWriter, r *http.Request, kind passkey.CeremonyKind) (string, bool) {
	token, ok := ceremonytoken.ReadCookie(r)
	if !ok {
		httpx.WriteError(w, apperrors.New(apperrors.CodeCeremonyNotFound, "no ceremony in progress"))
		return "", false
	}
	ceremonyID, err := h.signer.Verify(token, string(kind))
	if err != nil {
		httpx.WriteError(w, err)
		return "", false
	}
	return ceremonyID, true
}

func decodeCredential(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	var payload struct {
		Credential json.RawMessage `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, apperrors.New(apperrors.CodeInvalidInput, "invalid json body"))
		return nil, false
	}
	if len(payload.Credential) == 0 {
		httpx.WriteError(w, apperrors.New(apperrors.CodeInvalidInput, "credential is required"))
		return nil, false
	}
	return payload.Credential, true
}

func (h Handlers) redirectAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	sessionID, ok := sessioncookie.Read(r)
	if !ok {
		return false
	}
	if _, err := h.service.GetActiveWebSession(r.Context(), sessionID); err != nil {
		return false
	}
	http.Redirect(w, r, routepath.Root, http.StatusFound)
	return true
}

func (h Handlers) writePage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	var rendered bytes.Buffer
	if err := templates.Layout(title, templates.NavContext{}, body).Render(r.Context(), &rendered); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.Bytes())
}
