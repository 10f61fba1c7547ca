// Package web assembles the HTTP surface: public auth routes, the
// session-gated application pages, and static assets.
package web

import (
	"net/http"
	"time"

	"github.com/dethstrobe/applywize2/internal/platform/requestctx"
	"github.com/dethstrobe/applywize2/internal/web/modules/applications"
	"github.com/dethstrobe/applywize2/internal/web/modules/publicauth"
	"github.com/dethstrobe/applywize2/internal/web/platform/ceremonytoken"
	"github.com/dethstrobe/applywize2/internal/web/platform/httpx"
	"github.com/dethstrobe/applywize2/internal/web/platform/requestmeta"
	"github.com/dethstrobe/applywize2/internal/web/platform/sessioncookie"
	"github.com/dethstrobe/applywize2/internal/web/routepath"
	"github.com/dethstrobe/applywize2/internal/web/static"
)

// HandlerConfig defines the dependencies for the web handler.
type HandlerConfig struct {
	Auth         publicauth.AuthService
	Tracker      applications.TrackerService
	Signer       *ceremonytoken.Signer
	SchemePolicy requestmeta.SchemePolicy
	CeremonyTTL  time.Duration
}

// NewHandler builds the HTTP handler for the web server.
func NewHandler(config HandlerConfig) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(routepath.StaticPrefix, http.StripPrefix(routepath.StaticPrefix, http.FileServerFS(static.FS)))

	authHandlers := publicauth.NewHandlers(config.Auth, config.Signer, config.SchemePolicy, config.CeremonyTTL)
	authHandlers.Register(mux)

	protected := http.NewServeMux()
	applications.NewHandlers(config.Tracker).Register(protected)
	mux.Handle("/", requireSession(config.Auth)(protected))

	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		httpx.RequestLog(),
	)
}

// requireSession resolves the session cookie to a user and stores the
// identity in the request context. Requests without a live session are
// redirected to the login page.
func requireSession(auth publicauth.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := sessioncookie.Read(r)
			if !ok {
				http.Redirect(w, r, routepath.Login, http.StatusFound)
				return
			}
			session, err := auth.GetActiveWebSession(r.Context(), sessionID)
			if err != nil {
				sessioncookie.Clear(w, r)
				http.Redirect(w, r, routepath.Login, http.StatusFound)
				return
			}

			ctx := requestctx.WithUserID(r.Context(), session.UserID)
			if account, err := auth.GetUser(r.Context(), session.UserID); err == nil {
				ctx = requestctx.WithUsername(ctx, account.Username)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
