package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/auth/login"

// Middleware attaches the signed-in principal to the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// LoadPrincipal resolves the session user. A session pointing at a missing
// or inactive user is signed out.
func (m Middleware) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || strings.TrimSpace(sess.User()) == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(strings.TrimSpace(sess.User()), 10, 64)
		if err != nil {
			sess.SetUser("")
			next.ServeHTTP(w, r)
			return
		}
		p, err := m.Service.Principal(r.Context(), userID)
		switch {
		case err == nil:
			r = r.WithContext(shared.ContextWithPrincipal(r.Context(), p))
		case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrUnauthenticated):
			sess.SetUser("")
		default:
			if m.Logger != nil {
				m.Logger.Error("load principal", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin redirects anonymous page requests to the login form and
// answers anonymous API requests with a 401 problem.
func (m Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := shared.PrincipalFromContext(r.Context()); ok && p.Authenticated() {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Sign in required")
			return
		}
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	})
}
