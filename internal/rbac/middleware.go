package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// Middleware gates handlers on the permissions of the request principal.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), func(p shared.Principal, required []string) bool {
		for _, perm := range required {
			if p.Can(perm) {
				return true
			}
		}
		return len(required) == 0
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), func(p shared.Principal, required []string) bool {
		for _, perm := range required {
			if !p.Can(perm) {
				return false
			}
		}
		return true
	})
}

func (m Middleware) require(required []string, allowed func(shared.Principal, []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok || !p.Authenticated() {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if allowed(p, required) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("permission denied", slog.Int64("user_id", p.UserID), slog.String("path", r.URL.Path), slog.Any("required", required))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if _, dup := unique[p]; dup || p == "" {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
