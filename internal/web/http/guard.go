package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/quidfin/web/internal/web/session"
)

// Decision is the route guard's verdict for a request.
type Decision int

const (
	// Allow lets the request through unmodified.
	Allow Decision = iota
	// RedirectLogin sends the request to the login page.
	RedirectLogin
	// RedirectDashboard sends the request to the dashboard root.
	RedirectDashboard
)

// Decide is the guard's decision function. It is pure: same path and token
// state, same verdict.
//
//   - The login page with a usable token belongs on the dashboard.
//   - Anything under /dashboard without a usable token belongs on login.
//   - Everything else passes through.
func Decide(path string, hasValidToken bool) Decision {
	isLogin := path == "/login"
	isProtected := path == "/dashboard" || strings.HasPrefix(path, "/dashboard/")

	switch {
	case isLogin && hasValidToken:
		return RedirectDashboard
	case isProtected && !hasValidToken:
		return RedirectLogin
	default:
		return Allow
	}
}

type sessionCtxKey struct{}

// sessionFromContext returns the session the guard decoded for this request.
func sessionFromContext(ctx context.Context) session.Data {
	if data, ok := ctx.Value(sessionCtxKey{}).(session.Data); ok {
		return data
	}
	return session.Data{}
}

// Guard decodes the session once per request, applies Decide, and stashes
// the session in the request context for handlers.
func Guard(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data := sessions.Get(r)

			switch Decide(r.URL.Path, session.TokenUsable(data.AccessToken)) {
			case RedirectDashboard:
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			case RedirectLogin:
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey{}, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
