package http

import (
	"errors"
	"net/http"

	"github.com/quidfin/web/internal/web/apiclient"
	"github.com/quidfin/web/internal/web/session"
	"github.com/quidfin/web/pkg/slogx"
)

// handleHome sends the bare root to wherever the session says it belongs.
func (rt *Router) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if session.TokenUsable(sess.AccessToken) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (rt *Router) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _, ok := rt.currentUser(w, r)
	if !ok {
		return
	}
	render(w, r, http.StatusOK, "dashboard", pageData{Title: "Dashboard", User: user})
}

func (rt *Router) handleSettings(w http.ResponseWriter, r *http.Request) {
	user, _, ok := rt.currentUser(w, r)
	if !ok {
		return
	}
	render(w, r, http.StatusOK, "settings", pageData{Title: "Settings", User: user})
}

// currentUser resolves the authenticated user for a guarded page. The
// profile is cached in the session after the first fetch; a cache hit costs
// no upstream call. When ok is false a response has already been written: a
// token the account API rejects tears the session down and restarts at
// login, anything else is a 500.
func (rt *Router) currentUser(w http.ResponseWriter, r *http.Request) (*apiclient.User, session.Data, bool) {
	sess := sessionFromContext(r.Context())
	if sess.User != nil {
		return sess.User, sess, true
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	user, err := rt.ProfileService.FetchUser(ctx, sess.AccessToken)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsAuthFailure() {
			rt.sessions.Destroy(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return nil, session.Data{}, false
		}
		rt.serverError(w, r, err)
		return nil, session.Data{}, false
	}

	sess.User = user
	if err := rt.sessions.Save(w, sess); err != nil {
		slogx.FromContext(r.Context()).Warn("session refresh failed", "err", err)
	}
	return user, sess, true
}

// refreshUser drops the cached profile and refetches it, for handlers whose
// action just changed it.
func (rt *Router) refreshUser(w http.ResponseWriter, r *http.Request, sess session.Data) (*apiclient.User, error) {
	ctx, cancel := rt.requestContext(r)
	defer cancel()

	user, err := rt.ProfileService.FetchUser(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}

	sess.User = user
	if err := rt.sessions.Save(w, sess); err != nil {
		slogx.FromContext(r.Context()).Warn("session refresh failed", "err", err)
	}
	return user, nil
}
