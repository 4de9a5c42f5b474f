package http

import (
	"context"
	"net/http"
	"time"

	"github.com/quidfin/web/internal/web/session"
	"github.com/quidfin/web/pkg/slogx"
)

// requestContext bounds upstream work done for one request.
func (rt *Router) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := rt.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}

// handleLoginPage renders the login form, or the OTP challenge form when a
// challenge is pending from an earlier password submission.
func (rt *Router) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	render(w, r, http.StatusOK, "login", pageData{
		Title:   "Sign in",
		ShowOTP: sess.TempToken != "",
	})
}

// handleLogin exchanges credentials for a token. A successful exchange lands
// on the dashboard; a pending OTP challenge redirects back to the login page,
// which now renders the challenge form.
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	result := rt.AuthService.Login(ctx, r.PostFormValue("username"), r.PostFormValue("password"))

	switch {
	case result.Authenticated():
		if err := rt.sessions.Save(w, session.Data{AccessToken: result.AccessToken}); err != nil {
			rt.serverError(w, r, err)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)

	case result.RequiresTOTP:
		if err := rt.sessions.Save(w, session.Data{TempToken: result.TempToken}); err != nil {
			rt.serverError(w, r, err)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)

	default:
		render(w, r, http.StatusUnprocessableEntity, "login", pageData{
			Title:   "Sign in",
			Form:    formValues(r, "username"),
			Errors:  result.FieldErrors,
			Message: result.Message,
		})
	}
}

// handleVerifyOTP answers a pending OTP challenge. The temp token never
// leaves the session; only the six digit code comes from the form.
func (rt *Router) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	sess := sessionFromContext(r.Context())

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	result := rt.AuthService.VerifyOTP(ctx, sess.TempToken, r.PostFormValue("totp_code"))

	switch {
	case result.Authenticated():
		// The temp token is spent; the saved session drops it.
		if err := rt.sessions.Save(w, session.Data{AccessToken: result.AccessToken}); err != nil {
			rt.serverError(w, r, err)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)

	case result.MissingChallenge:
		// Submitted outside a login flow; start over.
		rt.sessions.Destroy(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)

	default:
		// The challenge stays pending so the user can retry the code.
		render(w, r, http.StatusUnprocessableEntity, "login", pageData{
			Title:   "Sign in",
			ShowOTP: true,
			Errors:  result.FieldErrors,
			Message: result.Message,
		})
	}
}

// handleLogout destroys the session. Idempotent: logging out while logged
// out is still a redirect to the login page.
func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	rt.sessions.Destroy(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (rt *Router) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
