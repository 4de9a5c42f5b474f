package http

import (
	"net/http"

	"github.com/quidfin/web/internal/web/apiclient"
)

func profileForm(user *apiclient.User) map[string]string {
	if user == nil {
		return map[string]string{}
	}
	return map[string]string{
		"full_name": user.FullName,
		"email":     user.Email,
	}
}

func (rt *Router) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	user, _, ok := rt.currentUser(w, r)
	if !ok {
		return
	}
	render(w, r, http.StatusOK, "profile", pageData{
		Title: "Profile",
		User:  user,
		Form:  profileForm(user),
	})
}

func (rt *Router) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	user, sess, ok := rt.currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	result := rt.ProfileService.UpdateProfile(ctx, sess.AccessToken,
		r.PostFormValue("full_name"), r.PostFormValue("email"))

	if !result.Updated {
		render(w, r, http.StatusUnprocessableEntity, "profile", pageData{
			Title:   "Profile",
			User:    user,
			Form:    formValues(r, "full_name", "email"),
			Errors:  result.FieldErrors,
			Message: result.Message,
			Section: "details",
		})
		return
	}

	updated, err := rt.refreshUser(w, r, sess)
	if err != nil {
		rt.serverError(w, r, err)
		return
	}

	render(w, r, http.StatusOK, "profile", pageData{
		Title:   "Profile",
		User:    updated,
		Form:    profileForm(updated),
		Success: "Profile updated.",
	})
}

func (rt *Router) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	user, sess, ok := rt.currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	result := rt.ProfileService.ChangePassword(ctx, sess.AccessToken,
		r.PostFormValue("current_password"), r.PostFormValue("new_password"))

	if !result.Updated {
		render(w, r, http.StatusUnprocessableEntity, "profile", pageData{
			Title:   "Profile",
			User:    user,
			Form:    profileForm(user),
			Errors:  result.FieldErrors,
			Message: result.Message,
			Section: "password",
		})
		return
	}

	render(w, r, http.StatusOK, "profile", pageData{
		Title:   "Profile",
		User:    user,
		Form:    profileForm(user),
		Success: "Password changed.",
	})
}

func (rt *Router) handleEnableMFA(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	user, sess, ok := rt.currentUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	result := rt.ProfileService.EnableMFA(ctx, sess.AccessToken, user, r.PostFormValue("totp_code"))

	switch {
	case result.AlreadyEnabled:
		// Nothing to do; the page already shows MFA as on.
		http.Redirect(w, r, "/dashboard/profile", http.StatusSeeOther)

	case result.Enabled:
		updated, err := rt.refreshUser(w, r, sess)
		if err != nil {
			rt.serverError(w, r, err)
			return
		}
		render(w, r, http.StatusOK, "profile", pageData{
			Title:   "Profile",
			User:    updated,
			Form:    profileForm(updated),
			Success: "Multi-factor authentication enabled.",
		})

	default:
		render(w, r, http.StatusUnprocessableEntity, "profile", pageData{
			Title:   "Profile",
			User:    user,
			Form:    profileForm(user),
			Errors:  result.FieldErrors,
			Message: result.Message,
			Section: "mfa",
		})
	}
}

// handleMFAQR streams the provisioning QR image for a user mid-enrollment.
// A user with MFA already on has nothing to enroll; that is a conflict, not
// a fresh secret.
func (rt *Router) handleMFAQR(w http.ResponseWriter, r *http.Request) {
	user, sess, ok := rt.currentUser(w, r)
	if !ok {
		return
	}
	if user.OTPEnabled {
		http.Error(w, "multi-factor authentication already enabled", http.StatusConflict)
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	png, err := rt.ProfileService.TOTPQR(ctx, sess.AccessToken)
	if err != nil {
		rt.serverError(w, r, err)
		return
	}

	// Each fetch provisions a fresh secret upstream; a cached copy would
	// let the browser show a QR code for a secret that no longer matches.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
