package http

import "net/http"

func (rt *Router) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "signup", pageData{Title: "Create account"})
}

// handleSignup creates the account. Signing up does not authenticate; the
// user lands on the login page and signs in with the new credentials.
func (rt *Router) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ctx, cancel := rt.requestContext(r)
	defer cancel()

	result := rt.AuthService.Signup(ctx,
		r.PostFormValue("email"),
		r.PostFormValue("password"),
		r.PostFormValue("confirm_password"),
		r.PostFormValue("full_name"),
	)

	if !result.Created {
		render(w, r, http.StatusUnprocessableEntity, "signup", pageData{
			Title:   "Create account",
			Form:    formValues(r, "email", "full_name"),
			Errors:  result.FieldErrors,
			Message: result.Message,
		})
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
