package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/quidfin/web/internal/web/apiclient"
	"github.com/quidfin/web/internal/web/validate"
	"github.com/quidfin/web/pkg/slogx"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// pages maps page names to parsed templates. Each page combines the shared
// layout with its own content block.
var pages = func() map[string]*template.Template {
	names := []string{"login", "signup", "dashboard", "profile", "settings"}

	parsed := make(map[string]*template.Template, len(names))
	for _, name := range names {
		parsed[name] = template.Must(template.ParseFS(templateFS,
			"templates/layout.html.tmpl",
			"templates/"+name+".html.tmpl",
		))
	}
	return parsed
}()

// pageData is the view model every page template receives. Form echoes
// submitted values back so a failed submission doesn't wipe the user's
// input; Errors render under their fields, Message below the submit control.
type pageData struct {
	Title   string
	User    *apiclient.User
	Form    map[string]string
	Errors  validate.Errors
	Message string
	Success string

	// ShowOTP switches the login page to the OTP challenge form.
	ShowOTP bool

	// Section names the form a Message belongs to on pages that carry
	// several forms (the profile page).
	Section string
}

// FieldErrors returns the messages for one field, for template use.
func (d pageData) FieldErrors(field string) []string {
	return d.Errors[field]
}

// render executes a page into a buffer first so a template fault becomes a
// clean 500 instead of a half-written page.
func render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := pages[page]
	if !ok {
		slogx.FromContext(r.Context()).Error("unknown page template", "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slogx.FromContext(r.Context()).Error("template execution failed", "page", page, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// formValues snapshots the submitted fields worth echoing back. Password
// fields are deliberately never echoed.
func formValues(r *http.Request, fields ...string) map[string]string {
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		values[field] = r.FormValue(field)
	}
	return values
}
