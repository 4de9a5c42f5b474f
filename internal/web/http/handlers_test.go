package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/quidfin/web/internal/web/apiclient"
	"github.com/quidfin/web/internal/web/apistub"
	"github.com/quidfin/web/internal/web/service"
	"github.com/quidfin/web/internal/web/session"
	"github.com/quidfin/web/internal/web/store"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "Password1!"
	testFullName = "Ada Lovelace"
)

type testEnv struct {
	router   *Router
	stub     *apistub.Server
	sessions *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stub := apistub.New()
	t.Cleanup(stub.Close)

	sessions, err := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), false)
	require.NoError(t, err)

	api := apiclient.New(stub.URL())
	router := NewRouter(sessions, slog.New(slog.DiscardHandler), "test")
	router.AuthService = &service.AuthService{API: api}
	router.ProfileService = &service.ProfileService{API: api}
	router.RequestTimeout = 5 * time.Second
	router.ApplyRoutes()

	return &testEnv{router: router, stub: stub, sessions: sessions}
}

func (env *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// savedSession decodes the session cookie a response just set.
func (env *testEnv) savedSession(t *testing.T, rec *httptest.ResponseRecorder) session.Data {
	t.Helper()

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "expected a session cookie on the response")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[len(cookies)-1])
	return env.sessions.Get(req)
}

func TestLogin(t *testing.T) {
	t.Run("success sets token and lands on dashboard", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)

		rec := env.postForm("/login", url.Values{
			"username": {testEmail},
			"password": {testPassword},
		})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))

		sess := env.savedSession(t, rec)
		require.NotEmpty(t, sess.AccessToken)
		require.Empty(t, sess.TempToken)
	})

	t.Run("mfa account gets a challenge, not a token", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		env.stub.EnableTOTP(testEmail)

		rec := env.postForm("/login", url.Values{
			"username": {testEmail},
			"password": {testPassword},
		})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))

		sess := env.savedSession(t, rec)
		require.Empty(t, sess.AccessToken)
		require.NotEmpty(t, sess.TempToken)
	})

	t.Run("wrong password rerenders with message", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)

		rec := env.postForm("/login", url.Values{
			"username": {testEmail},
			"password": {"WrongPassword1!"},
		})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid email or password")
		require.Empty(t, rec.Result().Cookies())
	})

	t.Run("validation failure makes no upstream call", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.postForm("/login", url.Values{
			"username": {"not-an-email"},
			"password": {"short"},
		})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Zero(t, env.stub.RequestCount())
	})

	t.Run("failed login echoes the username back", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)

		rec := env.postForm("/login", url.Values{
			"username": {testEmail},
			"password": {"WrongPassword1!"},
		})

		require.Contains(t, rec.Body.String(), testEmail)
		require.NotContains(t, rec.Body.String(), "WrongPassword1!")
	})
}

func TestVerifyOTP(t *testing.T) {
	t.Run("completes the login", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		secret := env.stub.EnableTOTP(testEmail)

		loginRec := env.postForm("/login", url.Values{
			"username": {testEmail},
			"password": {testPassword},
		})
		challenge := loginRec.Result().Cookies()[0]

		// The login page now shows the challenge form.
		pageRec := env.get("/login", challenge)
		require.Equal(t, http.StatusOK, pageRec.Code)
		require.Contains(t, pageRec.Body.String(), "totp_code")

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		rec := env.postForm("/login/otp", url.Values{"totp_code": {code}}, challenge)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))

		sess := env.savedSession(t, rec)
		require.NotEmpty(t, sess.AccessToken)
		require.Empty(t, sess.TempToken, "temp token must be discarded once spent")
	})

	t.Run("wrong code keeps the challenge pending", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		env.stub.EnableTOTP(testEmail)

		loginRec := env.postForm("/login", url.Values{
			"username": {testEmail},
			"password": {testPassword},
		})
		challenge := loginRec.Result().Cookies()[0]

		rec := env.postForm("/login/otp", url.Values{"totp_code": {"000000"}}, challenge)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "Invalid OTP")
	})

	t.Run("submission without a pending challenge restarts login", func(t *testing.T) {
		env := newTestEnv(t)

		before := env.stub.RequestCount()
		rec := env.postForm("/login/otp", url.Values{"totp_code": {"123456"}})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))
		require.Equal(t, before, env.stub.RequestCount())
	})
}

func TestSignup(t *testing.T) {
	t.Run("creates account and redirects to login", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.postForm("/signup", url.Values{
			"email":            {testEmail},
			"password":         {testPassword},
			"confirm_password": {testPassword},
			"full_name":        {testFullName},
		})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))
		require.Empty(t, rec.Result().Cookies(), "signup must not authenticate")
	})

	t.Run("duplicate email surfaces as a field error", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)

		rec := env.postForm("/signup", url.Values{
			"email":            {testEmail},
			"password":         {testPassword},
			"confirm_password": {testPassword},
			"full_name":        {testFullName},
		})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "already registered")
	})

	t.Run("mismatched passwords fail before any upstream call", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.postForm("/signup", url.Values{
			"email":            {testEmail},
			"password":         {testPassword},
			"confirm_password": {"Different1!"},
			"full_name":        {testFullName},
		})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Zero(t, env.stub.RequestCount())
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.stub.AddAccount(testEmail, testPassword, testFullName)
	token := env.stub.IssueToken(testEmail)

	t.Run("destroys the session", func(t *testing.T) {
		cookie := sealedCookie(t, env.sessions, session.Data{AccessToken: token})
		rec := env.postForm("/logout", url.Values{}, cookie)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Negative(t, cookies[0].MaxAge)
	})

	t.Run("idempotent without a session", func(t *testing.T) {
		rec := env.postForm("/logout", url.Values{})

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))
	})
}

func TestDashboard(t *testing.T) {
	t.Run("caches the fetched profile in the session", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		token := env.stub.IssueToken(testEmail)

		first := env.get("/dashboard", sealedCookie(t, env.sessions, session.Data{AccessToken: token}))
		require.Equal(t, http.StatusOK, first.Code)
		require.Contains(t, first.Body.String(), testFullName)
		require.Equal(t, 1, env.stub.RequestCount())

		refreshed := first.Result().Cookies()
		require.NotEmpty(t, refreshed)

		second := env.get("/dashboard", refreshed[len(refreshed)-1])
		require.Equal(t, http.StatusOK, second.Code)
		require.Equal(t, 1, env.stub.RequestCount(), "cached profile must not refetch")
	})

	t.Run("revoked token tears the session down", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.get("/dashboard", sealedCookie(t, env.sessions, session.Data{AccessToken: "revoked-token"}))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Negative(t, cookies[0].MaxAge)
	})
}

func TestProfile(t *testing.T) {
	t.Run("update rerenders with fresh values", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		token := env.stub.IssueToken(testEmail)
		cookie := sealedCookie(t, env.sessions, session.Data{AccessToken: token})

		rec := env.postForm("/dashboard/profile", url.Values{
			"full_name": {"Augusta Ada King"},
			"email":     {testEmail},
		}, cookie)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Profile updated.")
		require.Contains(t, rec.Body.String(), "Augusta Ada King")
	})

	t.Run("wrong current password is a form error", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		token := env.stub.IssueToken(testEmail)
		cookie := sealedCookie(t, env.sessions, session.Data{AccessToken: token})

		rec := env.postForm("/dashboard/profile/password", url.Values{
			"current_password": {"WrongPassword1!"},
			"new_password":     {"NewPassword1!"},
		}, cookie)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("password change succeeds", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		token := env.stub.IssueToken(testEmail)
		cookie := sealedCookie(t, env.sessions, session.Data{AccessToken: token})

		rec := env.postForm("/dashboard/profile/password", url.Values{
			"current_password": {testPassword},
			"new_password":     {"NewPassword1!"},
		}, cookie)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Password changed.")
	})
}

func TestMFAEnrollment(t *testing.T) {
	t.Run("qr then code enables mfa", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		token := env.stub.IssueToken(testEmail)
		cookie := sealedCookie(t, env.sessions, session.Data{AccessToken: token})

		qr := env.get("/dashboard/profile/mfa/qr", cookie)
		require.Equal(t, http.StatusOK, qr.Code)
		require.Equal(t, "image/png", qr.Header().Get("Content-Type"))
		require.Equal(t, "no-store", qr.Header().Get("Cache-Control"))

		secret := env.stub.PendingSecret(testEmail)
		require.NotEmpty(t, secret)

		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		rec := env.postForm("/dashboard/profile/mfa", url.Values{"totp_code": {code}}, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Multi-factor authentication enabled.")
	})

	t.Run("already enabled short-circuits without upstream calls", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		env.stub.EnableTOTP(testEmail)
		token := env.stub.IssueToken(testEmail)

		cookie := sealedCookie(t, env.sessions, session.Data{
			AccessToken: token,
			User:        &apiclient.User{Email: testEmail, FullName: testFullName, OTPEnabled: true},
		})

		before := env.stub.RequestCount()
		rec := env.postForm("/dashboard/profile/mfa", url.Values{"totp_code": {"123456"}}, cookie)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard/profile", rec.Header().Get("Location"))
		require.Equal(t, before, env.stub.RequestCount())
	})

	t.Run("qr is a conflict once enabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.stub.AddAccount(testEmail, testPassword, testFullName)
		env.stub.EnableTOTP(testEmail)
		token := env.stub.IssueToken(testEmail)

		cookie := sealedCookie(t, env.sessions, session.Data{
			AccessToken: token,
			User:        &apiclient.User{Email: testEmail, OTPEnabled: true},
		})

		rec := env.get("/dashboard/profile/mfa/qr", cookie)
		require.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/login")
	require.Equal(t, http.StatusOK, rec.Code)

	headers := rec.Header()
	require.Contains(t, headers.Get("Content-Security-Policy"), "default-src 'self'")
	require.Contains(t, headers.Get("Content-Security-Policy"), "report-uri "+CSPReportPath)
	require.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	require.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	require.NotEmpty(t, headers.Get("Strict-Transport-Security"))
	require.NotEmpty(t, headers.Get("Referrer-Policy"))

	// Redirects carry them too.
	redirect := env.get("/dashboard")
	require.Equal(t, http.StatusSeeOther, redirect.Code)
	require.NotEmpty(t, redirect.Header().Get("Content-Security-Policy"))
}

func TestCSPReportEndpoint(t *testing.T) {
	newEnvWithStore := func(t *testing.T) (*testEnv, *store.Store) {
		env := newTestEnv(t)

		db, err := store.Open("file:" + filepath.Join(t.TempDir(), "web.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, db.ApplyMigrations())

		env.router.CSPReports = db.CSPReports()
		return env, db
	}

	postReport := func(env *testEnv, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, CSPReportPath, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/csp-report")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("stores a well-formed report", func(t *testing.T) {
		env, db := newEnvWithStore(t)

		payload := map[string]any{
			"csp-report": map[string]string{
				"document-uri":       "https://app.example.com/dashboard",
				"violated-directive": "script-src",
				"blocked-uri":        "https://evil.example.com/x.js",
			},
		}
		body, err := json.Marshal(payload)
		require.NoError(t, err)

		rec := postReport(env, string(body))
		require.Equal(t, http.StatusNoContent, rec.Code)

		reports, err := db.CSPReports().Recent(t.Context(), 10)
		require.NoError(t, err)
		require.Len(t, reports, 1)
		require.Equal(t, "script-src", reports[0].ViolatedDirective)
	})

	t.Run("unparseable body is a server error", func(t *testing.T) {
		env, _ := newEnvWithStore(t)

		rec := postReport(env, "{not json")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("missing payload is acknowledged but not stored", func(t *testing.T) {
		env, db := newEnvWithStore(t)

		rec := postReport(env, `{"unexpected": true}`)
		require.Equal(t, http.StatusNoContent, rec.Code)

		reports, err := db.CSPReports().Recent(t.Context(), 10)
		require.NoError(t, err)
		require.Empty(t, reports)
	})
}

func TestHome(t *testing.T) {
	env := newTestEnv(t)

	t.Run("unauthenticated goes to login", func(t *testing.T) {
		rec := env.get("/")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("authenticated goes to dashboard", func(t *testing.T) {
		cookie := sealedCookie(t, env.sessions, session.Data{AccessToken: "opaque-token"})
		rec := env.get("/", cookie)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})
}

func TestLivez(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/livez")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "test", body["version"])
}
