package web_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quidfin/web/internal/web/apiclient"
	"github.com/quidfin/web/internal/web/apistub"
	webhttp "github.com/quidfin/web/internal/web/http"
	"github.com/quidfin/web/internal/web/service"
	"github.com/quidfin/web/internal/web/session"
	"github.com/quidfin/web/pkg/slogx"
)

/*
 * End-to-end tests for the web front-end. The full middleware and handler
 * stack runs behind a real HTTP server; the account API is an in-process
 * stub with working TOTP. The client keeps a cookie jar and follows
 * redirects, so each test reads like a browser session.
 */

const (
	testEmail    = "grace@example.com"
	testPassword = "Password1!"
	testFullName = "Grace Hopper"
)

type browser struct {
	t      *testing.T
	client *http.Client
	base   string

	stub *apistub.Server
}

// startBrowser boots the full stack and returns a cookie-carrying client.
func startBrowser(t *testing.T) *browser {
	t.Helper()

	stub := apistub.New()
	t.Cleanup(stub.Close)

	sessions, err := session.NewManager([]byte("e2e-secret-0123456789abcdef01234567"), false)
	require.NoError(t, err)

	api := apiclient.New(stub.URL())
	router := webhttp.NewRouter(sessions, slogx.New(slogx.Config{
		Service: "web",
		Version: "e2e",
		Level:   "error",
		Format:  "text",
	}), "e2e")
	router.AuthService = &service.AuthService{API: api}
	router.ProfileService = &service.ProfileService{API: api}
	router.RequestTimeout = 5 * time.Second
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &browser{
		t:      t,
		client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		base:   server.URL,
		stub:   stub,
	}
}

// get fetches a page, following redirects, and returns the final URL path
// and rendered body.
func (b *browser) get(path string) (string, string) {
	b.t.Helper()

	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.Request.URL.Path, string(body)
}

// submit posts a form, following the redirect chain like a browser would.
func (b *browser) submit(path string, form url.Values) (string, string) {
	b.t.Helper()

	resp, err := b.client.Post(
		b.base+path,
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.Request.URL.Path, string(body)
}
