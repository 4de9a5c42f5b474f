// Package http renders the pages and handles the form submissions of the
// account web front-end. All durable account state lives behind the remote
// API; the only state this layer touches is the encrypted session cookie.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quidfin/web/internal/web/service"
	"github.com/quidfin/web/internal/web/session"
	"github.com/quidfin/web/internal/web/store"
	"github.com/quidfin/web/pkg/httpx"
	"github.com/quidfin/web/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	sessions     *session.Manager
	logger       *slog.Logger
	buildVersion string
	startTime    time.Time

	AuthService    *service.AuthService
	ProfileService *service.ProfileService
	CSPReports     *store.CSPReports

	// RequestTimeout bounds each upstream call made on behalf of a request.
	RequestTimeout time.Duration
}

func NewRouter(sessions *session.Manager, logger *slog.Logger, buildVersion string) *Router {
	rt := &Router{
		Mux:          http.NewServeMux(),
		sessions:     sessions,
		logger:       logger,
		buildVersion: buildVersion,
		startTime:    time.Now(),
	}

	// Order matters: logging wraps everything, headers apply to redirects
	// too, and the guard needs the logger in context.
	rt.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(rt.logger),
		SecurityHeaders,
		Guard(rt.sessions),
	}

	return rt
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rt.handler.ServeHTTP(w, req)
}

func (rt *Router) ApplyRoutes() {
	rt.registerAuth()
	rt.registerPages()
	rt.registerProfile()
	rt.registerSystem()

	rt.handler = httpx.Chain(rt.Mux, rt.middlewares...)
}

func (rt *Router) registerAuth() {
	rt.Mux.Handle("GET /login",
		httpx.Chain(http.HandlerFunc(rt.handleLoginPage),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Keyed by IP plus submitted address so one IP can't hammer many
	// accounts and one account can't be hammered from many forms.
	rt.Mux.Handle("POST /login",
		httpx.Chain(http.HandlerFunc(rt.handleLogin),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)

	// OTP codes are 6 digits; brute force is only stopped by the limiter.
	rt.Mux.Handle("POST /login/otp",
		httpx.Chain(http.HandlerFunc(rt.handleVerifyOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	rt.Mux.Handle("GET /signup",
		httpx.Chain(http.HandlerFunc(rt.handleSignupPage),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	rt.Mux.Handle("POST /signup",
		httpx.Chain(http.HandlerFunc(rt.handleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	rt.Mux.HandleFunc("POST /logout", rt.handleLogout)
}

func (rt *Router) registerPages() {
	rt.Mux.HandleFunc("GET /{$}", rt.handleHome)
	rt.Mux.HandleFunc("GET /dashboard", rt.handleDashboard)
	rt.Mux.HandleFunc("GET /dashboard/settings", rt.handleSettings)
}

func (rt *Router) registerProfile() {
	rt.Mux.HandleFunc("GET /dashboard/profile", rt.handleProfilePage)

	rt.Mux.Handle("POST /dashboard/profile",
		httpx.Chain(http.HandlerFunc(rt.handleProfileUpdate),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	rt.Mux.Handle("POST /dashboard/profile/password",
		httpx.Chain(http.HandlerFunc(rt.handleChangePassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	rt.Mux.Handle("POST /dashboard/profile/mfa",
		httpx.Chain(http.HandlerFunc(rt.handleEnableMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	rt.Mux.HandleFunc("GET /dashboard/profile/mfa/qr", rt.handleMFAQR)
}

func (rt *Router) registerSystem() {
	rt.Mux.Handle("POST "+CSPReportPath,
		httpx.Chain(http.HandlerFunc(rt.handleCSPReport),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	rt.Mux.HandleFunc("GET /livez", rt.handleLivez)
}

func (rt *Router) handleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"uptime":  time.Since(rt.startTime).String(),
		"version": rt.buildVersion,
	})
}
