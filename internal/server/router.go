// Package server assembles the HTTP router and owns the server lifecycle.
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "veo-auth-service/internal/auth/handler"
	devotphandler "veo-auth-service/internal/devotp/handler"
	healthhandler "veo-auth-service/internal/health/handler"
	instancehandler "veo-auth-service/internal/instance/handler"
	"veo-auth-service/internal/observability"
	"veo-auth-service/internal/server/middleware"
)

// Deps holds the handlers and middleware the router mounts.
type Deps struct {
	Auth     *authhandler.Handler
	Instance *instancehandler.Handler
	Health   *healthhandler.Handler
	// DevOTP is mounted only when non-nil (dev OTP mode; config refuses it in production).
	DevOTP *devotphandler.Handler

	AuthMW   *middleware.Auth
	TenantMW *middleware.TenantResolver
	Logger   *slog.Logger
}

// NewRouter builds the full route table.
//
// Route groups:
//   - public:        registration, OTP and magic-link verification, refresh
//   - authenticated: session listing and revocation (bearer token required)
//   - tenant-scoped: /instance endpoints (bearer token + X-Instance-ID)
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", deps.Auth.Register)
	mux.HandleFunc("POST /auth/verify-otp", deps.Auth.VerifyOTP)
	mux.HandleFunc("POST /auth/resend-otp", deps.Auth.ResendOTP)
	mux.HandleFunc("POST /auth/request-magic-link", deps.Auth.RequestMagicLink)
	mux.HandleFunc("POST /auth/verify-magic-link", deps.Auth.VerifyMagicLink)
	mux.HandleFunc("POST /auth/refresh", deps.Auth.Refresh)
	mux.Handle("POST /auth/logout", deps.AuthMW.Optional(http.HandlerFunc(deps.Auth.Logout)))

	mux.Handle("GET /auth/me", deps.AuthMW.Require(http.HandlerFunc(deps.Auth.Me)))
	mux.Handle("GET /auth/sessions", deps.AuthMW.Require(http.HandlerFunc(deps.Auth.ListSessions)))
	mux.Handle("DELETE /auth/sessions/{id}", deps.AuthMW.Require(http.HandlerFunc(deps.Auth.RevokeSession)))

	tenantScoped := func(h http.HandlerFunc) http.Handler {
		return deps.AuthMW.Require(deps.TenantMW.Resolve(h))
	}
	mux.Handle("GET /instance", tenantScoped(deps.Instance.Get))
	mux.Handle("GET /instance/members", tenantScoped(deps.Instance.ListMembers))
	mux.Handle("GET /instance/audit-logs", tenantScoped(deps.Instance.ListAuditLogs))

	mux.HandleFunc("GET /healthz", deps.Health.Check)
	mux.Handle("GET /metrics", promhttp.Handler())

	if deps.DevOTP != nil {
		mux.HandleFunc("GET /dev/auth/otp", deps.DevOTP.GetOTP)
	}

	var h http.Handler = mux
	h = observability.MetricsMiddleware(h)
	h = middleware.Logging(deps.Logger)(h)
	h = middleware.RealIP(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(deps.Logger)(h)
	return h
}
