package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authhandler "veo-auth-service/internal/auth/handler"
	"veo-auth-service/internal/auth/service"
	"veo-auth-service/internal/devotp"
	devotphandler "veo-auth-service/internal/devotp/handler"
	healthhandler "veo-auth-service/internal/health/handler"
	instancehandler "veo-auth-service/internal/instance/handler"
	"veo-auth-service/internal/security"
	"veo-auth-service/internal/server/middleware"
	sessiondomain "veo-auth-service/internal/session/domain"
	userdomain "veo-auth-service/internal/user/domain"
)

// noopService satisfies the auth handler's service interface for routing tests.
type noopService struct{}

func (noopService) Register(context.Context, string, string, string, string, string, service.Meta) (*service.RegistrationResult, error) {
	return &service.RegistrationResult{ExpiresAt: time.Now().UTC()}, nil
}

func (noopService) ResendOTP(context.Context, string, string, service.Meta) (*service.RegistrationResult, error) {
	return &service.RegistrationResult{ExpiresAt: time.Now().UTC()}, nil
}

func (noopService) VerifyOTP(context.Context, string, string, string, service.Meta) (*service.AuthResult, error) {
	return &service.AuthResult{}, nil
}

func (noopService) RequestMagicLink(context.Context, string, service.Meta) error { return nil }

func (noopService) VerifyMagicLink(context.Context, string, service.Meta) (*service.AuthResult, error) {
	return &service.AuthResult{}, nil
}

func (noopService) Refresh(context.Context, string) (*service.AuthResult, error) {
	return &service.AuthResult{}, nil
}

func (noopService) Logout(context.Context, string, string) error { return nil }

func (noopService) ListSessions(context.Context, string) ([]*sessiondomain.Session, error) {
	return nil, nil
}

func (noopService) RevokeSession(context.Context, string, string) error { return nil }

func (noopService) GetUser(context.Context, string) (*userdomain.User, error) {
	return &userdomain.User{}, nil
}

func newTestRouter(t *testing.T, dev *devotphandler.Handler) http.Handler {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(Deps{
		Auth:     authhandler.NewHandler(noopService{}, nil),
		Instance: instancehandler.NewHandler(nil, nil, nil, nil, nil),
		Health:   healthhandler.NewHandler(nil),
		DevOTP:   dev,
		AuthMW:   middleware.NewAuth(tokens, nil),
		TenantMW: middleware.NewTenantResolver(nil, nil, nil),
	})
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: status = %d, want 404", rec.Code)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, target := range []string{"/auth/me", "/auth/sessions", "/instance", "/instance/members", "/instance/audit-logs"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", target, rec.Code)
		}
	}
}

func TestRouter_DevRouteOnlyWhenEnabled(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dev/auth/otp?email=a@b.co", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled dev route: status = %d, want 404", rec.Code)
	}

	store := devotp.NewMemoryStore()
	store.Put(context.Background(), "a@b.co", "123456", time.Now().UTC().Add(10*time.Minute))
	router = newTestRouter(t, devotphandler.NewHandler(store))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dev/auth/otp?email=a@b.co", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("enabled dev route: status = %d, want 200", rec.Code)
	}
}

func TestRouter_RequestIDOnResponses(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("responses should carry X-Request-ID")
	}
}
