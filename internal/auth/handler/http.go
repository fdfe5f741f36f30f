// Package handler exposes the auth service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"veo-auth-service/internal/auth/service"
	"veo-auth-service/internal/observability"
	"veo-auth-service/internal/server/middleware"
	"veo-auth-service/internal/server/respond"
	sessiondomain "veo-auth-service/internal/session/domain"
	userdomain "veo-auth-service/internal/user/domain"
)

// Service is the auth surface the handler needs.
type Service interface {
	Register(ctx context.Context, email, phone, name, locale, password string, meta service.Meta) (*service.RegistrationResult, error)
	ResendOTP(ctx context.Context, email, phone string, meta service.Meta) (*service.RegistrationResult, error)
	VerifyOTP(ctx context.Context, email, phone, code string, meta service.Meta) (*service.AuthResult, error)
	RequestMagicLink(ctx context.Context, email string, meta service.Meta) error
	VerifyMagicLink(ctx context.Context, token string, meta service.Meta) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.AuthResult, error)
	Logout(ctx context.Context, refreshToken, sessionID string) error
	ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	GetUser(ctx context.Context, userID string) (*userdomain.User, error)
}

// Handler serves the /auth endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler returns an auth Handler.
func NewHandler(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func requestMeta(r *http.Request) service.Meta {
	return service.Meta{
		IP:         middleware.GetClientIP(r.Context()),
		UserAgent:  r.UserAgent(),
		DeviceType: r.Header.Get("X-Device-Type"),
	}
}

type registrationResponse struct {
	ChallengeExpiresAt time.Time `json:"challenge_expires_at"`
	Delivered          bool      `json:"delivered"`
	FailedChannels     []string  `json:"failed_channels,omitempty"`
}

func registrationBody(res *service.RegistrationResult) registrationResponse {
	return registrationResponse{
		ChallengeExpiresAt: res.ExpiresAt,
		Delivered:          res.Delivery.Delivered(),
		FailedChannels:     res.Delivery.Failed(),
	}
}

type userResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
}

func userBody(u *userdomain.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Locale: u.Locale}
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresAt    time.Time     `json:"expires_at"`
	UserID       string        `json:"user_id"`
	SessionID    string        `json:"session_id"`
	User         *userResponse `json:"user,omitempty"`
}

func tokenBody(res *service.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    res.ExpiresAt,
		UserID:       res.UserID,
		SessionID:    res.SessionID,
		User:         userBody(res.User),
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Name     string `json:"name"`
		Locale   string `json:"locale"`
		Password string `json:"password"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	res, err := h.svc.Register(r.Context(), req.Email, req.Phone, req.Name, req.Locale, req.Password, requestMeta(r))
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, registrationBody(res))
}

// ResendOTP handles POST /auth/resend-otp.
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	res, err := h.svc.ResendOTP(r.Context(), req.Email, req.Phone, requestMeta(r))
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, registrationBody(res))
}

// VerifyOTP handles POST /auth/verify-otp.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	res, err := h.svc.VerifyOTP(r.Context(), req.Email, req.Phone, req.Code, requestMeta(r))
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	observability.LoginsTotal.WithLabelValues("otp").Inc()
	respond.JSON(w, http.StatusOK, tokenBody(res))
}

// RequestMagicLink handles POST /auth/request-magic-link. The response is
// the same whether or not the address has an account.
func (h *Handler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	if err := h.svc.RequestMagicLink(r.Context(), req.Email, requestMeta(r)); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, map[string]string{
		"status": "if the address has an account, a login link is on its way",
	})
}

// VerifyMagicLink handles POST /auth/verify-magic-link.
func (h *Handler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	res, err := h.svc.VerifyMagicLink(r.Context(), req.Token, requestMeta(r))
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	observability.LoginsTotal.WithLabelValues("magic_link").Inc()
	respond.JSON(w, http.StatusOK, tokenBody(res))
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	observability.LoginsTotal.WithLabelValues("refresh").Inc()
	respond.JSON(w, http.StatusOK, tokenBody(res))
}

// Logout handles POST /auth/logout. Accepts a refresh token in the body,
// or revokes the authenticated session when the body is empty.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if r.ContentLength != 0 {
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.ServiceError(w, h.logger, err)
			return
		}
	}
	sessionID, _ := middleware.GetSessionID(r.Context())
	if err := h.svc.Logout(r.Context(), req.RefreshToken, sessionID); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	u, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, userBody(u))
}

type sessionResponse struct {
	ID         string     `json:"id"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	DeviceType string     `json:"device_type,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Current    bool       `json:"current"`
}

// ListSessions handles GET /auth/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	current, _ := middleware.GetSessionID(r.Context())
	sessions, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			DeviceType: s.DeviceType,
			CreatedAt:  s.CreatedAt,
			LastSeenAt: s.LastSeenAt,
			ExpiresAt:  s.ExpiresAt,
			Current:    s.ID == current,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// RevokeSession handles DELETE /auth/sessions/{id}.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	if err := h.svc.RevokeSession(r.Context(), userID, r.PathValue("id")); err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
