// Package respond writes JSON responses and maps service errors to HTTP
// statuses. Every handler goes through this package so the error surface
// stays uniform across endpoints.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	authservice "veo-auth-service/internal/auth/service"
	"veo-auth-service/internal/platform/rbac"
	"veo-auth-service/internal/ratelimit"
	"veo-auth-service/internal/tenant"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error             string `json:"error"`
	Field             string `json:"field,omitempty"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error body with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// ServiceError maps a service-layer error to its HTTP status and writes it.
//
// Mismatch and suspension produce identical 403 bodies so callers cannot
// enumerate instances or probe their status. Unexpected errors become a
// generic 500; the detail goes to the log, never to the client.
func ServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *authservice.ValidationError
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, ErrorBody{Error: verr.Reason, Field: verr.Field})
		return
	}
	var merr *authservice.CodeMismatchError
	if errors.As(err, &merr) {
		remaining := merr.Remaining
		JSON(w, http.StatusBadRequest, ErrorBody{Error: "incorrect code", AttemptsRemaining: &remaining})
		return
	}

	switch {
	case errors.Is(err, authservice.ErrDuplicateRegistration):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, authservice.ErrChallengeExpired),
		errors.Is(err, authservice.ErrChallengeExhausted),
		errors.Is(err, authservice.ErrMagicLinkExpired):
		Error(w, http.StatusGone, err.Error())
	case errors.Is(err, authservice.ErrInvalidMagicLink),
		errors.Is(err, authservice.ErrInvalidRefreshToken),
		errors.Is(err, authservice.ErrRefreshTokenReuse),
		errors.Is(err, tenant.ErrAuthentication):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authservice.ErrChallengeNotFound),
		errors.Is(err, authservice.ErrSessionNotFound),
		errors.Is(err, authservice.ErrUserNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tenant.ErrTenantMissing):
		Error(w, http.StatusBadRequest, tenant.Header+" header required")
	case errors.Is(err, tenant.ErrTenantMismatch),
		errors.Is(err, tenant.ErrTenantSuspended),
		errors.Is(err, rbac.ErrAdminRequired):
		// Identical body for every 403 cause.
		Error(w, http.StatusForbidden, "access denied")
	case errors.Is(err, ratelimit.ErrRateLimited):
		Error(w, http.StatusTooManyRequests, "too many requests, retry later")
	default:
		if logger != nil {
			logger.Error("request failed", slog.String("error", err.Error()))
		}
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &authservice.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return nil
}
