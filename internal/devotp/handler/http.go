// Package handler serves the dev-only OTP retrieval endpoint. The route is
// only mounted when dev OTP mode is enabled, which config refuses in
// production.
package handler

import (
	"net/http"

	"veo-auth-service/internal/devotp"
	"veo-auth-service/internal/server/respond"
)

// Handler serves GET /dev/auth/otp.
type Handler struct {
	store devotp.Store
}

// NewHandler returns a dev OTP Handler over the given store.
func NewHandler(store devotp.Store) *Handler {
	return &Handler{store: store}
}

// GetOTP returns the plain code most recently issued for ?email=, so local
// development works without SMS or mail credentials.
func (h *Handler) GetOTP(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respond.Error(w, http.StatusBadRequest, "email query parameter required")
		return
	}
	code, ok := h.store.Get(r.Context(), email)
	if !ok {
		respond.Error(w, http.StatusNotFound, "no pending code for email")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"email": email, "code": code})
}
