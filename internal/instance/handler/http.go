// Package handler exposes tenant-scoped instance endpoints. Every route here
// runs behind tenant resolution; rbac narrows what each role may read.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	auditdomain "veo-auth-service/internal/audit/domain"
	instancedomain "veo-auth-service/internal/instance/domain"
	membershipdomain "veo-auth-service/internal/membership/domain"
	"veo-auth-service/internal/platform/rbac"
	"veo-auth-service/internal/server/respond"
	userdomain "veo-auth-service/internal/user/domain"
)

// InstanceRepo is the instance access the handler needs.
type InstanceRepo interface {
	GetByID(ctx context.Context, id string) (*instancedomain.Instance, error)
}

// MembershipRepo is the membership access the handler needs.
type MembershipRepo interface {
	ListByInstance(ctx context.Context, instanceID string) ([]*membershipdomain.Membership, error)
}

// UserRepo resolves member user records for display.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// AuditRepo is the audit access the handler needs.
type AuditRepo interface {
	ListByInstance(ctx context.Context, instanceID string, limit, offset int32) ([]*auditdomain.AuditLog, error)
}

// Handler serves the /instance endpoints.
type Handler struct {
	instances   InstanceRepo
	memberships MembershipRepo
	users       UserRepo
	audits      AuditRepo
	logger      *slog.Logger
}

// NewHandler returns an instance Handler.
func NewHandler(instances InstanceRepo, memberships MembershipRepo, users UserRepo, audits AuditRepo, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{instances: instances, memberships: memberships, users: users, audits: audits, logger: logger}
}

// Get handles GET /instance: the resolved tenant's own record.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := rbac.RequireInstanceMember(r.Context())
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	inst, err := h.instances.GetByID(r.Context(), t.InstanceID)
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	if inst == nil {
		respond.Error(w, http.StatusNotFound, "instance not found")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"id":         inst.ID,
		"name":       inst.Name,
		"slug":       inst.Slug,
		"status":     inst.Status,
		"created_at": inst.CreatedAt,
		"role":       t.Role,
	})
}

type memberResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ListMembers handles GET /instance/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	t, err := rbac.RequireInstanceMember(r.Context())
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	members, err := h.memberships.ListByInstance(r.Context(), t.InstanceID)
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		entry := memberResponse{UserID: m.UserID, Role: string(m.Role), CreatedAt: m.CreatedAt}
		if u, err := h.users.GetByID(r.Context(), m.UserID); err == nil && u != nil {
			entry.Email = u.Email
			entry.Name = u.Name
		}
		out = append(out, entry)
	}
	respond.JSON(w, http.StatusOK, map[string]any{"members": out})
}

type auditLogResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Metadata  string    `json:"metadata,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAuditLogs handles GET /instance/audit-logs. Admin only.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	t, err := rbac.RequireInstanceAdmin(r.Context())
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	limit := queryInt32(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := queryInt32(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	logs, err := h.audits.ListByInstance(r.Context(), t.InstanceID, limit, offset)
	if err != nil {
		respond.ServiceError(w, h.logger, err)
		return
	}
	out := make([]auditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditLogResponse{
			ID:        l.ID,
			UserID:    l.UserID,
			Action:    l.Action,
			Resource:  l.Resource,
			Metadata:  l.Metadata,
			IPAddress: l.IP,
			CreatedAt: l.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"audit_logs": out, "limit": limit, "offset": offset})
}

func queryInt32(r *http.Request, name string, fallback int32) int32 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(n)
}
