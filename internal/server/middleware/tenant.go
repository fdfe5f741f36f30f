package middleware

import (
	"context"
	"net/http"

	"veo-auth-service/internal/audit"
	instancedomain "veo-auth-service/internal/instance/domain"
	membershipdomain "veo-auth-service/internal/membership/domain"
	"veo-auth-service/internal/server/respond"
	"veo-auth-service/internal/tenant"
)

// InstanceLookup is the instance access the resolver needs.
type InstanceLookup interface {
	GetByID(ctx context.Context, id string) (*instancedomain.Instance, error)
}

// MembershipLookup is the membership access the resolver needs.
type MembershipLookup interface {
	GetByUserAndInstance(ctx context.Context, userID, instanceID string) (*membershipdomain.Membership, error)
}

// TenantResolver turns the X-Instance-ID header into a verified tenant
// context. It runs after Auth.Require: a request without identity is
// rejected before the header is even read.
type TenantResolver struct {
	instances   InstanceLookup
	memberships MembershipLookup
	auditLog    audit.AuditLogger
}

// NewTenantResolver returns the tenant-resolution middleware.
// auditLog may be nil to disable rejection auditing.
func NewTenantResolver(instances InstanceLookup, memberships MembershipLookup, auditLog audit.AuditLogger) *TenantResolver {
	return &TenantResolver{instances: instances, memberships: memberships, auditLog: auditLog}
}

// Resolve wraps next so it only runs with a resolved tenant in context.
// Unknown instances and instances the caller does not belong to get the
// same response; suspension too, so instance state is not enumerable.
func (t *TenantResolver) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, ok := GetUserID(ctx)
		if !ok || userID == "" {
			respond.ServiceError(w, nil, tenant.ErrAuthentication)
			return
		}
		instanceID := r.Header.Get(tenant.Header)
		if instanceID == "" {
			respond.ServiceError(w, nil, tenant.ErrTenantMissing)
			return
		}

		inst, err := t.instances.GetByID(ctx, instanceID)
		if err != nil {
			respond.ServiceError(w, nil, err)
			return
		}
		if inst == nil {
			t.reject(ctx, userID, instanceID)
			respond.ServiceError(w, nil, tenant.ErrTenantMismatch)
			return
		}
		member, err := t.memberships.GetByUserAndInstance(ctx, userID, inst.ID)
		if err != nil {
			respond.ServiceError(w, nil, err)
			return
		}
		if member == nil {
			t.reject(ctx, userID, instanceID)
			respond.ServiceError(w, nil, tenant.ErrTenantMismatch)
			return
		}
		if !inst.Serviceable() {
			t.reject(ctx, userID, instanceID)
			respond.ServiceError(w, nil, tenant.ErrTenantSuspended)
			return
		}

		ctx = tenant.NewContext(ctx, tenant.Tenant{
			InstanceID: inst.ID,
			Slug:       inst.Slug,
			Role:       member.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (t *TenantResolver) reject(ctx context.Context, userID, instanceID string) {
	if t.auditLog == nil {
		return
	}
	t.auditLog.LogEventAsync(ctx, audit.SentinelInstanceID, userID, audit.ActionTenantRejected, audit.ResourceInstance, instanceID)
}
