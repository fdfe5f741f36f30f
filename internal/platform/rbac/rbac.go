// Package rbac provides role checks over the resolved tenant context.
package rbac

import (
	"context"
	"errors"

	"veo-auth-service/internal/tenant"
)

// ErrAdminRequired is returned when the caller's role is below admin.
var ErrAdminRequired = errors.New("instance admin or owner required")

// RequireInstanceMember ensures the request carries a resolved tenant (any role).
// Returns the tenant on success; tenant.ErrAuthentication when resolution never ran.
func RequireInstanceMember(ctx context.Context) (tenant.Tenant, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok || t.InstanceID == "" {
		return tenant.Tenant{}, tenant.ErrAuthentication
	}
	return t, nil
}

// RequireInstanceAdmin ensures the caller holds role owner or admin in the
// resolved tenant. Returns the tenant on success.
func RequireInstanceAdmin(ctx context.Context) (tenant.Tenant, error) {
	t, err := RequireInstanceMember(ctx)
	if err != nil {
		return tenant.Tenant{}, err
	}
	if !t.Role.Administrative() {
		return tenant.Tenant{}, ErrAdminRequired
	}
	return t, nil
}
