// Package tenant carries the resolved tenant through a request's context and
// defines the typed failures of tenant resolution.
package tenant

import (
	"context"
	"errors"

	"veo-auth-service/internal/membership/domain"
)

// Header is the request header naming the tenant for tenant-scoped endpoints.
const Header = "X-Instance-ID"

var (
	// ErrAuthentication covers absent, invalid, expired, and revoked credentials.
	// Externally indistinguishable on purpose.
	ErrAuthentication = errors.New("authentication required")
	// ErrTenantMissing is returned when the tenant header is absent.
	ErrTenantMissing = errors.New("instance header required")
	// ErrTenantMismatch covers both unknown instances and instances the caller
	// does not belong to. Externally indistinguishable on purpose.
	ErrTenantMismatch = errors.New("instance access denied")
	// ErrTenantSuspended is returned for suspended instances. Its external
	// shape matches ErrTenantMismatch so suspension is not enumerable.
	ErrTenantSuspended = errors.New("instance suspended")
)

// Tenant is the immutable per-request tenant context attached after successful
// resolution. Handlers receive it by value and cannot affect other requests.
type Tenant struct {
	InstanceID string
	Slug       string
	Role       domain.Role
}

type tenantKey struct{}

// NewContext returns a copy of ctx carrying the resolved tenant.
func NewContext(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// FromContext returns the tenant attached to ctx, if any.
func FromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(Tenant)
	return t, ok
}
