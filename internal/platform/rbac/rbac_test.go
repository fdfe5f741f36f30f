package rbac

import (
	"context"
	"errors"
	"testing"

	"veo-auth-service/internal/membership/domain"
	"veo-auth-service/internal/tenant"
)

func ctxWithRole(role domain.Role) context.Context {
	return tenant.NewContext(context.Background(), tenant.Tenant{
		InstanceID: "inst-1",
		Slug:       "cafe-aurora",
		Role:       role,
	})
}

func TestRequireInstanceMember_AnyRole(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleManager, domain.RoleStaff} {
		got, err := RequireInstanceMember(ctxWithRole(role))
		if err != nil {
			t.Errorf("role %s: %v", role, err)
		}
		if got.InstanceID != "inst-1" {
			t.Errorf("role %s: tenant = %+v", role, got)
		}
	}
}

func TestRequireInstanceMember_NoTenant(t *testing.T) {
	_, err := RequireInstanceMember(context.Background())
	if !errors.Is(err, tenant.ErrAuthentication) {
		t.Errorf("err = %v, want ErrAuthentication", err)
	}
}

func TestRequireInstanceAdmin(t *testing.T) {
	cases := []struct {
		role    domain.Role
		wantErr error
	}{
		{domain.RoleOwner, nil},
		{domain.RoleAdmin, nil},
		{domain.RoleManager, ErrAdminRequired},
		{domain.RoleStaff, ErrAdminRequired},
	}
	for _, tc := range cases {
		_, err := RequireInstanceAdmin(ctxWithRole(tc.role))
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("role %s: err = %v, want %v", tc.role, err, tc.wantErr)
		}
	}
}

func TestRequireInstanceAdmin_NoTenant(t *testing.T) {
	_, err := RequireInstanceAdmin(context.Background())
	if !errors.Is(err, tenant.ErrAuthentication) {
		t.Errorf("err = %v, want ErrAuthentication", err)
	}
}
