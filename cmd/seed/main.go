// seed inserts development sample data for local testing. Run via go run ./cmd/seed.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"veo-auth-service/internal/config"
	"veo-auth-service/internal/db"
	instancedomain "veo-auth-service/internal/instance/domain"
	instancerepo "veo-auth-service/internal/instance/repository"
	membershipdomain "veo-auth-service/internal/membership/domain"
	membershiprepo "veo-auth-service/internal/membership/repository"
	"veo-auth-service/internal/tenant"
	userdomain "veo-auth-service/internal/user/domain"
	userrepo "veo-auth-service/internal/user/repository"
)

const (
	devUserEmail      = "dev@example.com"
	devUserID         = "dev-user-001"
	devUser2ID        = "dev-user-002"
	devInstanceID     = "dev-instance-001"
	devInstance2ID    = "dev-instance-002"
	devMembershipID   = "dev-membership-001"
	devMembership2ID  = "dev-membership-002"
	devMembership3ID  = "dev-membership-003"
	staffEmail       = "staff@example.com"
	devInstanceSlug  = "acme-dev"
	devInstance2Slug = "dorm-suspended"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	instances := instancerepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	now := time.Now().UTC()

	for _, u := range []*userdomain.User{
		{ID: devUserID, Email: devUserEmail, Name: "Dev User", Phone: "15550000001", Locale: "en", Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now},
		{ID: devUser2ID, Email: staffEmail, Name: "Staff User", Phone: "15550000002", Locale: "en", Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now},
	} {
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	for _, i := range []*instancedomain.Instance{
		{ID: devInstanceID, Name: "Acme Dev", Slug: devInstanceSlug, Status: instancedomain.InstanceStatusActive, CreatedAt: now},
		{ID: devInstance2ID, Name: "Dorm (suspended)", Slug: devInstance2Slug, Status: instancedomain.InstanceStatusSuspended, CreatedAt: now},
	} {
		if err := instances.Create(ctx, i); err != nil {
			log.Fatalf("create instance %s: %v", i.Slug, err)
		}
	}

	for _, m := range []*membershipdomain.Membership{
		{ID: devMembershipID, UserID: devUserID, InstanceID: devInstanceID, Role: membershipdomain.RoleOwner, CreatedAt: now},
		{ID: devMembership2ID, UserID: devUser2ID, InstanceID: devInstanceID, Role: membershipdomain.RoleStaff, CreatedAt: now},
		{ID: devMembership3ID, UserID: devUserID, InstanceID: devInstance2ID, Role: membershipdomain.RoleOwner, CreatedAt: now},
	} {
		if err := memberships.Create(ctx, m); err != nil {
			log.Fatalf("create membership %s: %v", m.ID, err)
		}
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev accounts: %s (owner), %s (staff)\n", devUserEmail, staffEmail)
	fmt.Printf("Tenant header: %s: %s (active) or %s (suspended)\n", tenant.Header, devInstanceID, devInstance2ID)
	fmt.Println("Sign in via POST /auth/request-magic-link, or register with POST /auth/register.")
}
