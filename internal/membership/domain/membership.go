package domain

import (
	"time"
)

// Membership links a user to an instance with a role.
type Membership struct {
	ID         string
	UserID     string
	InstanceID string
	Role       Role
	CreatedAt  time.Time
}

type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// Administrative reports whether the role may manage instance settings and members.
func (r Role) Administrative() bool {
	return r == RoleOwner || r == RoleAdmin
}
