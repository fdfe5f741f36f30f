package domain

import (
	"errors"
	"time"
)

// User is the core user entity. Users authenticate passwordlessly; PasswordHash
// is populated only for accounts migrated from the legacy password flow.
type User struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	Locale       string // BCP 47 tag used for notification templates; defaults to "en"
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Locale == "" {
		u.Locale = "en"
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
