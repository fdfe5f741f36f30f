package domain

import "time"

// Session represents a user session created at login.
type Session struct {
	ID               string
	UserID           string
	RefreshJti       string // current refresh token jti for rotation
	RefreshTokenHash string // SHA-256 hash of current refresh token
	IPAddress        string
	UserAgent        string
	DeviceType       string
	CreatedAt        time.Time
	LastSeenAt       *time.Time // nil until first refresh
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
}

// Active reports whether the session is usable at the given time.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
