package domain

import "time"

// MagicLink is a single-use login credential delivered by email. Only the
// SHA-256 hash of the token is stored; the raw token appears once in the email.
type MagicLink struct {
	ID           string
	UserID       string
	TokenHash    string
	IPAddress    string
	UserAgent    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	ConsumedAt   *time.Time // nil until consumed; a link is consumable exactly once
	SupersededAt *time.Time // nil unless invalidated by a later request (policy-dependent)
}

// Consumable reports whether the link can still log a user in at the given time.
func (l *MagicLink) Consumable(now time.Time) bool {
	return l.ConsumedAt == nil && l.SupersededAt == nil && now.Before(l.ExpiresAt)
}
