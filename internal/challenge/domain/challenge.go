package domain

import (
	"time"

	"veo-auth-service/internal/otp"
)

// Challenge is a pending registration verification: a hashed 6-digit code
// delivered over SMS and email, bound to an email/phone pair.
type Challenge struct {
	ID           string
	Email        string
	Phone        string
	Name         string // profile captured at registration, applied when the account is created
	Locale       string
	PasswordHash string
	CodeHash     string
	Attempts     int
	MaxAttempts  int
	IPAddress    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	VerifiedAt   *time.Time // nil until successfully verified
	SupersededAt *time.Time // nil unless replaced by a resend
	UserID       string     // set when verification creates the account
}

// Outcome is the result of presenting a code against a challenge.
type Outcome int

const (
	// OutcomeVerified marks the challenge verified; the caller creates the account.
	OutcomeVerified Outcome = iota
	// OutcomeCodeMismatch consumed one attempt; the challenge stays pending
	// unless attempts are now exhausted.
	OutcomeCodeMismatch
	// OutcomeExpired means the challenge TTL elapsed before a correct code arrived.
	OutcomeExpired
	// OutcomeExhausted means the attempt limit was reached on an earlier presentation.
	OutcomeExhausted
)

// Pending reports whether the challenge can still accept a code presentation.
func (c *Challenge) Pending() bool {
	return c.VerifiedAt == nil && c.SupersededAt == nil
}

// Remaining returns the number of attempts left before exhaustion.
func (c *Challenge) Remaining() int {
	n := c.MaxAttempts - c.Attempts
	if n < 0 {
		return 0
	}
	return n
}

// Present applies one code presentation at the given time and mutates the
// challenge accordingly. Expiry is checked before the code is compared, so a
// correct code against an expired challenge still returns OutcomeExpired.
// A wrong code consumes one attempt; a correct code after exhaustion does not
// verify. Callers must hold the challenge exclusively (row lock or mutex)
// while calling Present and persisting the mutation.
func (c *Challenge) Present(code string, now time.Time) Outcome {
	if !now.Before(c.ExpiresAt) {
		return OutcomeExpired
	}
	if c.Attempts >= c.MaxAttempts {
		return OutcomeExhausted
	}
	if !otp.Equal(code, c.CodeHash) {
		c.Attempts++
		return OutcomeCodeMismatch
	}
	at := now
	c.VerifiedAt = &at
	return OutcomeVerified
}
