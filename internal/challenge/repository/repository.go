package repository

import (
	"context"
	"time"

	"veo-auth-service/internal/challenge/domain"
	userdomain "veo-auth-service/internal/user/domain"
)

// ResolveFunc inspects and mutates the pending challenge under exclusive
// access. Returning a non-nil user asks the repository to create that user in
// the same transaction that persists the challenge mutation. Returning an
// error aborts the transaction, discarding the mutation.
type ResolveFunc func(c *domain.Challenge) (*userdomain.User, error)

// Repository defines persistence for registration challenges.
type Repository interface {
	// GetPending returns the pending challenge for the email/phone pair,
	// or nil if none exists.
	GetPending(ctx context.Context, email, phone string) (*domain.Challenge, error)
	// Replace supersedes any pending challenge for c's email/phone pair and
	// persists c, atomically.
	Replace(ctx context.Context, c *domain.Challenge) error
	// Resolve locks the pending challenge for the email/phone pair, runs fn,
	// and persists the resulting challenge state (and user, if fn returns one)
	// in a single transaction. Returns (nil, nil) when no pending challenge exists.
	Resolve(ctx context.Context, email, phone string, fn ResolveFunc) (*domain.Challenge, error)
	// PurgeExpired deletes unverified challenges that expired before the cutoff.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
