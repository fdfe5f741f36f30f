package repository

import (
	"context"
	"time"

	"veo-auth-service/internal/magiclink/domain"
)

// Repository defines persistence for magic links.
type Repository interface {
	Create(ctx context.Context, l *domain.MagicLink) error
	// Consume atomically marks the link with the given token hash consumed and
	// returns it. Returns (nil, nil) when no consumable link matches: unknown,
	// already consumed, superseded, or expired.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicLink, error)
	// GetByTokenHash returns the link regardless of state, or nil if unknown.
	// Used to distinguish expired links after a failed Consume.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.MagicLink, error)
	// SupersedeActiveByUser invalidates the user's unconsumed links.
	SupersedeActiveByUser(ctx context.Context, userID string, at time.Time) error
	// PurgeExpired deletes links that expired before the cutoff.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
