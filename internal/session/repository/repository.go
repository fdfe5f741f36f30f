package repository

import (
	"context"
	"time"

	"veo-auth-service/internal/session/domain"
)

// Repository defines persistence for user sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByUser(ctx context.Context, userID string) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	// UpdateRefreshToken sets the session's current refresh token jti and hash for rotation.
	UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error
	// PurgeDead deletes sessions that expired or were revoked before the cutoff.
	PurgeDead(ctx context.Context, before time.Time) (int64, error)
}
