package repository

import (
	"context"

	"veo-auth-service/internal/membership/domain"
)

// Repository defines persistence for instance memberships.
type Repository interface {
	GetByUserAndInstance(ctx context.Context, userID, instanceID string) (*domain.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error)
	ListByInstance(ctx context.Context, instanceID string) ([]*domain.Membership, error)
	Create(ctx context.Context, m *domain.Membership) error
	Delete(ctx context.Context, id string) error
}
