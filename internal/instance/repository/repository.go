package repository

import (
	"context"

	"veo-auth-service/internal/instance/domain"
)

// Repository defines persistence for instances.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Instance, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Instance, error)
	Create(ctx context.Context, i *domain.Instance) error
	UpdateStatus(ctx context.Context, id string, status domain.InstanceStatus) error
}
