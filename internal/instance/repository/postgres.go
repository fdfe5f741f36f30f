package repository

import (
	"context"
	"database/sql"
	"errors"

	"veo-auth-service/internal/instance/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an instance repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the instance for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Instance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, status, created_at FROM instances WHERE id = $1`, id)
	return scanInstance(row)
}

// GetBySlug returns the instance with the given slug, or nil if not found.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*domain.Instance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, status, created_at FROM instances WHERE slug = $1`, slug)
	return scanInstance(row)
}

// Create persists the instance to the database. The instance must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Instance) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instances (id, name, slug, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		i.ID, i.Name, i.Slug, string(i.Status), i.CreatedAt)
	return err
}

// UpdateStatus sets the instance's subscription status. Missing rows are not an error.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.InstanceStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE instances SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

func scanInstance(row *sql.Row) (*domain.Instance, error) {
	var i domain.Instance
	var status string
	err := row.Scan(&i.ID, &i.Name, &i.Slug, &status, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Status = domain.InstanceStatus(status)
	return &i, nil
}
