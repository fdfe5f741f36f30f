package repository

import (
	"context"
	"database/sql"
	"errors"

	"veo-auth-service/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const membershipColumns = `id, user_id, instance_id, role, created_at`

// GetByUserAndInstance returns the membership linking user and instance, or nil if none exists.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUserAndInstance(ctx context.Context, userID, instanceID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM instance_memberships WHERE user_id = $1 AND instance_id = $2`,
		userID, instanceID)
	var m domain.Membership
	var role string
	err := row.Scan(&m.ID, &m.UserID, &m.InstanceID, &role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}

// ListByUser returns all memberships for the given user.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+membershipColumns+` FROM instance_memberships WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// ListByInstance returns all memberships for the given instance.
func (r *PostgresRepository) ListByInstance(ctx context.Context, instanceID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+membershipColumns+` FROM instance_memberships WHERE instance_id = $1 ORDER BY created_at`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// Create persists the membership to the database. The membership must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instance_memberships (id, user_id, instance_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.UserID, m.InstanceID, string(m.Role), m.CreatedAt)
	return err
}

// Delete removes the membership with the given id. Missing rows are not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM instance_memberships WHERE id = $1`, id)
	return err
}

func scanMemberships(rows *sql.Rows) ([]*domain.Membership, error) {
	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &m.InstanceID, &role, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		out = append(out, &m)
	}
	return out, rows.Err()
}
