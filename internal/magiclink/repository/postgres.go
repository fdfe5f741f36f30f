package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"veo-auth-service/internal/magiclink/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a magic-link repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const linkColumns = `id, user_id, token_hash, ip, user_agent, issued_at, expires_at, consumed_at, superseded_at`

// Create persists the link to the database. The link must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, l *domain.MagicLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO magic_links (id, user_id, token_hash, ip, user_agent, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.UserID, l.TokenHash, l.IPAddress, l.UserAgent, l.IssuedAt, l.ExpiresAt)
	return err
}

// Consume marks the link consumed in a single conditional update, so a link is
// consumable exactly once even under concurrent presentations. Returns (nil, nil)
// when no consumable link matches the hash.
func (r *PostgresRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicLink, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE magic_links SET consumed_at = $2
		WHERE token_hash = $1 AND consumed_at IS NULL AND superseded_at IS NULL AND expires_at > $2
		RETURNING `+linkColumns, tokenHash, now)
	return scanLink(row)
}

// GetByTokenHash returns the link for the hash regardless of state, or nil if unknown.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.MagicLink, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM magic_links WHERE token_hash = $1`, tokenHash)
	return scanLink(row)
}

// SupersedeActiveByUser invalidates the user's unconsumed links.
func (r *PostgresRepository) SupersedeActiveByUser(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE magic_links SET superseded_at = $2
		WHERE user_id = $1 AND consumed_at IS NULL AND superseded_at IS NULL`,
		userID, at)
	return err
}

// PurgeExpired deletes links that expired before the cutoff.
func (r *PostgresRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM magic_links WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanLink(row *sql.Row) (*domain.MagicLink, error) {
	var l domain.MagicLink
	err := row.Scan(&l.ID, &l.UserID, &l.TokenHash, &l.IPAddress, &l.UserAgent,
		&l.IssuedAt, &l.ExpiresAt, &l.ConsumedAt, &l.SupersededAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
