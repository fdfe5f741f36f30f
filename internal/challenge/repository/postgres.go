package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"veo-auth-service/internal/challenge/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a challenge repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const challengeColumns = `id, email, phone, name, locale, password_hash, code_hash, attempts, max_attempts, ip, issued_at, expires_at, verified_at, superseded_at, user_id`

const pendingChallengeQuery = `
	SELECT ` + challengeColumns + `
	FROM otp_challenges
	WHERE email = $1 AND phone = $2 AND verified_at IS NULL AND superseded_at IS NULL
	ORDER BY issued_at DESC
	LIMIT 1`

// GetPending returns the pending challenge for the email/phone pair, or nil if none exists.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetPending(ctx context.Context, email, phone string) (*domain.Challenge, error) {
	return scanChallenge(r.db.QueryRowContext(ctx, pendingChallengeQuery, email, phone))
}

// Replace supersedes any pending challenge for c's email/phone pair and inserts c,
// in a single transaction.
func (r *PostgresRepository) Replace(ctx context.Context, c *domain.Challenge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE otp_challenges SET superseded_at = $3
		WHERE email = $1 AND phone = $2 AND verified_at IS NULL AND superseded_at IS NULL`,
		c.Email, c.Phone, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO otp_challenges (id, email, phone, name, locale, password_hash, code_hash, attempts, max_attempts, ip, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.Email, c.Phone, c.Name, c.Locale, c.PasswordHash, c.CodeHash,
		c.Attempts, c.MaxAttempts, c.IPAddress, c.IssuedAt, c.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// Resolve locks the pending challenge for the email/phone pair (SELECT ... FOR UPDATE),
// runs fn, and persists the challenge mutation (plus the new user when fn
// returns one) in the same transaction. Concurrent presentations against the same
// challenge serialize on the row lock. Returns (nil, nil) when no pending
// challenge exists.
func (r *PostgresRepository) Resolve(ctx context.Context, email, phone string, fn ResolveFunc) (*domain.Challenge, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	c, err := scanChallenge(tx.QueryRowContext(ctx, pendingChallengeQuery+` FOR UPDATE`, email, phone))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	u, err := fn(c)
	if err != nil {
		return nil, err
	}
	if u != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, name, phone, locale, password_hash, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			u.ID, u.Email, u.Name, u.Phone, u.Locale, u.PasswordHash, string(u.Status), u.CreatedAt, u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("create user with verified challenge: %w", err)
		}
		c.UserID = u.ID
	}

	var userID interface{}
	if c.UserID != "" {
		userID = c.UserID
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE otp_challenges SET attempts = $2, verified_at = $3, user_id = $4
		WHERE id = $1`,
		c.ID, c.Attempts, c.VerifiedAt, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

// PurgeExpired deletes unverified challenges that expired before the cutoff.
// Verified challenges are kept; their retention follows the owning user.
func (r *PostgresRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE verified_at IS NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChallenge(row rowScanner) (*domain.Challenge, error) {
	var c domain.Challenge
	var userID sql.NullString
	err := row.Scan(&c.ID, &c.Email, &c.Phone, &c.Name, &c.Locale, &c.PasswordHash,
		&c.CodeHash, &c.Attempts, &c.MaxAttempts,
		&c.IPAddress, &c.IssuedAt, &c.ExpiresAt, &c.VerifiedAt, &c.SupersededAt, &userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if userID.Valid {
		c.UserID = userID.String
	}
	return &c, nil
}
