package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/noteverse/internal/db"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/dberrors"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

// PasswordResetTokenRepository keeps single-use reset links by digest
type PasswordResetTokenRepository struct {
	db  db.Querier
	now func() time.Time
}

// NewPasswordResetTokenRepository creates a new PasswordResetTokenRepository
func NewPasswordResetTokenRepository(pool db.Querier) *PasswordResetTokenRepository {
	return &PasswordResetTokenRepository{db: pool, now: time.Now}
}

// Issue stores a reset token for userID
func (r *PasswordResetTokenRepository) Issue(ctx context.Context, userID int64, raw string, expiresAt time.Time) error {
	const query = `
		INSERT INTO password_reset_tokens (user_id, token_hash, expiry_date)
		VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, userID, hashToken(raw), expiresAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error creating password reset token")
		return fmt.Errorf("error creating password reset token: %w", err)
	}
	return nil
}

// Consume marks an unexpired token used and returns its owner. A token that
// was already used reports ErrPasswordResetTokenUsed; unknown or expired
// tokens report ErrInvalidPasswordResetToken.
func (r *PasswordResetTokenRepository) Consume(ctx context.Context, raw string) (int64, error) {
	const query = `
		UPDATE password_reset_tokens
		SET used = true
		WHERE token_hash = $1 AND used = false AND expiry_date > $2
		RETURNING user_id`

	digest := hashToken(raw)
	var userID int64
	err := r.db.QueryRow(ctx, query, digest, r.now()).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Error().Err(err).Msg("Error consuming password reset token")
		return 0, fmt.Errorf("error consuming password reset token: %w", err)
	}

	var used bool
	err = r.db.QueryRow(ctx, `SELECT used FROM password_reset_tokens WHERE token_hash = $1`, digest).Scan(&used)
	switch {
	case err == nil && used:
		return 0, apperrors.ErrPasswordResetTokenUsed
	case err == nil || errors.Is(err, pgx.ErrNoRows):
		return 0, apperrors.ErrInvalidPasswordResetToken
	default:
		return 0, fmt.Errorf("error retrieving password reset token: %w", err)
	}
}

// DeleteStale removes reset tokens that expired or were already used
func (r *PasswordResetTokenRepository) DeleteStale(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM password_reset_tokens WHERE expiry_date < $1 OR used = true`, r.now())
	if err != nil {
		return 0, fmt.Errorf("error deleting expired password reset tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
