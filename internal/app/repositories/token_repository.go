package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/noteverse/internal/db"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/dberrors"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

// revokedRetention is how long revoked refresh tokens are kept before cleanup.
const revokedRetention = 30 * 24 * time.Hour

// hashToken is the stored form of an opaque token (hex sha256)
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TokenRepository stores refresh tokens by digest
type TokenRepository struct {
	db  db.Querier
	sb  squirrel.StatementBuilderType
	now func() time.Time
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(pool db.Querier) *TokenRepository {
	return &TokenRepository{
		db:  pool,
		sb:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now: time.Now,
	}
}

// Store persists a refresh token issued at login, signup or rotation
func (r *TokenRepository) Store(ctx context.Context, userID int64, raw string, expiresAt time.Time) error {
	sql, args, err := r.sb.Insert("refresh_tokens").
		Columns("token_hash", "user_id", "expiry_date").
		Values(hashToken(raw), userID, expiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build store token query: %w", err)
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "refresh_tokens_token_hash_key"):
			return apperrors.ErrTokenInvalid
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error inserting refresh token")
		return fmt.Errorf("error storing token: %w", err)
	}
	return nil
}

// Consume revokes an active refresh token and returns its owner. Only one
// caller can consume a given token; the rest see ErrTokenRevoked.
func (r *TokenRepository) Consume(ctx context.Context, raw string) (int64, error) {
	digest := hashToken(raw)
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"token_hash": digest, "is_revoked": false}).
		Where(squirrel.Gt{"expiry_date": r.now()}).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build consume token query: %w", err)
	}

	var userID int64
	err = r.db.QueryRow(ctx, sql, args...).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Error().Err(err).Msg("Error consuming refresh token")
		return 0, fmt.Errorf("error consuming token: %w", err)
	}
	return 0, r.explainMiss(ctx, digest)
}

// explainMiss tells an unknown token from a revoked or expired one
func (r *TokenRepository) explainMiss(ctx context.Context, digest string) error {
	var revoked bool
	err := r.db.QueryRow(ctx,
		`SELECT is_revoked FROM refresh_tokens WHERE token_hash = $1`, digest,
	).Scan(&revoked)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrTokenNotFound
	case err != nil:
		return fmt.Errorf("error retrieving token: %w", err)
	case revoked:
		return apperrors.ErrTokenRevoked
	default:
		return apperrors.ErrTokenExpired
	}
}

// Revoke marks a single refresh token as revoked
func (r *TokenRepository) Revoke(ctx context.Context, raw string) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"token_hash": hashToken(raw)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revoke token query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error revoking refresh token")
		return fmt.Errorf("error revoking token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTokenNotFound
	}
	return nil
}

// RevokeAllForUser ends every session of a user
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"user_id": userID, "is_revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revoke user tokens query: %w", err)
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error revoking user tokens")
		return fmt.Errorf("error revoking user tokens: %w", err)
	}
	return nil
}

// DeleteStale drops expired tokens and revoked ones past retention
func (r *TokenRepository) DeleteStale(ctx context.Context) (int64, error) {
	now := r.now()
	sql, args, err := r.sb.Delete("refresh_tokens").
		Where(squirrel.Or{
			squirrel.Lt{"expiry_date": now},
			squirrel.And{
				squirrel.Eq{"is_revoked": true},
				squirrel.Lt{"created_at": now.Add(-revokedRetention)},
			},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build cleanup tokens query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error cleaning up tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
