package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/db"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/dberrors"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

// FollowRepository handles the follower graph. A single follows row backs
// both the follower's following list and the followee's followers list.
type FollowRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewFollowRepository creates a new FollowRepository
func NewFollowRepository(pool db.Querier) *FollowRepository {
	return &FollowRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Follow adds the edge follower -> followee. It reports false when the edge already existed.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if followerID == followeeID {
		return false, apperrors.ErrSelfFollow
	}

	tag, err := r.db.Exec(ctx, `
		INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING`, followerID, followeeID)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return false, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Int64("followerID", followerID).Int64("followeeID", followeeID).Msg("Error following user")
		return false, fmt.Errorf("error following user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Unfollow removes the edge follower -> followee. It reports false when there was none.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`, followerID, followeeID)
	if err != nil {
		logger.Error().Err(err).Int64("followerID", followerID).Int64("followeeID", followeeID).Msg("Error unfollowing user")
		return false, fmt.Errorf("error unfollowing user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsFollowing reports whether follower follows followee
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID).Scan(&exists)
	if err != nil {
		logger.Error().Err(err).Msg("Error checking follow edge")
		return false, fmt.Errorf("error checking follow: %w", err)
	}
	return exists, nil
}

func (r *FollowRepository) listEdge(ctx context.Context, matchColumn, joinColumn string, userID int64, offset uint64, limit int) ([]models.UserSummary, int64, error) {
	var total int64
	countSQL, countArgs, err := r.sb.Select("count(*)").From("follows").Where(squirrel.Eq{matchColumn: userID}).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count follows query: %w", err)
	}
	if err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error counting follows")
		return nil, 0, fmt.Errorf("error counting follows: %w", err)
	}

	q := summarySelect(r.sb).
		Join("follows f ON f."+joinColumn+" = u.id").
		Where(squirrel.Eq{"f." + matchColumn: userID}).
		OrderBy("f.created_at DESC", "u.id").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build follows query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error listing follows")
		return nil, 0, fmt.Errorf("error listing follows: %w", err)
	}
	users, err := collectSummaries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning follows: %w", err)
	}
	for i := range users {
		users[i].Email = ""
	}
	return users, total, nil
}

// ListFollowers pages through the users following userID
func (r *FollowRepository) ListFollowers(ctx context.Context, userID int64, offset uint64, limit int) ([]models.UserSummary, int64, error) {
	return r.listEdge(ctx, "followee_id", "follower_id", userID, offset, limit)
}

// ListFollowing pages through the users userID follows
func (r *FollowRepository) ListFollowing(ctx context.Context, userID int64, offset uint64, limit int) ([]models.UserSummary, int64, error) {
	return r.listEdge(ctx, "follower_id", "followee_id", userID, offset, limit)
}

// CountFollowers returns the follower count of a user
func (r *FollowRepository) CountFollowers(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM follows WHERE followee_id = $1`, userID).Scan(&n); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error counting followers")
		return 0, fmt.Errorf("error counting followers: %w", err)
	}
	return n, nil
}
