package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/db"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/dberrors"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

// Postgres default names for the author foreign keys
const (
	commentsUserFKey = "comments_user_id_fkey"
	reportsUserFKey  = "reports_user_id_fkey"
)

// EngagementRepository handles votes, comments and reports
type EngagementRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewEngagementRepository creates a new EngagementRepository
func NewEngagementRepository(pool db.Querier) *EngagementRepository {
	return &EngagementRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ToggleVote applies a vote button press inside one transaction. The
// resource row is locked so concurrent presses on it serialize.
func (r *EngagementRepository) ToggleVote(ctx context.Context, resourceID, userID int64, requested models.Vote) (*models.VoteState, error) {
	if requested != models.VoteUp && requested != models.VoteDown {
		return nil, apperrors.ErrInvalidVote
	}

	state := &models.VoteState{ResourceID: resourceID}
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx, `SELECT id FROM resources WHERE id = $1 FOR UPDATE`, resourceID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrStudyResourceNotFound
			}
			return err
		}

		var current int16
		err = tx.QueryRow(ctx, `SELECT value FROM votes WHERE resource_id = $1 AND user_id = $2`,
			resourceID, userID).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		next := models.NextVote(models.Vote(current), requested)
		if next == models.VoteNone {
			_, err = tx.Exec(ctx, `DELETE FROM votes WHERE resource_id = $1 AND user_id = $2`, resourceID, userID)
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO votes (resource_id, user_id, value) VALUES ($1, $2, $3)
				ON CONFLICT (resource_id, user_id) DO UPDATE SET value = EXCLUDED.value, created_at = now()`,
				resourceID, userID, int16(next))
		}
		if err != nil {
			return err
		}
		state.MyVote = next

		return tx.QueryRow(ctx, `
			SELECT count(*) FILTER (WHERE value = 1), count(*) FILTER (WHERE value = -1)
			FROM votes WHERE resource_id = $1`, resourceID).Scan(&state.Upvotes, &state.Downvotes)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrStudyResourceNotFound) {
			return nil, err
		}
		if dberrors.IsForeignKeyViolation(err) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Int64("resourceID", resourceID).Int64("userID", userID).Msg("Error toggling vote")
		return nil, fmt.Errorf("error toggling vote: %w", err)
	}
	return state, nil
}

// ListVotedBy pages through the resources a user currently votes on in one direction
func (r *EngagementRepository) ListVotedBy(ctx context.Context, userID int64, vote models.Vote, offset uint64, limit int) ([]models.Resource, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM votes WHERE user_id = $1 AND value = $2`,
		userID, int16(vote)).Scan(&total)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error counting votes")
		return nil, 0, fmt.Errorf("error counting votes: %w", err)
	}

	q := resourceSelect(r.sb, userID).
		Where(squirrel.Eq{"mv.value": int16(vote)}).
		OrderBy("mv.created_at DESC", "r.id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build voted resources query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error listing voted resources")
		return nil, 0, fmt.Errorf("error listing voted resources: %w", err)
	}
	resources, err := collectResources(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning voted resources: %w", err)
	}
	return resources, total, nil
}

// AddComment inserts a comment and fills its ID, timestamp and author details
func (r *EngagementRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	query := `
		WITH inserted AS (
			INSERT INTO comments (resource_id, user_id, text) VALUES ($1, $2, $3)
			RETURNING id, user_id, created_at
		)
		SELECT i.id, i.created_at, u.name, u.profile_picture
		FROM inserted i JOIN users u ON u.id = i.user_id
	`

	err := r.db.QueryRow(ctx, query, comment.ResourceID, comment.UserID, comment.Text).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UserName, &comment.ProfilePicture)
	if err != nil {
		switch {
		case dberrors.IsForeignKeyConstraintError(err, commentsUserFKey):
			return apperrors.ErrUserNotFound
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrStudyResourceNotFound
		}
		logger.Error().Err(err).Int64("resourceID", comment.ResourceID).Msg("Error inserting comment")
		return fmt.Errorf("error creating comment: %w", err)
	}
	return nil
}

func (r *EngagementRepository) commentSelect() squirrel.SelectBuilder {
	return r.sb.Select("c.id", "c.resource_id", "c.user_id", "u.name", "u.profile_picture", "c.text", "c.created_at").
		From("comments c").
		Join("users u ON u.id = c.user_id")
}

func collectComments(rows pgx.Rows) ([]models.Comment, error) {
	defer rows.Close()
	out := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ResourceID, &c.UserID, &c.UserName, &c.ProfilePicture, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetComment retrieves a single comment
func (r *EngagementRepository) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	sql, args, err := r.commentSelect().Where(squirrel.Eq{"c.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get comment query: %w", err)
	}

	var c models.Comment
	err = r.db.QueryRow(ctx, sql, args...).
		Scan(&c.ID, &c.ResourceID, &c.UserID, &c.UserName, &c.ProfilePicture, &c.Text, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommentNotFound
		}
		logger.Error().Err(err).Int64("commentID", id).Msg("Error retrieving comment")
		return nil, fmt.Errorf("error retrieving comment: %w", err)
	}
	return &c, nil
}

// ListComments returns the comments of a resource, oldest first
func (r *EngagementRepository) ListComments(ctx context.Context, resourceID int64) ([]models.Comment, error) {
	sql, args, err := r.commentSelect().
		Where(squirrel.Eq{"c.resource_id": resourceID}).
		OrderBy("c.created_at", "c.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list comments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("resourceID", resourceID).Msg("Error listing comments")
		return nil, fmt.Errorf("error listing comments: %w", err)
	}
	comments, err := collectComments(rows)
	if err != nil {
		return nil, fmt.Errorf("error scanning comments: %w", err)
	}
	return comments, nil
}

// ListCommentsByUser pages through a user's comments, newest first
func (r *EngagementRepository) ListCommentsByUser(ctx context.Context, userID int64, offset uint64, limit int) ([]models.Comment, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM comments WHERE user_id = $1`, userID).Scan(&total); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error counting user comments")
		return nil, 0, fmt.Errorf("error counting comments: %w", err)
	}

	q := r.commentSelect().
		Where(squirrel.Eq{"c.user_id": userID}).
		OrderBy("c.created_at DESC", "c.id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build user comments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error listing user comments")
		return nil, 0, fmt.Errorf("error listing comments: %w", err)
	}
	comments, err := collectComments(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning comments: %w", err)
	}
	return comments, total, nil
}

// DeleteComment removes a comment
func (r *EngagementRepository) DeleteComment(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		logger.Error().Err(err).Int64("commentID", id).Msg("Error deleting comment")
		return fmt.Errorf("error deleting comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCommentNotFound
	}
	return nil
}

// AddReport records a report. It reports false when the user had already
// reported the resource, in which case nothing changes.
func (r *EngagementRepository) AddReport(ctx context.Context, report *models.Report) (bool, error) {
	query := `
		INSERT INTO reports (resource_id, user_id, reason) VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, user_id) DO NOTHING
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, report.ResourceID, report.UserID, report.Reason).Scan(&report.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return false, nil
		case dberrors.IsForeignKeyConstraintError(err, reportsUserFKey):
			return false, apperrors.ErrUserNotFound
		case dberrors.IsForeignKeyViolation(err):
			return false, apperrors.ErrStudyResourceNotFound
		}
		logger.Error().Err(err).Int64("resourceID", report.ResourceID).Msg("Error inserting report")
		return false, fmt.Errorf("error creating report: %w", err)
	}
	return true, nil
}

// ListReported pages through reported resources, most reported first, with their reports
func (r *EngagementRepository) ListReported(ctx context.Context, offset uint64, limit int) ([]models.ReportedResource, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(DISTINCT resource_id) FROM reports`).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting reported resources")
		return nil, 0, fmt.Errorf("error counting reported resources: %w", err)
	}

	q := resourceSelect(r.sb, 0).
		Where("EXISTS (SELECT 1 FROM reports x WHERE x.resource_id = r.id)").
		OrderBy("(SELECT count(*) FROM reports x WHERE x.resource_id = r.id) DESC", "r.id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build reported resources query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing reported resources")
		return nil, 0, fmt.Errorf("error listing reported resources: %w", err)
	}
	resources, err := collectResources(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning reported resources: %w", err)
	}
	if len(resources) == 0 {
		return []models.ReportedResource{}, total, nil
	}

	ids := make([]int64, len(resources))
	byID := make(map[int64]int, len(resources))
	out := make([]models.ReportedResource, len(resources))
	for i, res := range resources {
		ids[i] = res.ID
		byID[res.ID] = i
		out[i] = models.ReportedResource{Resource: res, Reports: []models.Report{}}
	}

	reportSQL, reportArgs, err := r.sb.Select("rp.resource_id", "rp.user_id", "u.name", "rp.reason", "rp.created_at").
		From("reports rp").
		Join("users u ON u.id = rp.user_id").
		Where(squirrel.Eq{"rp.resource_id": ids}).
		OrderBy("rp.created_at").
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build reports query: %w", err)
	}
	reportRows, err := r.db.Query(ctx, reportSQL, reportArgs...)
	if err != nil {
		logger.Error().Err(err).Msg("Error loading reports")
		return nil, 0, fmt.Errorf("error loading reports: %w", err)
	}
	defer reportRows.Close()
	for reportRows.Next() {
		var rep models.Report
		if err := reportRows.Scan(&rep.ResourceID, &rep.UserID, &rep.ReporterName, &rep.Reason, &rep.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("error scanning report: %w", err)
		}
		i := byID[rep.ResourceID]
		out[i].Reports = append(out[i].Reports, rep)
	}
	if err := reportRows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error reading reports: %w", err)
	}
	return out, total, nil
}

// CountComments returns the number of comments across all resources
func (r *EngagementRepository) CountComments(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM comments`).Scan(&n); err != nil {
		logger.Error().Err(err).Msg("Error counting comments")
		return 0, fmt.Errorf("error counting comments: %w", err)
	}
	return n, nil
}
