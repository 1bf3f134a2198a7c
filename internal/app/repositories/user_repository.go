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
	"github.com/yigit/noteverse/internal/pkg/helpers"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

var userColumns = []string{
	"id", "name", "email", "password", "profile_picture", "course", "branch",
	"year", "semester", "college", "role", "created_at", "updated_at",
}

// UserRepository handles user database operations
type UserRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool db.Querier) *UserRepository {
	return &UserRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	var year, semester *int16
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.ProfilePicture, &u.Course, &u.Branch,
		&year, &semester, &u.College, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Year = intPtr(year)
	u.Semester = intPtr(semester)
	return u, nil
}

// Create inserts a user and sets its ID and timestamps
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	sql, args, err := r.sb.Insert("users").
		Columns("name", "email", "password", "profile_picture", "course", "branch", "year", "semester", "college", "role").
		Values(user.Name, user.Email, user.Password, user.ProfilePicture, user.Course, user.Branch,
			user.Year, user.Semester, user.College, user.Role).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if err = r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error inserting user")
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error scanning user row")
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Expr("lower(email) = lower(?)", email))
}

// EmailExists checks if an email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		logger.Error().Err(err).Msg("Error checking email existence")
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}

// Update writes the editable profile fields of a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	sql, args, err := r.sb.Update("users").
		Set("name", user.Name).
		Set("email", user.Email).
		Set("branch", user.Branch).
		Set("year", user.Year).
		Set("semester", user.Semester).
		Set("profile_picture", user.ProfilePicture).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": user.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update user SQL")
		return fmt.Errorf("failed to build update user query: %w", err)
	}

	if err = r.db.QueryRow(ctx, sql, args...).Scan(&user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrUserNotFound
		}
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Int64("userID", user.ID).Msg("Error updating user")
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

func (r *UserRepository) updateColumn(ctx context.Context, userID int64, column string, value interface{}) error {
	sql, args, err := r.sb.Update("users").
		Set(column, value).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update %s query: %w", column, err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Str("column", column).Msg("Error updating user column")
		return fmt.Errorf("error updating %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// UpdatePassword stores a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return r.updateColumn(ctx, userID, "password", passwordHash)
}

// UpdateRole changes the role of a user
func (r *UserRepository) UpdateRole(ctx context.Context, userID int64, role models.RoleType) error {
	return r.updateColumn(ctx, userID, "role", string(role))
}

// Delete removes a user. Resources, votes, comments, reports, follows and
// tokens go with it through ON DELETE CASCADE. The storage keys of the removed
// resources are returned so the caller can delete the files.
func (r *UserRepository) Delete(ctx context.Context, id int64) ([]string, error) {
	var keys []string
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT storage_key FROM resources WHERE uploaded_by = $1`, id)
		if err != nil {
			return fmt.Errorf("error listing user resources: %w", err)
		}
		keys, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("error scanning user resources: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("error deleting user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			logger.Error().Err(err).Int64("userID", id).Msg("Error deleting user")
		}
		return nil, err
	}
	return keys, nil
}

// GetStats counts the activity lists of a user
func (r *UserRepository) GetStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	query := `
		SELECT
			(SELECT count(*) FROM resources WHERE uploaded_by = $1),
			(SELECT count(*) FROM user_downloads WHERE user_id = $1),
			(SELECT count(*) FROM votes WHERE user_id = $1 AND value = 1),
			(SELECT count(*) FROM votes WHERE user_id = $1 AND value = -1),
			(SELECT count(*) FROM comments WHERE user_id = $1),
			(SELECT count(*) FROM follows WHERE followee_id = $1),
			(SELECT count(*) FROM follows WHERE follower_id = $1)
	`

	stats := &models.UserStats{}
	err := r.db.QueryRow(ctx, query, userID).Scan(&stats.Uploads, &stats.Downloads, &stats.Upvotes,
		&stats.Downvotes, &stats.Comments, &stats.Followers, &stats.Following)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error loading user stats")
		return nil, fmt.Errorf("error loading user stats: %w", err)
	}
	return stats, nil
}

// summaryQuery selects user summaries with the upvotes earned on their uploads.
func (r *UserRepository) summaryQuery() squirrel.SelectBuilder {
	return summarySelect(r.sb)
}

func summarySelect(sb squirrel.StatementBuilderType) squirrel.SelectBuilder {
	return sb.Select("u.id", "u.name", "u.email", "u.profile_picture", "u.course", "u.branch", "u.year",
		"u.college", "u.role", "u.created_at",
		"(SELECT count(*) FROM votes v JOIN resources r ON r.id = v.resource_id WHERE r.uploaded_by = u.id AND v.value = 1) AS upvotes").
		From("users u")
}

func collectSummaries(rows pgx.Rows) ([]models.UserSummary, error) {
	defer rows.Close()
	var out []models.UserSummary
	for rows.Next() {
		var s models.UserSummary
		var year *int16
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.ProfilePicture, &s.Course, &s.Branch, &year,
			&s.College, &s.Role, &s.CreatedAt, &s.Upvotes); err != nil {
			return nil, err
		}
		s.Year = intPtr(year)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Search pages through users whose name or email contains query, newest first.
// An empty query lists everyone.
func (r *UserRepository) Search(ctx context.Context, query string, offset uint64, limit int) ([]models.UserSummary, int64, error) {
	var where squirrel.Sqlizer = squirrel.Expr("TRUE")
	if query != "" {
		pattern := helpers.LikePattern(query)
		where = squirrel.Or{squirrel.ILike{"u.name": pattern}, squirrel.ILike{"u.email": pattern}}
	}

	countSQL, countArgs, err := r.sb.Select("count(*)").From("users u").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count users query: %w", err)
	}
	var total int64
	if err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting users")
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}

	q := r.summaryQuery().Where(where).OrderBy("u.created_at DESC", "u.id DESC").Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build search users query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error searching users")
		return nil, 0, fmt.Errorf("error searching users: %w", err)
	}
	users, err := collectSummaries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning users: %w", err)
	}
	return users, total, nil
}

// Contributors ranks uploaders by upload count, then followers.
func (r *UserRepository) Contributors(ctx context.Context, limit int) ([]models.Contributor, error) {
	query := `
		SELECT u.id, u.name, u.profile_picture, u.branch, u.college,
			(SELECT count(*) FROM resources r WHERE r.uploaded_by = u.id) AS uploads,
			(SELECT count(*) FROM follows f WHERE f.followee_id = u.id) AS followers,
			(SELECT count(*) FROM votes v JOIN resources r ON r.id = v.resource_id
				WHERE r.uploaded_by = u.id AND v.value = 1) AS upvotes
		FROM users u
		WHERE EXISTS (SELECT 1 FROM resources r WHERE r.uploaded_by = u.id)
		ORDER BY uploads DESC, followers DESC, u.id
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Error loading contributors")
		return nil, fmt.Errorf("error loading contributors: %w", err)
	}
	defer rows.Close()

	out := make([]models.Contributor, 0, limit)
	for rows.Next() {
		var c models.Contributor
		if err := rows.Scan(&c.ID, &c.Name, &c.ProfilePicture, &c.Branch, &c.College,
			&c.Uploads, &c.Followers, &c.UpvotesEarned); err != nil {
			return nil, fmt.Errorf("error scanning contributor: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of registered users
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		logger.Error().Err(err).Msg("Error counting users")
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return n, nil
}

func intPtr(v *int16) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
