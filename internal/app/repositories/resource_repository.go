package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/db"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/dberrors"
	"github.com/yigit/noteverse/internal/pkg/helpers"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

// Sort keys accepted by List.
const (
	SortUploadedAt = "uploadedAt"
	SortUpvotes    = "upvotes"
	SortDownloads  = "downloads"
	SortFileName   = "fileName"
)

var resourceSortColumns = map[string]string{
	SortUploadedAt: "r.uploaded_at",
	SortUpvotes:    "vc.up",
	SortDownloads:  "r.downloads",
	SortFileName:   "lower(r.file_name)",
}

// ResourceRepository handles study resource database operations
type ResourceRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewResourceRepository creates a new ResourceRepository
func NewResourceRepository(pool db.Querier) *ResourceRepository {
	return &ResourceRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// resourceSelect returns resources joined with their uploader and vote,
// comment and report aggregates. viewerID fills MyVote; 0 means anonymous.
func resourceSelect(sb squirrel.StatementBuilderType, viewerID int64) squirrel.SelectBuilder {
	return sb.Select(
		"r.id", "r.file_name", "r.original_filename", "r.storage_key", "r.url", "r.course", "r.branch",
		"r.subject", "r.year", "r.semester", "r.resource_type", "r.size_bytes", "r.downloads",
		"r.uploaded_by", "u.name", "r.uploaded_at",
		"vc.up", "vc.down",
		"(SELECT count(*) FROM comments c WHERE c.resource_id = r.id)",
		"(SELECT count(*) FROM reports rp WHERE rp.resource_id = r.id)",
		"COALESCE(mv.value, 0)",
	).
		From("resources r").
		Join("users u ON u.id = r.uploaded_by").
		JoinClause("LEFT JOIN LATERAL (SELECT count(*) FILTER (WHERE value = 1) AS up, "+
			"count(*) FILTER (WHERE value = -1) AS down FROM votes WHERE resource_id = r.id) vc ON TRUE").
		LeftJoin("votes mv ON mv.resource_id = r.id AND mv.user_id = ?", viewerID)
}

func scanResource(row pgx.Row) (*models.Resource, error) {
	res := &models.Resource{}
	var (
		year, semester *int16
		resourceType   string
		myVote         int16
	)
	err := row.Scan(&res.ID, &res.FileName, &res.OriginalFilename, &res.StorageKey, &res.URL, &res.Course,
		&res.Branch, &res.Subject, &year, &semester, &resourceType, &res.SizeBytes, &res.Downloads,
		&res.UploadedBy, &res.UploaderName, &res.UploadedAt,
		&res.Upvotes, &res.Downvotes, &res.CommentCount, &res.ReportCount, &myVote)
	if err != nil {
		return nil, err
	}
	res.Year = intPtr(year)
	res.Semester = intPtr(semester)
	res.ResourceType = models.ResourceType(resourceType)
	res.MyVote = models.Vote(myVote)
	return res, nil
}

func collectResources(rows pgx.Rows) ([]models.Resource, error) {
	defer rows.Close()
	out := []models.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Create inserts a resource row and sets its ID and upload time
func (r *ResourceRepository) Create(ctx context.Context, res *models.Resource) error {
	sql, args, err := r.sb.Insert("resources").
		Columns("file_name", "original_filename", "storage_key", "url", "course", "branch", "subject",
			"year", "semester", "resource_type", "size_bytes", "uploaded_by").
		Values(res.FileName, res.OriginalFilename, res.StorageKey, res.URL, res.Course, res.Branch, res.Subject,
			res.Year, res.Semester, string(res.ResourceType), res.SizeBytes, res.UploadedBy).
		Suffix("RETURNING id, uploaded_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create resource SQL")
		return fmt.Errorf("failed to build create resource query: %w", err)
	}

	err = db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, sql, args...).Scan(&res.ID, &res.UploadedAt); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, res.UploadedBy).Scan(&res.UploaderName)
	})
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrUserNotFound
		}
		if dberrors.IsDuplicateConstraintError(err, "resources_storage_key_key") {
			return apperrors.NewConflictError("a resource with this storage key already exists")
		}
		logger.Error().Err(err).Int64("uploadedBy", res.UploadedBy).Msg("Error inserting resource")
		return fmt.Errorf("error creating resource: %w", err)
	}
	return nil
}

// GetByID retrieves one resource with its aggregates
func (r *ResourceRepository) GetByID(ctx context.Context, id, viewerID int64) (*models.Resource, error) {
	sql, args, err := resourceSelect(r.sb, viewerID).Where(squirrel.Eq{"r.id": id}).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get resource SQL")
		return nil, fmt.Errorf("failed to build get resource query: %w", err)
	}

	res, err := scanResource(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudyResourceNotFound
		}
		logger.Error().Err(err).Int64("resourceID", id).Msg("Error scanning resource row")
		return nil, fmt.Errorf("error retrieving resource: %w", err)
	}
	return res, nil
}

func filterConditions(f ResourceFilter) squirrel.And {
	where := squirrel.And{}
	if types := helpers.NonEmpty(f.Types); len(types) > 0 {
		where = append(where, squirrel.Eq{"r.resource_type": types})
	}
	if courses := helpers.NonEmpty(f.Courses); len(courses) > 0 {
		where = append(where, squirrel.Eq{"r.course": courses})
	}
	if branches := helpers.NonEmpty(f.Branches); len(branches) > 0 {
		where = append(where, squirrel.Eq{"r.branch": branches})
	}
	if f.Year != nil {
		where = append(where, squirrel.Eq{"r.year": *f.Year})
	}
	if f.Semester != nil {
		where = append(where, squirrel.Eq{"r.semester": *f.Semester})
	}
	if s := strings.TrimSpace(f.Subject); s != "" {
		where = append(where, squirrel.Expr("lower(r.subject) = lower(?)", s))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := helpers.LikePattern(q)
		where = append(where, squirrel.Or{
			squirrel.ILike{"r.file_name": pattern},
			squirrel.ILike{"r.subject": pattern},
		})
	}
	if f.UploadedBy != nil {
		where = append(where, squirrel.Eq{"r.uploaded_by": *f.UploadedBy})
	}
	return where
}

func orderClause(f ResourceFilter) []string {
	column, ok := resourceSortColumns[f.SortBy]
	if !ok {
		column = resourceSortColumns[SortUploadedAt]
	}
	direction := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		direction = "ASC"
	}
	return []string{column + " " + direction, "r.id " + direction}
}

// List returns one page of resources matching the filter and the total match count
func (r *ResourceRepository) List(ctx context.Context, f ResourceFilter) ([]models.Resource, int64, error) {
	where := filterConditions(f)

	countSQL, countArgs, err := r.sb.Select("count(*)").From("resources r").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count resources query: %w", err)
	}
	var total int64
	if err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting resources")
		return nil, 0, fmt.Errorf("error counting resources: %w", err)
	}

	q := resourceSelect(r.sb, f.ViewerID).Where(where).OrderBy(orderClause(f)...).Offset(f.Offset)
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list resources SQL")
		return nil, 0, fmt.Errorf("failed to build list resources query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing resources")
		return nil, 0, fmt.Errorf("error listing resources: %w", err)
	}
	resources, err := collectResources(rows)
	if err != nil {
		logger.Error().Err(err).Msg("Error scanning resources")
		return nil, 0, fmt.Errorf("error scanning resources: %w", err)
	}
	return resources, total, nil
}

// Facets returns the distinct filter values present in the library
func (r *ResourceRepository) Facets(ctx context.Context) (*models.ResourceFacets, error) {
	query := `
		SELECT
			COALESCE(array_agg(DISTINCT course) FILTER (WHERE course <> ''), '{}'),
			COALESCE(array_agg(DISTINCT branch) FILTER (WHERE branch <> ''), '{}'),
			COALESCE(array_agg(DISTINCT subject) FILTER (WHERE subject <> ''), '{}'),
			COALESCE(array_agg(DISTINCT year::int) FILTER (WHERE year IS NOT NULL), '{}'),
			COALESCE(array_agg(DISTINCT semester::int) FILTER (WHERE semester IS NOT NULL), '{}'),
			COALESCE(array_agg(DISTINCT resource_type), '{}')
		FROM resources
	`

	facets := &models.ResourceFacets{}
	var (
		years, semesters []int32
		types            []string
	)
	err := r.db.QueryRow(ctx, query).Scan(&facets.Courses, &facets.Branches, &facets.Subjects,
		&years, &semesters, &types)
	if err != nil {
		logger.Error().Err(err).Msg("Error loading resource facets")
		return nil, fmt.Errorf("error loading resource facets: %w", err)
	}

	facets.Years = make([]int, 0, len(years))
	for _, y := range years {
		facets.Years = append(facets.Years, int(y))
	}
	facets.Semesters = make([]int, 0, len(semesters))
	for _, s := range semesters {
		facets.Semesters = append(facets.Semesters, int(s))
	}
	facets.Types = make([]models.ResourceType, 0, len(types))
	for _, t := range types {
		facets.Types = append(facets.Types, models.ResourceType(t))
	}
	return facets, nil
}

// Delete removes a resource row; engagement rows cascade
func (r *ResourceRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("resources").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete resource query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("resourceID", id).Msg("Error deleting resource")
		return fmt.Errorf("error deleting resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudyResourceNotFound
	}
	return nil
}

// RecordDownload increments the download counter and adds the resource to
// the user's downloads, returning the new counter value.
func (r *ResourceRepository) RecordDownload(ctx context.Context, resourceID, userID int64) (int64, error) {
	var downloads int64
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE resources SET downloads = downloads + 1 WHERE id = $1 RETURNING downloads`,
			resourceID).Scan(&downloads)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrStudyResourceNotFound
			}
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO user_downloads (user_id, resource_id) VALUES ($1, $2)
			 ON CONFLICT (user_id, resource_id) DO UPDATE SET downloaded_at = now()`,
			userID, resourceID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrStudyResourceNotFound) {
			return 0, err
		}
		if dberrors.IsForeignKeyViolation(err) {
			return 0, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Int64("resourceID", resourceID).Int64("userID", userID).Msg("Error recording download")
		return 0, fmt.Errorf("error recording download: %w", err)
	}
	return downloads, nil
}

// ListDownloadedBy pages through the resources a user has downloaded, latest first
func (r *ResourceRepository) ListDownloadedBy(ctx context.Context, userID int64, offset uint64, limit int) ([]models.Resource, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM user_downloads WHERE user_id = $1`, userID).Scan(&total); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error counting downloads")
		return nil, 0, fmt.Errorf("error counting downloads: %w", err)
	}

	q := resourceSelect(r.sb, userID).
		Join("user_downloads d ON d.resource_id = r.id AND d.user_id = ?", userID).
		OrderBy("d.downloaded_at DESC", "r.id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build downloads query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error listing downloads")
		return nil, 0, fmt.Errorf("error listing downloads: %w", err)
	}
	resources, err := collectResources(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning downloads: %w", err)
	}
	return resources, total, nil
}

// Totals returns the resource count and the sum of all download counters
func (r *ResourceRepository) Totals(ctx context.Context) (int64, int64, error) {
	var resources, downloads int64
	err := r.db.QueryRow(ctx, `SELECT count(*), COALESCE(sum(downloads), 0)::bigint FROM resources`).
		Scan(&resources, &downloads)
	if err != nil {
		logger.Error().Err(err).Msg("Error loading resource totals")
		return 0, 0, fmt.Errorf("error loading resource totals: %w", err)
	}
	return resources, downloads, nil
}
