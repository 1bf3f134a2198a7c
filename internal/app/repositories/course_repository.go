package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/db"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

// CourseRepository stores the course taxonomy
type CourseRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(pool db.Querier) *CourseRepository {
	return &CourseRepository{
		db: pool,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// List returns all courses ordered by name
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	sql, args, err := r.sb.Select("id", "name", "branches", "subjects").From("courses").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing courses")
		return nil, fmt.Errorf("error listing courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Branches, &c.Subjects); err != nil {
			return nil, fmt.Errorf("error scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Upsert inserts a course or replaces the branches and subjects of an existing one
func (r *CourseRepository) Upsert(ctx context.Context, course *models.Course) error {
	sql, args, err := r.sb.Insert("courses").
		Columns("name", "branches", "subjects").
		Values(course.Name, course.Branches, course.Subjects).
		Suffix("ON CONFLICT (name) DO UPDATE SET branches = EXCLUDED.branches, subjects = EXCLUDED.subjects RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert course query: %w", err)
	}

	if err = r.db.QueryRow(ctx, sql, args...).Scan(&course.ID); err != nil {
		logger.Error().Err(err).Str("course", course.Name).Msg("Error upserting course")
		return fmt.Errorf("error upserting course: %w", err)
	}
	return nil
}
