// Package seed loads the reference data every deployment needs.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/auth"
	"github.com/yigit/noteverse/internal/pkg/validation"
)

// Courses is the static taxonomy offered by the upload form and filters
var Courses = []models.Course{
	{
		Name:     models.DefaultCourse,
		Branches: []string{"CSE", "CSE-AI", "ECE", "EEE", "ME", "CE"},
		Subjects: []string{
			"Engineering Mathematics",
			"Engineering Physics",
			"Engineering Chemistry",
			"Organic Chemistry",
			"Basic Electrical Engineering",
			"Programming for Problem Solving",
			"Data Structures",
			"Discrete Mathematics",
			"Digital Electronics",
			"Computer Organization",
			"Operating Systems",
			"Database Management Systems",
			"Computer Networks",
			"Design and Analysis of Algorithms",
			"Theory of Computation",
			"Compiler Design",
			"Software Engineering",
			"Artificial Intelligence",
			"Machine Learning",
			"Microprocessors",
			"Signals and Systems",
			"Thermodynamics",
			"Strength of Materials",
			"Surveying",
		},
	},
}

type courseUpserter interface {
	Upsert(ctx context.Context, course *models.Course) error
}

type adminStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateRole(ctx context.Context, userID int64, role models.RoleType) error
}

// Admin describes the bootstrap administrator account
type Admin struct {
	Name     string
	Email    string
	Password string
}

// SeedCourses upserts the course taxonomy
func SeedCourses(ctx context.Context, repo courseUpserter, lgr zerolog.Logger) error {
	var finalErr error
	for i := range Courses {
		course := Courses[i]
		if err := repo.Upsert(ctx, &course); err != nil {
			lgr.Error().Err(err).Str("course", course.Name).Msg("Error seeding course")
			finalErr = errors.Join(finalErr, err)
		}
	}
	if finalErr == nil {
		lgr.Info().Int("courses", len(Courses)).Msg("Course taxonomy seeded")
	}
	return finalErr
}

// EnsureAdmin creates the administrator account or promotes an existing user
// with that email. It reports whether an account was created.
func EnsureAdmin(ctx context.Context, users adminStore, admin Admin, lgr zerolog.Logger) (bool, error) {
	email := validation.NormalizeEmail(admin.Email)
	if email == "" {
		return false, nil
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			lgr.Debug().Str("email", email).Msg("Admin user already exists, skipping creation")
			return false, nil
		}
		if err := users.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return false, fmt.Errorf("promote admin: %w", err)
		}
		lgr.Info().Int64("userID", existing.ID).Msg("Existing user promoted to admin")
		return false, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return false, fmt.Errorf("look up admin: %w", err)
	}

	if !validation.IsValidPassword(admin.Password) {
		return false, apperrors.NewValidationError("password", "admin password must be at least 6 characters")
	}
	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	name := strings.TrimSpace(admin.Name)
	if name == "" {
		name = "Administrator"
	}
	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Course:   models.DefaultCourse,
		College:  models.DefaultCollege,
		Role:     models.RoleAdmin,
	}
	if err := users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	lgr.Info().Int64("adminID", user.ID).Msg("Default admin user created successfully")
	return true, nil
}

// Run seeds the course taxonomy and the administrator. The admin is skipped
// when no email is configured.
func Run(ctx context.Context, courses courseUpserter, users adminStore, admin Admin, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data")
	var finalErr error
	if err := SeedCourses(ctx, courses, lgr); err != nil {
		finalErr = errors.Join(finalErr, err)
	}
	if admin.Password == "" && admin.Email != "" {
		lgr.Warn().Msg("Admin email configured without a password; relying on signup to grant the role")
	} else if _, err := EnsureAdmin(ctx, users, admin, lgr); err != nil {
		lgr.Error().Err(err).Msg("Error ensuring admin user")
		finalErr = errors.Join(finalErr, err)
	}
	return finalErr
}
