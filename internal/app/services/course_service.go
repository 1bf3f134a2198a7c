package services

import (
	"context"

	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/repositories"
)

// CourseService exposes the course taxonomy
type CourseService interface {
	List(ctx context.Context) ([]models.Course, error)
}

type courseServiceImpl struct {
	courseRepo repositories.ICourseRepository
}

// NewCourseService creates a new CourseService
func NewCourseService(courseRepo repositories.ICourseRepository) CourseService {
	return &courseServiceImpl{courseRepo: courseRepo}
}

// List returns all courses with their branches and subjects
func (s *courseServiceImpl) List(ctx context.Context) ([]models.Course, error) {
	return s.courseRepo.List(ctx)
}
