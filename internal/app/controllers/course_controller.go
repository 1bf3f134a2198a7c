package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/noteverse/internal/app/services"
	"github.com/yigit/noteverse/internal/middleware"
)

// CourseController exposes the course taxonomy
type CourseController struct {
	courseService services.CourseService
}

// NewCourseController creates a new course controller
func NewCourseController(courseService services.CourseService) *CourseController {
	return &CourseController{courseService: courseService}
}

// List returns every course with its branches and subjects
// @Summary List courses
// @Description The taxonomy the upload form and filters use
// @Tags courses
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.Course}
// @Router /courses [get]
func (c *CourseController) List(ctx *gin.Context) {
	courses, err := c.courseService.List(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, courses)
}
