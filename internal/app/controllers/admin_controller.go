package controllers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/services"
	"github.com/yigit/noteverse/internal/middleware"
)

// AdminController serves the moderation dashboard
type AdminController struct {
	adminService services.AdminService
	logger       zerolog.Logger
}

// NewAdminController creates a new admin controller
func NewAdminController(adminService services.AdminService, logger zerolog.Logger) *AdminController {
	return &AdminController{adminService: adminService, logger: logger}
}

func (c *AdminController) search(ctx *gin.Context) (*dto.AdminSearchRequest, bool) {
	var req dto.AdminSearchRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		bindingError(ctx, err)
		return nil, false
	}
	if req.Page < 1 {
		req.Page = 1
	}
	return &req, true
}

// Users searches users by name or email
// @Summary Search users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name or email fragment"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} dto.APIResponse{data=dto.UserListResponse}
// @Failure 403 {object} dto.ErrorResponse "Not an administrator"
// @Router /admin/users [get]
func (c *AdminController) Users(ctx *gin.Context) {
	req, valid := c.search(ctx)
	if !valid {
		return
	}
	resp, err := c.adminService.SearchUsers(ctx.Request.Context(), req.Query, req.Page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// Resources searches resources by file name, subject or course
// @Summary Search resources
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search text"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} dto.APIResponse{data=dto.ResourceListResponse}
// @Router /admin/resources [get]
func (c *AdminController) Resources(ctx *gin.Context) {
	req, valid := c.search(ctx)
	if !valid {
		return
	}
	resp, err := c.adminService.SearchResources(ctx.Request.Context(), req.Query, req.Page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// Reports lists reported resources, most reported first
// @Summary Reported resources
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Success 200 {object} dto.APIResponse{data=dto.ReportedListResponse}
// @Router /admin/reports [get]
func (c *AdminController) Reports(ctx *gin.Context) {
	req, valid := c.search(ctx)
	if !valid {
		return
	}
	resp, err := c.adminService.ListReported(ctx.Request.Context(), req.Page)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// Uploads returns the upload audit trail
// @Summary Upload audit trail
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userId query int false "Only this uploader"
// @Param limit query int false "Maximum records" default(50)
// @Success 200 {object} dto.APIResponse{data=[]models.UploadRecord}
// @Router /admin/uploads [get]
func (c *AdminController) Uploads(ctx *gin.Context) {
	var userID int64
	if raw := ctx.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			detail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid userId").WithField("userId")
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(detail))
			return
		}
		userID = id
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	records, err := c.adminService.ListUploads(ctx.Request.Context(), userID, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, records)
}

// send renders an export into memory first so a failure still produces a JSON error
func (c *AdminController) send(ctx *gin.Context, contentType, name, ext string, render func(context.Context, io.Writer) error) {
	var buf bytes.Buffer
	if err := render(ctx.Request.Context(), &buf); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	filename := name + "-" + time.Now().UTC().Format("20060102") + ext
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, contentType, buf.Bytes())
}

// ExportUsers downloads all users as CSV
// @Summary Export users
// @Tags admin
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /admin/export/users.csv [get]
func (c *AdminController) ExportUsers(ctx *gin.Context) {
	c.send(ctx, "text/csv; charset=utf-8", "users", ".csv", c.adminService.ExportUsersCSV)
}

// ExportResources downloads all resources as CSV
// @Summary Export resources
// @Tags admin
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /admin/export/resources.csv [get]
func (c *AdminController) ExportResources(ctx *gin.Context) {
	c.send(ctx, "text/csv; charset=utf-8", "resources", ".csv", c.adminService.ExportResourcesCSV)
}

// ExportReport downloads the activity summary as PDF
// @Summary Export activity report
// @Tags admin
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} file
// @Router /admin/export/report.pdf [get]
func (c *AdminController) ExportReport(ctx *gin.Context) {
	c.send(ctx, "application/pdf", "report", ".pdf", c.adminService.ExportReportPDF)
}

// DeleteUser removes a user and everything they own
// @Summary Delete a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 400 {object} dto.ErrorResponse "Cannot delete yourself"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{id} [delete]
func (c *AdminController) DeleteUser(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	if err := c.adminService.DeleteUser(ctx.Request.Context(), id, middleware.Actor(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, dto.SuccessResponse{Message: "User deleted"})
}

// DeleteResource removes a resource
// @Summary Delete a resource
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 404 {object} dto.ErrorResponse "Resource not found"
// @Router /admin/resources/{id} [delete]
func (c *AdminController) DeleteResource(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	if err := c.adminService.DeleteResource(ctx.Request.Context(), id, middleware.Actor(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, dto.SuccessResponse{Message: "Resource deleted"})
}

// SendMail emails a user
// @Summary Email a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.SendMailRequest true "Message"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /admin/users/{id}/mail [post]
func (c *AdminController) SendMail(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.SendMailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindingError(ctx, err)
		return
	}
	if err := c.adminService.SendMail(ctx.Request.Context(), id, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, dto.SuccessResponse{Message: "Email sent"})
}

// SetRole changes a user's role
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.SetRoleRequest true "Role"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /admin/users/{id}/role [put]
func (c *AdminController) SetRole(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.SetRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindingError(ctx, err)
		return
	}
	if err := c.adminService.SetRole(ctx.Request.Context(), id, req.Role, middleware.Actor(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, dto.SuccessResponse{Message: "Role updated"})
}
