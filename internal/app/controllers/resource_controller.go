package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/services"
	"github.com/yigit/noteverse/internal/middleware"
	"github.com/yigit/noteverse/internal/pkg/helpers"
)

// multipartOverhead is the room left for form fields and boundaries on top
// of the file size limit.
const multipartOverhead = 1 << 20

// ResourceController serves the study resource library
type ResourceController struct {
	resourceService services.ResourceService
	maxUploadBytes  int64
	logger          zerolog.Logger
}

// NewResourceController creates a new ResourceController
func NewResourceController(resourceService services.ResourceService, maxUploadBytes int64, logger zerolog.Logger) *ResourceController {
	return &ResourceController{
		resourceService: resourceService,
		maxUploadBytes:  maxUploadBytes,
		logger:          logger,
	}
}

// formFile returns the named upload part, or nil when the form has none
func formFile(ctx *gin.Context, field string) (*multipart.FileHeader, error) {
	file, err := ctx.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	return file, err
}

// ListResources lists the library
// @Summary List study resources
// @Description Filters by type, course, branch, year, semester, subject and free text; sorts by upload date, upvotes, downloads or file name
// @Tags resources
// @Produce json
// @Param resourceType query []string false "Resource types" collectionFormat(multi)
// @Param course query []string false "Courses" collectionFormat(multi)
// @Param branch query []string false "Branches" collectionFormat(multi)
// @Param year query int false "Year"
// @Param semester query int false "Semester"
// @Param subject query string false "Subject"
// @Param q query string false "Search text"
// @Param uploadedBy query int false "Uploader id"
// @Param sortBy query string false "Sort field" Enums(uploadedAt, upvotes, downloads, fileName)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(12)
// @Success 200 {object} dto.APIResponse{data=dto.ResourceListResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /resources [get]
func (c *ResourceController) ListResources(ctx *gin.Context) {
	var req dto.ResourceFilterRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		bindingError(ctx, err)
		return
	}

	resp, err := c.resourceService.List(ctx.Request.Context(), &req, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// Facets returns the available filter values
// @Summary Library filter values
// @Tags resources
// @Produce json
// @Success 200 {object} dto.APIResponse{data=models.ResourceFacets}
// @Router /resources/facets [get]
func (c *ResourceController) Facets(ctx *gin.Context) {
	facets, err := c.resourceService.Facets(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, facets)
}

// GetResource returns one resource
// @Summary Get a study resource
// @Tags resources
// @Produce json
// @Param id path int true "Resource ID"
// @Success 200 {object} dto.APIResponse{data=models.Resource}
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /resources/{id} [get]
func (c *ResourceController) GetResource(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	res, err := c.resourceService.Get(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, res)
}

// ShareQR renders the share link of a resource as a QR code
// @Summary Share QR code
// @Tags resources
// @Produce png
// @Param id path int true "Resource ID"
// @Success 200 {file} binary "PNG image"
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /resources/{id}/qr [get]
func (c *ResourceController) ShareQR(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	png, err := c.resourceService.ShareQR(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Header("Cache-Control", "public, max-age=86400")
	ctx.Data(http.StatusOK, "image/png", png)
}

// Upload stores a new PDF
// @Summary Upload a study resource
// @Description Multipart form with a PDF in the "file" part. Branch and subject are required.
// @Tags resources
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "PDF file"
// @Param fileName formData string false "Display name"
// @Param course formData string false "Course" default(Btech)
// @Param branch formData string true "Branch"
// @Param subject formData string true "Subject"
// @Param year formData int false "Year"
// @Param semester formData int false "Semester"
// @Param resource_type formData string false "Resource type" Enums(notes, PYQ, DPP, syllabus, marking-scheme, prev-year-paper, other)
// @Success 201 {object} dto.APIResponse{data=dto.UploadResourceResponse}
// @Failure 400 {object} dto.ErrorResponse "Missing file or metadata"
// @Failure 403 {object} dto.ErrorResponse "Only PDFs are allowed"
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Failure 500 {object} dto.ErrorResponse "File upload failed"
// @Router /resources [post]
func (c *ResourceController) Upload(ctx *gin.Context) {
	if c.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes+multipartOverhead)
	}

	var req dto.UploadResourceRequest
	if err := ctx.ShouldBind(&req); err != nil {
		bindingError(ctx, err)
		return
	}
	file, err := formFile(ctx, "file")
	if err != nil {
		bindingError(ctx, err)
		return
	}

	resp, err := c.resourceService.Upload(ctx.Request.Context(), middleware.UserID(ctx), &req, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, resp)
}

// DeleteResource removes a resource
// @Summary Delete a study resource
// @Description The uploader, an operator or an admin may delete a resource
// @Tags resources
// @Produce json
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 403 {object} dto.ErrorResponse "Not the owner"
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /resources/{id} [delete]
func (c *ResourceController) DeleteResource(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	if err := c.resourceService.Delete(ctx.Request.Context(), id, middleware.Actor(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, dto.SuccessResponse{Message: "File deleted successfully"})
}

// Download records a download and returns the file link
// @Summary Download a study resource
// @Tags resources
// @Produce json
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Success 200 {object} dto.APIResponse{data=dto.DownloadResponse}
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /resources/{id}/download [post]
func (c *ResourceController) Download(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	resp, err := c.resourceService.Download(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// ListUploads lists the uploads of a user
// @Summary Uploads of a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(12)
// @Success 200 {object} dto.APIResponse{data=dto.ResourceListResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id}/uploads [get]
func (c *ResourceController) ListUploads(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	resp, err := c.resourceService.ListByUploader(ctx.Request.Context(), id, middleware.UserID(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}
