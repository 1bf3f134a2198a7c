package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/services"
	"github.com/yigit/noteverse/internal/middleware"
	"github.com/yigit/noteverse/internal/pkg/helpers"
)

// EngagementController handles votes, comments and reports
type EngagementController struct {
	engagementService services.EngagementService
	logger            zerolog.Logger
}

// NewEngagementController creates a new EngagementController
func NewEngagementController(engagementService services.EngagementService, logger zerolog.Logger) *EngagementController {
	return &EngagementController{
		engagementService: engagementService,
		logger:            logger,
	}
}

// Vote casts, switches or withdraws the caller's vote
// @Summary Vote on a resource
// @Description Voting the active direction again withdraws the vote; voting the other direction switches it
// @Tags engagement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Param request body dto.VoteRequest true "Vote direction"
// @Success 200 {object} dto.APIResponse{data=models.VoteState}
// @Failure 400 {object} dto.ErrorResponse "Invalid direction"
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /resources/{id}/vote [post]
func (c *EngagementController) Vote(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.VoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindingError(ctx, err)
		return
	}

	state, err := c.engagementService.Vote(ctx.Request.Context(), id, middleware.UserID(ctx), req.Direction)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, state)
}

// ListComments returns the comments of a resource, oldest first
// @Summary List comments
// @Tags engagement
// @Produce json
// @Param id path int true "Resource ID"
// @Success 200 {object} dto.APIResponse{data=dto.CommentListResponse}
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /resources/{id}/comments [get]
func (c *EngagementController) ListComments(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	resp, err := c.engagementService.ListComments(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// AddComment posts a comment
// @Summary Comment on a resource
// @Tags engagement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Param request body dto.CommentRequest true "Comment"
// @Success 201 {object} dto.APIResponse{data=models.Comment}
// @Failure 400 {object} dto.ErrorResponse "Empty or too long"
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /resources/{id}/comments [post]
func (c *EngagementController) AddComment(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindingError(ctx, err)
		return
	}

	comment, err := c.engagementService.AddComment(ctx.Request.Context(), id, middleware.UserID(ctx), req.Text)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, comment)
}

// DeleteComment removes a comment
// @Summary Delete a comment
// @Description The author, an operator or an admin may delete a comment
// @Tags engagement
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 403 {object} dto.ErrorResponse "Not the author"
// @Failure 404 {object} dto.ErrorResponse "Comment not found"
// @Router /comments/{id} [delete]
func (c *EngagementController) DeleteComment(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	if err := c.engagementService.DeleteComment(ctx.Request.Context(), id, middleware.Actor(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, dto.SuccessResponse{Message: "Comment deleted"})
}

// Report flags a resource for moderators
// @Summary Report a resource
// @Description Reporting the same resource twice has no further effect
// @Tags engagement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Resource ID"
// @Param request body dto.ReportRequest false "Reason"
// @Success 200 {object} dto.APIResponse{data=dto.ReportResponse}
// @Failure 404 {object} dto.ErrorResponse "File not found"
// @Router /resources/{id}/report [post]
func (c *EngagementController) Report(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	var req dto.ReportRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		bindingError(ctx, err)
		return
	}

	reported, err := c.engagementService.Report(ctx.Request.Context(), id, middleware.UserID(ctx), req.Reason)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, dto.ReportResponse{Reported: reported})
}

// MyVotes lists the resources the caller voted on
// @Summary My votes
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param direction query string true "Vote direction" Enums(up, down)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(12)
// @Success 200 {object} dto.APIResponse{data=dto.ResourceListResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid direction"
// @Router /users/me/votes [get]
func (c *EngagementController) MyVotes(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	resp, err := c.engagementService.ListVoted(ctx.Request.Context(), middleware.UserID(ctx), ctx.DefaultQuery("direction", "up"), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// MyComments lists the caller's comments, newest first
// @Summary My comments
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(12)
// @Success 200 {object} dto.APIResponse{data=dto.CommentListResponse}
// @Router /users/me/comments [get]
func (c *EngagementController) MyComments(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	resp, err := c.engagementService.ListUserComments(ctx.Request.Context(), middleware.UserID(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}
