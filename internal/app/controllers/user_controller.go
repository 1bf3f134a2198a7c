package controllers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/services"
	"github.com/yigit/noteverse/internal/middleware"
	"github.com/yigit/noteverse/internal/pkg/helpers"
)

// UserController handles profiles, follows and account management
type UserController struct {
	userService    services.UserService
	avatarMaxBytes int64
	auth           *AuthController
	logger         zerolog.Logger
}

// NewUserController creates a new user controller. The auth controller is
// used to clear the session cookie when an account is deleted.
func NewUserController(userService services.UserService, avatarMaxBytes int64, auth *AuthController, logger zerolog.Logger) *UserController {
	return &UserController{
		userService:    userService,
		avatarMaxBytes: avatarMaxBytes,
		auth:           auth,
		logger:         logger,
	}
}

// GetProfile returns a user's public profile
// @Summary Get user profile
// @Description Profile with activity counters; isFollowing is set for signed-in viewers
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id} [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	profile, err := c.userService.GetProfile(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, profile)
}

// UpdateProfile updates the caller's profile
// @Summary Update my profile
// @Description Multipart form. An image in "profilePic" replaces the avatar; profilePicture=null removes it.
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string false "Name"
// @Param email formData string false "Email"
// @Param branch formData string false "Branch"
// @Param year formData int false "Year"
// @Param semester formData int false "Semester"
// @Param password formData string false "New password"
// @Param profilePicture formData string false "Send null to remove the avatar"
// @Param profilePic formData file false "Avatar image"
// @Success 200 {object} dto.APIResponse{data=models.User}
// @Failure 400 {object} dto.ErrorResponse "Invalid fields"
// @Failure 409 {object} dto.ErrorResponse "Email already in use"
// @Router /users/me [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	if c.avatarMaxBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.avatarMaxBytes+multipartOverhead)
	}

	var req dto.UpdateProfileRequest
	if err := ctx.ShouldBind(&req); err != nil {
		bindingError(ctx, err)
		return
	}
	var avatar *multipart.FileHeader
	if ctx.ContentType() == gin.MIMEMultipartPOSTForm {
		file, err := formFile(ctx, "profilePic")
		if err != nil {
			bindingError(ctx, err)
			return
		}
		avatar = file
	}

	user, err := c.userService.UpdateProfile(ctx.Request.Context(), middleware.UserID(ctx), &req, avatar)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, user)
}

// DeleteAccount deletes the caller's account
// @Summary Delete my account
// @Description Removes the account with its uploads, votes, comments and follows
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /users/me [delete]
func (c *UserController) DeleteAccount(ctx *gin.Context) {
	if err := c.userService.DeleteAccount(ctx.Request.Context(), middleware.UserID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.auth.clearSessionCookie(ctx)
	ok(ctx, dto.SuccessResponse{Message: "Account deleted"})
}

// MyDownloads lists the resources the caller downloaded
// @Summary My downloads
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(12)
// @Success 200 {object} dto.APIResponse{data=dto.ResourceListResponse}
// @Router /users/me/downloads [get]
func (c *UserController) MyDownloads(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	resp, err := c.userService.ListDownloads(ctx.Request.Context(), middleware.UserID(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// Contributors returns the top uploaders
// @Summary Top contributors
// @Tags users
// @Produce json
// @Param limit query int false "Number of contributors" default(10)
// @Success 200 {object} dto.APIResponse{data=[]models.Contributor}
// @Router /users/contributors [get]
func (c *UserController) Contributors(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if err != nil {
		limit = 10
	}

	board, err := c.userService.Contributors(ctx.Request.Context(), limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, board)
}

// Follow makes the caller follow a user
// @Summary Follow a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.FollowResponse}
// @Failure 400 {object} dto.ErrorResponse "Cannot follow yourself"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id}/follow [post]
func (c *UserController) Follow(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	resp, err := c.userService.Follow(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// Unfollow removes the follow
// @Summary Unfollow a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.FollowResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/{id}/follow [delete]
func (c *UserController) Unfollow(ctx *gin.Context) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}

	resp, err := c.userService.Unfollow(ctx.Request.Context(), id, middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}

// Followers lists a user's followers
// @Summary Followers
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(12)
// @Success 200 {object} dto.APIResponse{data=dto.UserListResponse}
// @Router /users/{id}/followers [get]
func (c *UserController) Followers(ctx *gin.Context) {
	c.listFollows(ctx, c.userService.ListFollowers)
}

// Following lists the users a user follows
// @Summary Following
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(12)
// @Success 200 {object} dto.APIResponse{data=dto.UserListResponse}
// @Router /users/{id}/following [get]
func (c *UserController) Following(ctx *gin.Context) {
	c.listFollows(ctx, c.userService.ListFollowing)
}

func (c *UserController) listFollows(ctx *gin.Context, list func(ctx context.Context, userID int64, page, size int) (*dto.UserListResponse, error)) {
	id, valid := pathID(ctx, "id")
	if !valid {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	resp, err := list(ctx.Request.Context(), id, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp)
}
