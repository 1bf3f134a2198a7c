package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/services"
	"github.com/yigit/noteverse/internal/middleware"
)

// CookieConfig describes the HTTP-only session cookies. The access token
// cookie never outlives the token it carries; the refresh token rides in its
// own cookie scoped to RefreshPath.
type CookieConfig struct {
	Name         string
	RefreshName  string
	RefreshPath  string
	Domain       string
	Secure       bool
	SignupMaxAge time.Duration
	LoginMaxAge  time.Duration
}

// AuthController handles authentication related operations
type AuthController struct {
	authService services.AuthService
	cookie      CookieConfig
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService services.AuthService, cookie CookieConfig, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

func (c *AuthController) refreshPath() string {
	if c.cookie.RefreshPath == "" {
		return "/"
	}
	return c.cookie.RefreshPath
}

func (c *AuthController) setSessionCookies(ctx *gin.Context, token dto.TokenResponse, maxAge time.Duration) {
	age := int(maxAge.Seconds())
	if token.ExpiresIn > 0 && int64(age) > token.ExpiresIn {
		age = int(token.ExpiresIn)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.cookie.Name, token.AccessToken, age, "/", c.cookie.Domain, c.cookie.Secure, true)

	if c.cookie.RefreshName != "" && token.RefreshToken != "" {
		ctx.SetSameSite(http.SameSiteStrictMode)
		ctx.SetCookie(c.cookie.RefreshName, token.RefreshToken, int(token.RefreshTokenExpiresIn),
			c.refreshPath(), c.cookie.Domain, c.cookie.Secure, true)
	}
}

func (c *AuthController) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.cookie.Name, "", -1, "/", c.cookie.Domain, c.cookie.Secure, true)
	if c.cookie.RefreshName != "" {
		ctx.SetSameSite(http.SameSiteStrictMode)
		ctx.SetCookie(c.cookie.RefreshName, "", -1, c.refreshPath(), c.cookie.Domain, c.cookie.Secure, true)
	}
}

// refreshToken prefers the token in the request body and falls back to the
// refresh cookie
func (c *AuthController) refreshToken(ctx *gin.Context, fromBody string) string {
	if fromBody != "" || c.cookie.RefreshName == "" {
		return fromBody
	}
	token, _ := ctx.Cookie(c.cookie.RefreshName)
	return token
}

// Signup handles user registration
// @Summary Register a new user
// @Description Creates an account, opens a session and sets the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "User registration information"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "User registered successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 409 {object} dto.ErrorResponse "User already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/signup [post]
func (c *AuthController) Signup(ctx *gin.Context) {
	var req dto.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid signup request payload")
		bindingError(ctx, err)
		return
	}

	resp, err := c.authService.Signup(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.setSessionCookies(ctx, resp.Token, c.cookie.SignupMaxAge)
	created(ctx, resp)
}

// Login handles user login
// @Summary User login
// @Description Authenticates a user, returns a token pair and sets the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 429 {object} dto.ErrorResponse "Too many attempts"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindingError(ctx, err)
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.setSessionCookies(ctx, resp.Token, c.cookie.LoginMaxAge)
	ok(ctx, resp)
}

// RefreshToken exchanges a refresh token for a new pair
// @Summary Refresh access token
// @Description Revokes the presented refresh token and issues a new token pair. The token is read from the body or, when absent, from the refresh cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest false "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Token refreshed"
// @Failure 401 {object} dto.ErrorResponse "Invalid, expired or revoked refresh token"
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		bindingError(ctx, err)
		return
	}

	resp, err := c.authService.RefreshToken(ctx.Request.Context(), c.refreshToken(ctx, req.RefreshToken))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.setSessionCookies(ctx, resp.Token, c.cookie.LoginMaxAge)
	ok(ctx, resp)
}

// Logout ends the session
// @Summary Logout
// @Description Clears the session cookies and revokes the refresh token from the body or the refresh cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LogoutRequest false "Refresh token to revoke"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Logged out"
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	var req dto.LogoutRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		bindingError(ctx, err)
		return
	}

	if err := c.authService.Logout(ctx.Request.Context(), c.refreshToken(ctx, req.RefreshToken)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.clearSessionCookie(ctx)
	ok(ctx, dto.SuccessResponse{Message: "Logged out successfully"})
}

// ForgotPassword starts a password reset
// @Summary Request a password reset email
// @Description Always answers 200 so that registered addresses cannot be discovered
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Account email"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Router /auth/forgot-password [post]
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindingError(ctx, err)
		return
	}

	if err := c.authService.ForgotPassword(ctx.Request.Context(), req.Email); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, dto.SuccessResponse{Message: "If the address is registered, a reset link has been sent"})
}

// ResetPassword completes a password reset
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid, expired or used token"
// @Router /auth/reset-password [post]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindingError(ctx, err)
		return
	}

	if err := c.authService.ResetPassword(ctx.Request.Context(), req.Token, req.NewPassword); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.clearSessionCookie(ctx)
	ok(ctx, dto.SuccessResponse{Message: "Password has been reset"})
}

// Me returns the authenticated user
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.User}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	user, err := c.authService.Me(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, user)
}
