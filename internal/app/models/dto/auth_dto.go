package dto

import "github.com/yigit/noteverse/internal/app/models"

// SignupRequest represents a new account registration
type SignupRequest struct {
	Name     string `json:"name" binding:"required,max=100" example:"Aditi Sharma"`
	Email    string `json:"email" binding:"required,email,max=254" example:"aditi@example.com"`
	Password string `json:"password" binding:"required,min=6" example:"secret123"`
	Course   string `json:"course,omitempty" binding:"max=50" example:"Btech"`
	Branch   string `json:"branch,omitempty" binding:"max=100" example:"CSE"`
	Year     *int   `json:"year,omitempty" binding:"omitempty,min=1,max=6" example:"2"`
	Semester *int   `json:"semester,omitempty" binding:"omitempty,min=1,max=12" example:"3"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
}

// RefreshTokenRequest represents refresh token request. An empty body falls
// back to the refresh cookie.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest optionally carries the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ForgotPasswordRequest starts the password reset flow
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes the password reset flow
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Message string        `json:"message,omitempty" example:"Login successful"`
	Token   TokenResponse `json:"token"`
	User    *models.User  `json:"user"`
}
