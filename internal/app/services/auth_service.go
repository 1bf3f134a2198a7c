package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/auth"
	"github.com/yigit/noteverse/internal/pkg/email"
	"github.com/yigit/noteverse/internal/pkg/validation"
)

// PasswordResetTTL is how long a password reset link stays valid.
const PasswordResetTTL = time.Hour

// AuthService handles registration, sessions and password recovery
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, emailAddr string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// AuthConfig holds the account policy knobs of AuthService
type AuthConfig struct {
	// AdminEmail signs up with the admin role
	AdminEmail string
}

type authServiceImpl struct {
	userRepo   repositories.IUserRepository
	tokenRepo  repositories.ITokenRepository
	resetRepo  repositories.IPasswordResetTokenRepository
	jwtService *auth.JWTService
	mailer     email.EmailService
	config     AuthConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.IUserRepository,
	tokenRepo repositories.ITokenRepository,
	resetRepo repositories.IPasswordResetTokenRepository,
	jwtService *auth.JWTService,
	mailer email.EmailService,
	config AuthConfig,
	logger zerolog.Logger,
) AuthService {
	return &authServiceImpl{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		resetRepo:  resetRepo,
		jwtService: jwtService,
		mailer:     mailer,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

func validateCredentials(emailAddr, password string) error {
	if !validation.IsValidEmail(emailAddr) {
		return apperrors.NewCustomError(apperrors.ErrInvalidEmail, "Please provide a valid email address")
	}
	if !validation.IsValidPassword(password) {
		return apperrors.NewCustomError(apperrors.ErrInvalidPassword,
			fmt.Sprintf("Password must be between %d and 72 characters", validation.PasswordMinLength))
	}
	return nil
}

// Signup registers a user and opens a session
func (s *authServiceImpl) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	emailAddr := validation.NormalizeEmail(req.Email)

	if !validation.IsValidName(name) {
		return nil, apperrors.NewValidationError("name", "Name is required")
	}
	if err := validateCredentials(emailAddr, req.Password); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.EmailExists(ctx, emailAddr)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	course := strings.TrimSpace(req.Course)
	if course == "" {
		course = models.DefaultCourse
	}
	picture := models.DefaultProfilePicture
	user := &models.User{
		Name:           name,
		Email:          emailAddr,
		Password:       hash,
		ProfilePicture: &picture,
		Course:         course,
		Branch:         strings.TrimSpace(req.Branch),
		Year:           req.Year,
		Semester:       req.Semester,
		College:        models.DefaultCollege,
		Role:           models.RoleUser,
	}
	if s.config.AdminEmail != "" && emailAddr == validation.NormalizeEmail(s.config.AdminEmail) {
		user.Role = models.RoleAdmin
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("user creation error: %w", err)
	}
	s.logger.Info().Int64("userID", user.ID).Str("role", string(user.Role)).Msg("User signed up")

	bestEffort(s.logger, "email.welcome", func() error {
		return s.mailer.SendWelcomeEmail(ctx, user.Email, user.Name)
	})

	return s.session(ctx, user, "User registered successfully")
}

// Login checks credentials and opens a session
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	emailAddr := validation.NormalizeEmail(req.Email)
	if req.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Warn().Int64("userID", user.ID).Msg("Failed login attempt")
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.session(ctx, user, "Login successful")
}

// RefreshToken rotates a refresh token: the old one is revoked and a new pair issued
func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	userID, err := s.tokenRepo.Consume(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return s.session(ctx, user, "Token refreshed")
}

// Logout revokes the given refresh token; an unknown token is not an error
func (s *authServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokenRepo.Revoke(ctx, refreshToken); err != nil && !errors.Is(err, apperrors.ErrTokenNotFound) {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently.
func (s *authServiceImpl) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.logger.Info().Msg("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	token := uuid.NewString()
	if err := s.resetRepo.Issue(ctx, user.ID, token, s.now().Add(PasswordResetTTL)); err != nil {
		return fmt.Errorf("error creating reset token: %w", err)
	}

	bestEffort(s.logger, "email.password_reset", func() error {
		return s.mailer.SendPasswordResetEmail(ctx, user.Email, user.Name, token)
	})
	return nil
}

// ResetPassword consumes a reset token, sets the new password and ends all sessions
func (s *authServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !validation.IsValidPassword(newPassword) {
		return apperrors.NewCustomError(apperrors.ErrInvalidPassword,
			fmt.Sprintf("Password must be between %d and 72 characters", validation.PasswordMinLength))
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	userID, err := s.resetRepo.Consume(ctx, token)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	bestEffort(s.logger, "tokens.revoke_all", func() error {
		return s.tokenRepo.RevokeAllForUser(ctx, userID)
	})
	s.logger.Info().Int64("userID", userID).Msg("Password reset completed")
	return nil
}

// Me returns the current user
func (s *authServiceImpl) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// session issues a token pair and stores the refresh token
func (s *authServiceImpl) session(ctx context.Context, user *models.User, message string) (*dto.AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}
	if err := s.tokenRepo.Store(ctx, user.ID, pair.RefreshToken, pair.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	return &dto.AuthResponse{
		Message: message,
		Token: dto.TokenResponse{
			AccessToken:           pair.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             pair.ExpiresIn,
			RefreshToken:          pair.RefreshToken,
			RefreshTokenExpiresIn: pair.RefreshExpiresIn,
		},
		User: user,
	}, nil
}
