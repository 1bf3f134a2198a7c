package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/auth"
	"github.com/yigit/noteverse/internal/pkg/cache"
	"github.com/yigit/noteverse/internal/pkg/filestorage"
	"github.com/yigit/noteverse/internal/pkg/helpers"
	"github.com/yigit/noteverse/internal/pkg/media"
	"github.com/yigit/noteverse/internal/pkg/validation"
	"github.com/yigit/noteverse/internal/pkg/websocket"
)

// MaxContributors is the size of the cached contributors leaderboard.
const MaxContributors = 50

// UserService defines profile, follow and account operations
type UserService interface {
	GetProfile(ctx context.Context, userID, viewerID int64) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest, avatar *multipart.FileHeader) (*models.User, error)
	Follow(ctx context.Context, targetID, callerID int64) (*dto.FollowResponse, error)
	Unfollow(ctx context.Context, targetID, callerID int64) (*dto.FollowResponse, error)
	ListFollowers(ctx context.Context, userID int64, page, size int) (*dto.UserListResponse, error)
	ListFollowing(ctx context.Context, userID int64, page, size int) (*dto.UserListResponse, error)
	ListDownloads(ctx context.Context, userID int64, page, size int) (*dto.ResourceListResponse, error)
	Contributors(ctx context.Context, limit int) ([]models.Contributor, error)
	DeleteAccount(ctx context.Context, userID int64) error
}

// UserConfig holds profile policy settings
type UserConfig struct {
	AvatarMaxBytes  int64
	ContributorsTTL time.Duration
}

type userServiceImpl struct {
	userRepo     repositories.IUserRepository
	followRepo   repositories.IFollowRepository
	resourceRepo repositories.IResourceRepository
	tokenRepo    repositories.ITokenRepository
	audit        repositories.IAuditStore
	storage      filestorage.FileStorage
	cache        cache.Cache
	notifier     websocket.Notifier
	config       UserConfig
	logger       zerolog.Logger
	now          func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo repositories.IUserRepository,
	followRepo repositories.IFollowRepository,
	resourceRepo repositories.IResourceRepository,
	tokenRepo repositories.ITokenRepository,
	audit repositories.IAuditStore,
	storage filestorage.FileStorage,
	c cache.Cache,
	notifier websocket.Notifier,
	config UserConfig,
	logger zerolog.Logger,
) UserService {
	return &userServiceImpl{
		userRepo:     userRepo,
		followRepo:   followRepo,
		resourceRepo: resourceRepo,
		tokenRepo:    tokenRepo,
		audit:        audit,
		storage:      storage,
		cache:        c,
		notifier:     notifier,
		config:       config,
		logger:       logger,
		now:          time.Now,
	}
}

// GetProfile returns the public profile of a user with activity counters
func (s *userServiceImpl) GetProfile(ctx context.Context, userID, viewerID int64) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.userRepo.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ProfileResponse{User: user, Stats: *stats}
	if viewerID > 0 && viewerID != userID {
		following, err := s.followRepo.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, err
		}
		resp.IsFollowing = following
	}
	return resp, nil
}

// UpdateProfile applies the submitted profile fields and avatar changes
func (s *userServiceImpl) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest, avatar *multipart.FileHeader) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !validation.IsValidName(name) {
			return nil, apperrors.NewValidationError("name", "Name cannot be empty")
		}
		user.Name = name
	}
	if req.Email != nil {
		emailAddr := validation.NormalizeEmail(*req.Email)
		if !validation.IsValidEmail(emailAddr) {
			return nil, apperrors.NewCustomError(apperrors.ErrInvalidEmail, "Please provide a valid email address")
		}
		if emailAddr != validation.NormalizeEmail(user.Email) {
			exists, err := s.userRepo.EmailExists(ctx, emailAddr)
			if err != nil {
				return nil, fmt.Errorf("error checking email: %w", err)
			}
			if exists {
				return nil, apperrors.ErrEmailAlreadyExists
			}
		}
		user.Email = emailAddr
	}
	if req.Branch != nil {
		user.Branch = strings.TrimSpace(*req.Branch)
	}
	if req.Year != nil {
		user.Year = req.Year
	}
	if req.Semester != nil {
		user.Semester = req.Semester
	}

	var newHash string
	if req.Password != nil && *req.Password != "" {
		if !validation.IsValidPassword(*req.Password) {
			return nil, apperrors.NewCustomError(apperrors.ErrInvalidPassword,
				fmt.Sprintf("Password must be between %d and 72 characters", validation.PasswordMinLength))
		}
		if newHash, err = auth.HashPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
	}

	var pic *models.ProfilePicture
	switch {
	case avatar != nil:
		if pic, err = s.storeAvatar(ctx, userID, avatar); err != nil {
			return nil, err
		}
		user.ProfilePicture = &pic.URL
	case req.ClearsAvatar():
		user.ProfilePicture = nil
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if pic != nil {
			bestEffort(s.logger, "storage.delete_unused_avatar", func() error {
				return s.storage.Delete(ctx, pic.StorageKey)
			})
		}
		return nil, err
	}

	// the audit record follows the user row, never leads it
	var staleKey string
	switch {
	case pic != nil:
		previous, err := s.audit.ReplaceProfilePicture(ctx, pic)
		if err != nil {
			s.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to record profile picture")
		} else if previous != nil && previous.StorageKey != pic.StorageKey {
			staleKey = previous.StorageKey
		}
	case req.ClearsAvatar():
		previous, err := s.audit.RemoveProfilePicture(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to remove profile picture record")
		} else if previous != nil {
			staleKey = previous.StorageKey
		}
	}

	if newHash != "" {
		if err := s.userRepo.UpdatePassword(ctx, userID, newHash); err != nil {
			return nil, fmt.Errorf("error updating password: %w", err)
		}
		bestEffort(s.logger, "tokens.revoke_all", func() error {
			return s.tokenRepo.RevokeAllForUser(ctx, userID)
		})
	}
	if staleKey != "" {
		bestEffort(s.logger, "storage.delete_old_avatar", func() error {
			return s.storage.Delete(ctx, staleKey)
		})
	}
	invalidate(ctx, s.logger, s.cache, cache.KeyContributors)

	s.logger.Info().Int64("userID", userID).Msg("Profile updated")
	return user, nil
}

func (s *userServiceImpl) storeAvatar(ctx context.Context, userID int64, avatar *multipart.FileHeader) (*models.ProfilePicture, error) {
	if s.config.AvatarMaxBytes > 0 && avatar.Size > s.config.AvatarMaxBytes {
		return nil, apperrors.NewCustomError(apperrors.ErrFileTooLarge,
			fmt.Sprintf("Profile picture exceeds %d MB limit", s.config.AvatarMaxBytes/(1024*1024)))
	}

	src, err := avatar.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open profile picture: %w", err)
	}
	defer src.Close()

	jpeg, err := media.ProcessAvatar(src)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedImage) {
			return nil, apperrors.NewCustomError(apperrors.ErrUnsupportedFileType, "Profile picture must be a JPEG or PNG image")
		}
		return nil, fmt.Errorf("failed to process profile picture: %w", err)
	}

	key := filestorage.ProfilePicturePrefix + "/" + strconv.FormatInt(userID, 10) + "-" + uuid.NewString() + ".jpg"
	stored, err := s.storage.Save(ctx, key, bytes.NewReader(jpeg), int64(len(jpeg)), media.ContentTypeJPEG)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Profile picture upload failed")
		return nil, apperrors.NewCustomError(apperrors.ErrStorageFailure, "Profile picture upload failed")
	}

	return &models.ProfilePicture{
		OriginalFileName: filepath.Base(avatar.Filename),
		StorageKey:       stored.Key,
		FileType:         models.AuditFileJPG,
		URL:              stored.URL,
		UploadedByUser:   userID,
		UploadedAt:       s.now(),
	}, nil
}

// Follow makes caller follow target
func (s *userServiceImpl) Follow(ctx context.Context, targetID, callerID int64) (*dto.FollowResponse, error) {
	if targetID == callerID {
		return nil, apperrors.ErrSelfFollow
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	created, err := s.followRepo.Follow(ctx, callerID, targetID)
	if err != nil {
		return nil, err
	}
	if created {
		name := "Someone"
		if caller, err := s.userRepo.GetByID(ctx, callerID); err == nil {
			name = caller.Name
		}
		s.notifier.Notify(targetID, websocket.Notification{
			Type:      websocket.NotificationFollow,
			ActorID:   callerID,
			ActorName: name,
			Message:   name + " started following you",
			Timestamp: s.now(),
		})
		invalidate(ctx, s.logger, s.cache, cache.KeyContributors)
	}
	return s.followState(ctx, targetID, true)
}

// Unfollow removes the follow edge if present
func (s *userServiceImpl) Unfollow(ctx context.Context, targetID, callerID int64) (*dto.FollowResponse, error) {
	if targetID == callerID {
		return nil, apperrors.ErrSelfFollow
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	removed, err := s.followRepo.Unfollow(ctx, callerID, targetID)
	if err != nil {
		return nil, err
	}
	if removed {
		invalidate(ctx, s.logger, s.cache, cache.KeyContributors)
	}
	return s.followState(ctx, targetID, false)
}

func (s *userServiceImpl) followState(ctx context.Context, targetID int64, following bool) (*dto.FollowResponse, error) {
	followers, err := s.followRepo.CountFollowers(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return &dto.FollowResponse{Following: following, Followers: followers}, nil
}

// ListFollowers pages through a user's followers
func (s *userServiceImpl) ListFollowers(ctx context.Context, userID int64, page, size int) (*dto.UserListResponse, error) {
	return s.listFollows(ctx, userID, page, size, s.followRepo.ListFollowers)
}

// ListFollowing pages through the users a user follows
func (s *userServiceImpl) ListFollowing(ctx context.Context, userID int64, page, size int) (*dto.UserListResponse, error) {
	return s.listFollows(ctx, userID, page, size, s.followRepo.ListFollowing)
}

type followLister func(ctx context.Context, userID int64, offset uint64, limit int) ([]models.UserSummary, int64, error)

func (s *userServiceImpl) listFollows(ctx context.Context, userID int64, page, size int, list followLister) (*dto.UserListResponse, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	users, total, err := list(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.UserSummary{}
	}
	return &dto.UserListResponse{Users: users, Pagination: helpers.NewPaginationInfo(total, page, limit)}, nil
}

// ListDownloads returns the resources a user has downloaded
func (s *userServiceImpl) ListDownloads(ctx context.Context, userID int64, page, size int) (*dto.ResourceListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	resources, total, err := s.resourceRepo.ListDownloadedBy(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	return &dto.ResourceListResponse{Resources: resources, Pagination: helpers.NewPaginationInfo(total, page, limit)}, nil
}

// Contributors returns the top uploaders. The full leaderboard is cached and
// sliced to limit.
func (s *userServiceImpl) Contributors(ctx context.Context, limit int) ([]models.Contributor, error) {
	if limit <= 0 || limit > MaxContributors {
		limit = MaxContributors
	}

	var board []models.Contributor
	found, err := s.cache.Get(ctx, cache.KeyContributors, &board)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Contributors cache read failed")
	}
	if !found {
		board, err = s.userRepo.Contributors(ctx, MaxContributors)
		if err != nil {
			return nil, err
		}
		bestEffort(s.logger, "cache.set_contributors", func() error {
			return s.cache.Set(ctx, cache.KeyContributors, board, s.config.ContributorsTTL)
		})
	}

	if len(board) > limit {
		board = board[:limit]
	}
	if board == nil {
		board = []models.Contributor{}
	}
	return board, nil
}

// DeleteAccount removes a user with everything they own, including stored files
func (s *userServiceImpl) DeleteAccount(ctx context.Context, userID int64) error {
	keys, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return err
	}

	avatar, err := s.audit.RemoveProfilePicture(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to remove profile picture record")
	} else if avatar != nil {
		keys = append(keys, avatar.StorageKey)
	}

	for _, key := range keys {
		key := key
		bestEffort(s.logger, "storage.delete_user_file", func() error {
			return s.storage.Delete(ctx, key)
		})
	}
	bestEffort(s.logger, "audit.delete_by_user", func() error {
		return s.audit.DeleteByUser(ctx, userID)
	})
	invalidate(ctx, s.logger, s.cache, cache.KeyContributors, cache.KeyResourceFacets)

	s.logger.Info().Int64("userID", userID).Int("files", len(keys)).Msg("Account deleted")
	return nil
}
