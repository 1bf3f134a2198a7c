package auth

import (
	"context"
	"errors"

	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID int64
	Role   models.RoleType
}

// IsModerator reports whether the actor may remove other users' content
func (a Actor) IsModerator() bool {
	return a.Role.CanModerate()
}

// Ownership errors
var (
	ErrNotOwner = errors.New("only the owner or a moderator can perform this action")
)

// resourceGetter and commentGetter are the lookups ownership checks need.
type resourceGetter interface {
	GetByID(ctx context.Context, id, viewerID int64) (*models.Resource, error)
}

type commentGetter interface {
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
}

// AuthorizationService decides whether an actor may modify a resource or comment
type AuthorizationService struct {
	resourceRepo resourceGetter
	commentRepo  commentGetter
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(resourceRepo resourceGetter, commentRepo commentGetter) *AuthorizationService {
	return &AuthorizationService{
		resourceRepo: resourceRepo,
		commentRepo:  commentRepo,
	}
}

var (
	_ resourceGetter = (*repositories.ResourceRepository)(nil)
	_ commentGetter  = (*repositories.EngagementRepository)(nil)
)

// ValidateResourceOwnership loads the resource and checks the actor is its
// uploader or a moderator.
func (s *AuthorizationService) ValidateResourceOwnership(ctx context.Context, resourceID int64, actor Actor) (*models.Resource, error) {
	res, err := s.resourceRepo.GetByID(ctx, resourceID, actor.UserID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrStudyResourceNotFound) {
			logger.Error().Err(err).Int64("resourceID", resourceID).Msg("Error loading resource for ownership check")
		}
		return nil, err
	}
	if res.UploadedBy != actor.UserID && !actor.IsModerator() {
		logger.Warn().Int64("resourceID", resourceID).Int64("userID", actor.UserID).Msg("Resource modification denied")
		return nil, apperrors.NewForbiddenError(ErrNotOwner.Error())
	}
	return res, nil
}

// ValidateCommentOwnership loads the comment and checks the actor is its
// author or a moderator.
func (s *AuthorizationService) ValidateCommentOwnership(ctx context.Context, commentID int64, actor Actor) (*models.Comment, error) {
	comment, err := s.commentRepo.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != actor.UserID && !actor.IsModerator() {
		return nil, apperrors.NewForbiddenError(ErrNotOwner.Error())
	}
	return comment, nil
}
