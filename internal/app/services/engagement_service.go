package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	authz "github.com/yigit/noteverse/internal/app/auth"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/cache"
	"github.com/yigit/noteverse/internal/pkg/email"
	"github.com/yigit/noteverse/internal/pkg/helpers"
	"github.com/yigit/noteverse/internal/pkg/validation"
	"github.com/yigit/noteverse/internal/pkg/websocket"
)

// EngagementService handles votes, comments and reports on resources
type EngagementService interface {
	Vote(ctx context.Context, resourceID, userID int64, direction string) (*models.VoteState, error)
	AddComment(ctx context.Context, resourceID, userID int64, text string) (*models.Comment, error)
	ListComments(ctx context.Context, resourceID int64) (*dto.CommentListResponse, error)
	DeleteComment(ctx context.Context, commentID int64, actor authz.Actor) error
	Report(ctx context.Context, resourceID, userID int64, reason string) (bool, error)
	ListVoted(ctx context.Context, userID int64, direction string, page, size int) (*dto.ResourceListResponse, error)
	ListUserComments(ctx context.Context, userID int64, page, size int) (*dto.CommentListResponse, error)
}

type engagementServiceImpl struct {
	engagementRepo repositories.IEngagementRepository
	resourceRepo   repositories.IResourceRepository
	userRepo       repositories.IUserRepository
	notifier       websocket.Notifier
	mailer         email.EmailService
	cache          cache.Cache
	authz          *authz.AuthorizationService
	logger         zerolog.Logger
	now            func() time.Time
}

// NewEngagementService creates a new EngagementService
func NewEngagementService(
	engagementRepo repositories.IEngagementRepository,
	resourceRepo repositories.IResourceRepository,
	userRepo repositories.IUserRepository,
	notifier websocket.Notifier,
	mailer email.EmailService,
	c cache.Cache,
	authzService *authz.AuthorizationService,
	logger zerolog.Logger,
) EngagementService {
	return &engagementServiceImpl{
		engagementRepo: engagementRepo,
		resourceRepo:   resourceRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		mailer:         mailer,
		cache:          c,
		authz:          authzService,
		logger:         logger,
		now:            time.Now,
	}
}

// Vote toggles the caller's vote. Pressing the active direction withdraws
// it; pressing the other one switches.
func (s *engagementServiceImpl) Vote(ctx context.Context, resourceID, userID int64, direction string) (*models.VoteState, error) {
	requested, ok := models.ParseVoteDirection(direction)
	if !ok {
		return nil, apperrors.ErrInvalidVote
	}

	res, err := s.resourceRepo.GetByID(ctx, resourceID, userID)
	if err != nil {
		return nil, err
	}

	state, err := s.engagementRepo.ToggleVote(ctx, resourceID, userID, requested)
	if err != nil {
		return nil, err
	}

	if state.MyVote != models.VoteNone && res.UploadedBy != userID {
		kind, verb := websocket.NotificationUpvote, "upvoted"
		if state.MyVote == models.VoteDown {
			kind, verb = websocket.NotificationDownvote, "downvoted"
		}
		s.notify(ctx, res.UploadedBy, userID, kind, resourceID, func(actor string) string {
			return fmt.Sprintf("%s %s %q", actor, verb, res.FileName)
		})
	}
	invalidate(ctx, s.logger, s.cache, cache.KeyContributors)
	return state, nil
}

// AddComment posts a comment on a resource
func (s *engagementServiceImpl) AddComment(ctx context.Context, resourceID, userID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("text", "Comment cannot be empty")
	}
	if utf8.RuneCountInString(text) > validation.CommentMaxLength {
		return nil, apperrors.NewValidationError("text",
			fmt.Sprintf("Comment must be at most %d characters", validation.CommentMaxLength))
	}

	res, err := s.resourceRepo.GetByID(ctx, resourceID, userID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{ResourceID: resourceID, UserID: userID, Text: text}
	if err := s.engagementRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}

	if res.UploadedBy != userID {
		s.notifyAs(res.UploadedBy, userID, comment.UserName, websocket.NotificationComment, resourceID,
			fmt.Sprintf("%s commented on %q", comment.UserName, res.FileName))
	}
	return comment, nil
}

// ListComments returns the comments of an existing resource
func (s *engagementServiceImpl) ListComments(ctx context.Context, resourceID int64) (*dto.CommentListResponse, error) {
	if _, err := s.resourceRepo.GetByID(ctx, resourceID, 0); err != nil {
		return nil, err
	}
	comments, err := s.engagementRepo.ListComments(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return &dto.CommentListResponse{Comments: comments}, nil
}

// DeleteComment removes a comment written by the actor, or any comment for moderators
func (s *engagementServiceImpl) DeleteComment(ctx context.Context, commentID int64, actor authz.Actor) error {
	if _, err := s.authz.ValidateCommentOwnership(ctx, commentID, actor); err != nil {
		return err
	}
	return s.engagementRepo.DeleteComment(ctx, commentID)
}

// Report flags a resource for moderators. A repeated report by the same user
// changes nothing and returns false.
func (s *engagementServiceImpl) Report(ctx context.Context, resourceID, userID int64, reason string) (bool, error) {
	reason = strings.TrimSpace(reason)

	res, err := s.resourceRepo.GetByID(ctx, resourceID, userID)
	if err != nil {
		return false, err
	}
	reporter, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	created, err := s.engagementRepo.AddReport(ctx, &models.Report{ResourceID: resourceID, UserID: userID, Reason: reason})
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	s.logger.Info().Int64("resourceID", resourceID).Int64("userID", userID).Msg("Resource reported")
	bestEffort(s.logger, "email.report_notification", func() error {
		return s.mailer.SendReportNotification(ctx, email.ReportNotice{
			ReporterName:  reporter.Name,
			ReporterEmail: reporter.Email,
			ResourceID:    resourceID,
			FileName:      res.FileName,
			Reason:        reason,
		})
	})
	if res.UploadedBy != userID {
		s.notifyAs(res.UploadedBy, userID, "", websocket.NotificationReport, resourceID,
			fmt.Sprintf("%q was reported for review", res.FileName))
	}
	return true, nil
}

// ListVoted returns the resources the user currently upvotes or downvotes
func (s *engagementServiceImpl) ListVoted(ctx context.Context, userID int64, direction string, page, size int) (*dto.ResourceListResponse, error) {
	vote, ok := models.ParseVoteDirection(direction)
	if !ok {
		return nil, apperrors.ErrInvalidVote
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)

	resources, total, err := s.engagementRepo.ListVotedBy(ctx, userID, vote, offset, limit)
	if err != nil {
		return nil, err
	}
	return &dto.ResourceListResponse{
		Resources:  resources,
		Pagination: helpers.NewPaginationInfo(total, page, limit),
	}, nil
}

// ListUserComments returns the user's comment history
func (s *engagementServiceImpl) ListUserComments(ctx context.Context, userID int64, page, size int) (*dto.CommentListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)

	comments, total, err := s.engagementRepo.ListCommentsByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	pagination := helpers.NewPaginationInfo(total, page, limit)
	return &dto.CommentListResponse{Comments: comments, Pagination: &pagination}, nil
}

// notify looks up the actor's name and pushes a notification to recipient
func (s *engagementServiceImpl) notify(ctx context.Context, recipient, actorID int64, kind websocket.NotificationType, resourceID int64, message func(actor string) string) {
	name := "Someone"
	if actor, err := s.userRepo.GetByID(ctx, actorID); err == nil {
		name = actor.Name
	}
	s.notifyAs(recipient, actorID, name, kind, resourceID, message(name))
}

func (s *engagementServiceImpl) notifyAs(recipient, actorID int64, actorName string, kind websocket.NotificationType, resourceID int64, message string) {
	s.notifier.Notify(recipient, websocket.Notification{
		Type:       kind,
		ActorID:    actorID,
		ActorName:  actorName,
		ResourceID: resourceID,
		Message:    message,
		Timestamp:  s.now(),
	})
}
