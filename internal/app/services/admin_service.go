package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	authz "github.com/yigit/noteverse/internal/app/auth"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/email"
	"github.com/yigit/noteverse/internal/pkg/export"
	"github.com/yigit/noteverse/internal/pkg/helpers"
)

// reportTopN is the row count of the PDF report tables.
const reportTopN = 10

// AdminService backs the moderation dashboard
type AdminService interface {
	SearchUsers(ctx context.Context, query string, page int) (*dto.UserListResponse, error)
	SearchResources(ctx context.Context, query string, page int) (*dto.ResourceListResponse, error)
	ListReported(ctx context.Context, page int) (*dto.ReportedListResponse, error)
	ListUploads(ctx context.Context, userID int64, limit int) ([]models.UploadRecord, error)
	ExportUsersCSV(ctx context.Context, w io.Writer) error
	ExportResourcesCSV(ctx context.Context, w io.Writer) error
	ExportReportPDF(ctx context.Context, w io.Writer) error
	DeleteUser(ctx context.Context, userID int64, actor authz.Actor) error
	DeleteResource(ctx context.Context, resourceID int64, actor authz.Actor) error
	SendMail(ctx context.Context, userID int64, req *dto.SendMailRequest) error
	SetRole(ctx context.Context, userID int64, role models.RoleType, actor authz.Actor) error
}

type adminServiceImpl struct {
	userRepo        repositories.IUserRepository
	resourceRepo    repositories.IResourceRepository
	engagementRepo  repositories.IEngagementRepository
	audit           repositories.IAuditStore
	userService     UserService
	resourceService ResourceService
	mailer          email.EmailService
	logger          zerolog.Logger
	now             func() time.Time
}

// NewAdminService creates a new AdminService
func NewAdminService(
	userRepo repositories.IUserRepository,
	resourceRepo repositories.IResourceRepository,
	engagementRepo repositories.IEngagementRepository,
	audit repositories.IAuditStore,
	userService UserService,
	resourceService ResourceService,
	mailer email.EmailService,
	logger zerolog.Logger,
) AdminService {
	return &adminServiceImpl{
		userRepo:        userRepo,
		resourceRepo:    resourceRepo,
		engagementRepo:  engagementRepo,
		audit:           audit,
		userService:     userService,
		resourceService: resourceService,
		mailer:          mailer,
		logger:          logger,
		now:             time.Now,
	}
}

// SearchUsers filters users by name or email, newest first
func (s *adminServiceImpl) SearchUsers(ctx context.Context, query string, page int) (*dto.UserListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, helpers.AdminPageSize)
	users, total, err := s.userRepo.Search(ctx, strings.TrimSpace(query), offset, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.UserSummary{}
	}
	return &dto.UserListResponse{Users: users, Pagination: helpers.NewPaginationInfo(total, page, limit)}, nil
}

// SearchResources filters resources by file name or subject, newest first
func (s *adminServiceImpl) SearchResources(ctx context.Context, query string, page int) (*dto.ResourceListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, helpers.AdminPageSize)
	resources, total, err := s.resourceRepo.List(ctx, repositories.ResourceFilter{
		Query:  strings.TrimSpace(query),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return &dto.ResourceListResponse{Resources: resources, Pagination: helpers.NewPaginationInfo(total, page, limit)}, nil
}

// ListReported returns reported resources, most reported first
func (s *adminServiceImpl) ListReported(ctx context.Context, page int) (*dto.ReportedListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, helpers.AdminPageSize)
	items, total, err := s.engagementRepo.ListReported(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &dto.ReportedListResponse{Items: items, Pagination: helpers.NewPaginationInfo(total, page, limit)}, nil
}

// ListUploads returns the raw upload audit trail
func (s *adminServiceImpl) ListUploads(ctx context.Context, userID int64, limit int) ([]models.UploadRecord, error) {
	return s.audit.ListUploads(ctx, userID, limit)
}

// ExportUsersCSV writes every user as CSV
func (s *adminServiceImpl) ExportUsersCSV(ctx context.Context, w io.Writer) error {
	users, _, err := s.userRepo.Search(ctx, "", 0, 0)
	if err != nil {
		return err
	}
	return export.WriteUsersCSV(w, users)
}

// ExportResourcesCSV writes every resource as CSV
func (s *adminServiceImpl) ExportResourcesCSV(ctx context.Context, w io.Writer) error {
	resources, _, err := s.resourceRepo.List(ctx, repositories.ResourceFilter{})
	if err != nil {
		return err
	}
	return export.WriteResourcesCSV(w, resources)
}

// ExportReportPDF writes the activity summary PDF
func (s *adminServiceImpl) ExportReportPDF(ctx context.Context, w io.Writer) error {
	data := export.ReportData{GeneratedAt: s.now()}

	var err error
	if data.TotalUsers, err = s.userRepo.Count(ctx); err != nil {
		return err
	}
	if data.TotalResources, data.TotalDownloads, err = s.resourceRepo.Totals(ctx); err != nil {
		return err
	}
	if data.TotalComments, err = s.engagementRepo.CountComments(ctx); err != nil {
		return err
	}
	if data.TopResources, _, err = s.resourceRepo.List(ctx, repositories.ResourceFilter{
		SortBy: repositories.SortUpvotes,
		Limit:  reportTopN,
	}); err != nil {
		return err
	}
	if data.MostReported, _, err = s.engagementRepo.ListReported(ctx, 0, reportTopN); err != nil {
		return err
	}

	if err := export.WriteReportPDF(w, data); err != nil {
		return fmt.Errorf("error rendering report: %w", err)
	}
	return nil
}

// DeleteUser removes a user account and all its content
func (s *adminServiceImpl) DeleteUser(ctx context.Context, userID int64, actor authz.Actor) error {
	if userID == actor.UserID {
		return apperrors.NewBadRequestError("Administrators cannot delete their own account from the dashboard")
	}
	if err := s.userService.DeleteAccount(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", userID).Int64("actorID", actor.UserID).Msg("User deleted by administrator")
	return nil
}

// DeleteResource removes any resource
func (s *adminServiceImpl) DeleteResource(ctx context.Context, resourceID int64, actor authz.Actor) error {
	return s.resourceService.Delete(ctx, resourceID, actor)
}

// SendMail emails a user on behalf of the administrators
func (s *adminServiceImpl) SendMail(ctx context.Context, userID int64, req *dto.SendMailRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendAdminMessage(ctx, user.Email, user.Name, req.Subject, req.Message); err != nil {
		s.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to send admin mail")
		return apperrors.NewCustomError(err, "Failed to send email")
	}
	return nil
}

// SetRole changes the role of a user
func (s *adminServiceImpl) SetRole(ctx context.Context, userID int64, role models.RoleType, actor authz.Actor) error {
	if !role.Valid() {
		return apperrors.NewValidationError("role", "Role must be one of: user, admin, operator")
	}
	if userID == actor.UserID && role != models.RoleAdmin {
		return apperrors.NewBadRequestError("Administrators cannot demote themselves")
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", userID).Str("role", string(role)).Int64("actorID", actor.UserID).Msg("Role changed")
	return nil
}
