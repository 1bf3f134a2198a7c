package services

import (
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
	authz "github.com/yigit/noteverse/internal/app/auth"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/models/dto"
	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/pkg/apperrors"
	"github.com/yigit/noteverse/internal/pkg/cache"
	"github.com/yigit/noteverse/internal/pkg/email"
	"github.com/yigit/noteverse/internal/pkg/filestorage"
	"github.com/yigit/noteverse/internal/pkg/helpers"
	"github.com/yigit/noteverse/internal/pkg/media"
)

// ResourceService manages the study resource library
type ResourceService interface {
	Upload(ctx context.Context, userID int64, req *dto.UploadResourceRequest, file *multipart.FileHeader) (*dto.UploadResourceResponse, error)
	List(ctx context.Context, req *dto.ResourceFilterRequest, viewerID int64) (*dto.ResourceListResponse, error)
	Facets(ctx context.Context) (*models.ResourceFacets, error)
	Get(ctx context.Context, id, viewerID int64) (*models.Resource, error)
	Delete(ctx context.Context, id int64, actor authz.Actor) error
	Download(ctx context.Context, id, userID int64) (*dto.DownloadResponse, error)
	ShareQR(ctx context.Context, id int64) ([]byte, error)
	ListByUploader(ctx context.Context, uploaderID, viewerID int64, page, size int) (*dto.ResourceListResponse, error)
}

// ResourceConfig holds the upload policy and link settings
type ResourceConfig struct {
	MaxUploadBytes int64
	// ShareBaseURL is the public front-end origin used in share links
	ShareBaseURL string
	FacetsTTL    time.Duration
}

type resourceServiceImpl struct {
	resourceRepo repositories.IResourceRepository
	userRepo     repositories.IUserRepository
	audit        repositories.IAuditStore
	storage      filestorage.FileStorage
	cache        cache.Cache
	mailer       email.EmailService
	authz        *authz.AuthorizationService
	config       ResourceConfig
	logger       zerolog.Logger
}

// NewResourceService creates a new ResourceService
func NewResourceService(
	resourceRepo repositories.IResourceRepository,
	userRepo repositories.IUserRepository,
	audit repositories.IAuditStore,
	storage filestorage.FileStorage,
	c cache.Cache,
	mailer email.EmailService,
	authzService *authz.AuthorizationService,
	config ResourceConfig,
	logger zerolog.Logger,
) ResourceService {
	return &resourceServiceImpl{
		resourceRepo: resourceRepo,
		userRepo:     userRepo,
		audit:        audit,
		storage:      storage,
		cache:        c,
		mailer:       mailer,
		authz:        authzService,
		config:       config,
		logger:       logger,
	}
}

// Upload validates and stores a PDF, then records it in the library
func (s *resourceServiceImpl) Upload(ctx context.Context, userID int64, req *dto.UploadResourceRequest, file *multipart.FileHeader) (*dto.UploadResourceResponse, error) {
	if file == nil {
		return nil, apperrors.ErrMissingFile
	}
	branch := strings.TrimSpace(req.Branch)
	subject := strings.TrimSpace(req.Subject)
	if branch == "" || subject == "" {
		return nil, apperrors.ErrMissingMetadata
	}
	if s.config.MaxUploadBytes > 0 && file.Size > s.config.MaxUploadBytes {
		return nil, apperrors.NewCustomError(apperrors.ErrFileTooLarge,
			fmt.Sprintf("File size exceeds %d MB limit", s.config.MaxUploadBytes/(1024*1024)))
	}
	if declared := file.Header.Get("Content-Type"); !media.IsPDF(declared) {
		return nil, apperrors.NewCustomError(apperrors.ErrUnsupportedFileType, "Invalid file type. Only PDFs are allowed.")
	}

	uploader, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	sniffed, body, err := media.SniffContentType(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if !media.IsPDF(sniffed) {
		s.logger.Warn().Str("sniffed", sniffed).Int64("userID", userID).Msg("Rejected upload with non-PDF content")
		return nil, apperrors.NewCustomError(apperrors.ErrUnsupportedFileType, "Invalid file type. Only PDFs are allowed.")
	}

	key := filestorage.ResourcePrefix + "/" + uuid.NewString() + ".pdf"
	stored, err := s.storage.Save(ctx, key, body, file.Size, media.ContentTypePDF)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Storage upload failed")
		return nil, apperrors.NewCustomError(apperrors.ErrStorageFailure, "File upload failed")
	}

	original := filepath.Base(file.Filename)
	displayName := strings.TrimSpace(req.FileName)
	if displayName == "" {
		displayName = original
	}
	course := strings.TrimSpace(req.Course)
	if course == "" {
		course = models.DefaultCourse
	}
	resourceType := req.ResourceType
	if resourceType == "" {
		resourceType = models.ResourceTypeOther
	}

	res := &models.Resource{
		FileName:         displayName,
		OriginalFilename: original,
		StorageKey:       stored.Key,
		URL:              stored.URL,
		Course:           course,
		Branch:           branch,
		Subject:          subject,
		Year:             req.Year,
		Semester:         req.Semester,
		ResourceType:     resourceType,
		SizeBytes:        stored.Size,
		UploadedBy:       userID,
	}
	if err := s.resourceRepo.Create(ctx, res); err != nil {
		bestEffort(s.logger, "storage.rollback", func() error {
			return s.storage.Delete(context.WithoutCancel(ctx), stored.Key)
		})
		return nil, err
	}
	s.logger.Info().Int64("resourceID", res.ID).Int64("userID", userID).Str("key", stored.Key).Msg("Resource uploaded")

	bestEffort(s.logger, "audit.record_upload", func() error {
		return s.audit.RecordUpload(ctx, &models.UploadRecord{
			OriginalFileName: original,
			StorageKey:       stored.Key,
			FileType:         models.AuditFilePDF,
			URL:              stored.URL,
			ResourceID:       res.ID,
			UploadedByUser:   userID,
			UploadedAt:       res.UploadedAt,
		})
	})
	bestEffort(s.logger, "email.upload_notification", func() error {
		return s.mailer.SendUploadNotification(ctx, email.UploadNotice{
			UploaderName:  uploader.Name,
			UploaderEmail: uploader.Email,
			FileName:      res.FileName,
			Subject:       res.Subject,
			Branch:        res.Branch,
			ResourceType:  string(res.ResourceType),
			URL:           res.URL,
		})
	})
	invalidate(ctx, s.logger, s.cache, cache.KeyContributors, cache.KeyResourceFacets)

	return &dto.UploadResourceResponse{
		Message:  "File uploaded successfully",
		URL:      res.URL,
		PublicID: strings.TrimSuffix(res.StorageKey, ".pdf"),
		Resource: res,
	}, nil
}

// List returns a page of the library
func (s *resourceServiceImpl) List(ctx context.Context, req *dto.ResourceFilterRequest, viewerID int64) (*dto.ResourceListResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(req.Page, req.Size)
	filter := repositories.ResourceFilter{
		Types:      req.ResourceTypes,
		Courses:    req.Courses,
		Branches:   req.Branches,
		Year:       req.Year,
		Semester:   req.Semester,
		Subject:    req.Subject,
		Query:      req.Query,
		UploadedBy: req.UploadedBy,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
		Offset:     offset,
		Limit:      limit,
		ViewerID:   viewerID,
	}

	resources, total, err := s.resourceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing resources: %w", err)
	}
	return &dto.ResourceListResponse{
		Resources:  resources,
		Pagination: helpers.NewPaginationInfo(total, req.Page, limit),
	}, nil
}

// Facets returns the distinct filter values, served from cache when possible
func (s *resourceServiceImpl) Facets(ctx context.Context) (*models.ResourceFacets, error) {
	var cached models.ResourceFacets
	if found, err := s.cache.Get(ctx, cache.KeyResourceFacets, &cached); err != nil {
		s.logger.Warn().Err(err).Msg("Facets cache read failed")
	} else if found {
		return &cached, nil
	}

	facets, err := s.resourceRepo.Facets(ctx)
	if err != nil {
		return nil, err
	}
	bestEffort(s.logger, "cache.set_facets", func() error {
		return s.cache.Set(ctx, cache.KeyResourceFacets, facets, s.config.FacetsTTL)
	})
	return facets, nil
}

// Get returns a single resource
func (s *resourceServiceImpl) Get(ctx context.Context, id, viewerID int64) (*models.Resource, error) {
	return s.resourceRepo.GetByID(ctx, id, viewerID)
}

// Delete removes a resource owned by the actor, or any resource for moderators
func (s *resourceServiceImpl) Delete(ctx context.Context, id int64, actor authz.Actor) error {
	res, err := s.authz.ValidateResourceOwnership(ctx, id, actor)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, res.StorageKey); err != nil {
		s.logger.Warn().Err(err).Str("key", res.StorageKey).Msg("Failed to delete stored object, removing row anyway")
	}
	if err := s.resourceRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("resourceID", id).Int64("actorID", actor.UserID).Msg("Resource deleted")
	invalidate(ctx, s.logger, s.cache, cache.KeyContributors, cache.KeyResourceFacets)
	return nil
}

// Download counts a download and returns the link to the file
func (s *resourceServiceImpl) Download(ctx context.Context, id, userID int64) (*dto.DownloadResponse, error) {
	res, err := s.resourceRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	downloads, err := s.resourceRepo.RecordDownload(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.URL(ctx, res.StorageKey)
	if err != nil {
		s.logger.Error().Err(err).Str("key", res.StorageKey).Msg("Failed to build download URL")
		return nil, apperrors.NewCustomError(apperrors.ErrStorageFailure, "Could not generate download link")
	}
	return &dto.DownloadResponse{URL: url, Downloads: downloads}, nil
}

// ShareQR renders a QR code pointing at the resource's public page
func (s *resourceServiceImpl) ShareQR(ctx context.Context, id int64) ([]byte, error) {
	if _, err := s.resourceRepo.GetByID(ctx, id, 0); err != nil {
		return nil, err
	}
	link := strings.TrimRight(s.config.ShareBaseURL, "/") + "/resources/" + strconv.FormatInt(id, 10)
	return media.ShareQR(link, media.DefaultQRSize)
}

// ListByUploader returns the uploads of one user, newest first
func (s *resourceServiceImpl) ListByUploader(ctx context.Context, uploaderID, viewerID int64, page, size int) (*dto.ResourceListResponse, error) {
	if _, err := s.userRepo.GetByID(ctx, uploaderID); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error loading uploader: %w", err)
	}
	return s.List(ctx, &dto.ResourceFilterRequest{UploadedBy: &uploaderID, Page: page, Size: size}, viewerID)
}
