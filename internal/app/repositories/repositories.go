package repositories

import (
	"context"
	"time"

	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/db"
)

// IUserRepository defines the user-related database operations
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateRole(ctx context.Context, userID int64, role models.RoleType) error
	// Delete removes the user and, through cascades, everything they own. It
	// returns the storage keys of the deleted resources.
	Delete(ctx context.Context, id int64) ([]string, error)
	GetStats(ctx context.Context, userID int64) (*models.UserStats, error)
	Search(ctx context.Context, query string, offset uint64, limit int) ([]models.UserSummary, int64, error)
	Contributors(ctx context.Context, limit int) ([]models.Contributor, error)
	Count(ctx context.Context) (int64, error)
}

// ResourceFilter selects and orders library resources
type ResourceFilter struct {
	Types      []string
	Courses    []string
	Branches   []string
	Year       *int
	Semester   *int
	Subject    string
	Query      string
	UploadedBy *int64
	SortBy     string
	SortOrder  string
	Offset     uint64
	Limit      int // 0 means no limit
	ViewerID   int64
}

// IResourceRepository defines the study resource database operations
type IResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id, viewerID int64) (*models.Resource, error)
	List(ctx context.Context, filter ResourceFilter) ([]models.Resource, int64, error)
	Facets(ctx context.Context) (*models.ResourceFacets, error)
	Delete(ctx context.Context, id int64) error
	RecordDownload(ctx context.Context, resourceID, userID int64) (int64, error)
	ListDownloadedBy(ctx context.Context, userID int64, offset uint64, limit int) ([]models.Resource, int64, error)
	Totals(ctx context.Context) (resources int64, downloads int64, err error)
}

// IEngagementRepository defines votes, comments and reports
type IEngagementRepository interface {
	ToggleVote(ctx context.Context, resourceID, userID int64, requested models.Vote) (*models.VoteState, error)
	ListVotedBy(ctx context.Context, userID int64, vote models.Vote, offset uint64, limit int) ([]models.Resource, int64, error)
	AddComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, resourceID int64) ([]models.Comment, error)
	ListCommentsByUser(ctx context.Context, userID int64, offset uint64, limit int) ([]models.Comment, int64, error)
	DeleteComment(ctx context.Context, id int64) error
	AddReport(ctx context.Context, report *models.Report) (bool, error)
	ListReported(ctx context.Context, offset uint64, limit int) ([]models.ReportedResource, int64, error)
	CountComments(ctx context.Context) (int64, error)
}

// IFollowRepository defines the follower graph operations
type IFollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID int64) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error)
	ListFollowers(ctx context.Context, userID int64, offset uint64, limit int) ([]models.UserSummary, int64, error)
	ListFollowing(ctx context.Context, userID int64, offset uint64, limit int) ([]models.UserSummary, int64, error)
	CountFollowers(ctx context.Context, userID int64) (int64, error)
}

// ITokenRepository defines refresh token storage
type ITokenRepository interface {
	Store(ctx context.Context, userID int64, raw string, expiresAt time.Time) error
	Consume(ctx context.Context, raw string) (int64, error)
	Revoke(ctx context.Context, raw string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteStale(ctx context.Context) (int64, error)
}

// IPasswordResetTokenRepository defines password reset token storage
type IPasswordResetTokenRepository interface {
	Issue(ctx context.Context, userID int64, raw string, expiresAt time.Time) error
	Consume(ctx context.Context, raw string) (int64, error)
}

// ICourseRepository defines the course taxonomy storage
type ICourseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	Upsert(ctx context.Context, course *models.Course) error
}

// Repositories holds all the Postgres repository instances
type Repositories struct {
	UserRepository               *UserRepository
	ResourceRepository           *ResourceRepository
	EngagementRepository         *EngagementRepository
	FollowRepository             *FollowRepository
	TokenRepository              *TokenRepository
	PasswordResetTokenRepository *PasswordResetTokenRepository
	CourseRepository             *CourseRepository
}

// NewRepositories initializes all repositories
func NewRepositories(pool db.Querier) *Repositories {
	return &Repositories{
		UserRepository:               NewUserRepository(pool),
		ResourceRepository:           NewResourceRepository(pool),
		EngagementRepository:         NewEngagementRepository(pool),
		FollowRepository:             NewFollowRepository(pool),
		TokenRepository:              NewTokenRepository(pool),
		PasswordResetTokenRepository: NewPasswordResetTokenRepository(pool),
		CourseRepository:             NewCourseRepository(pool),
	}
}

var (
	_ IUserRepository               = (*UserRepository)(nil)
	_ IResourceRepository           = (*ResourceRepository)(nil)
	_ IEngagementRepository         = (*EngagementRepository)(nil)
	_ IFollowRepository             = (*FollowRepository)(nil)
	_ ITokenRepository              = (*TokenRepository)(nil)
	_ IPasswordResetTokenRepository = (*PasswordResetTokenRepository)(nil)
	_ ICourseRepository             = (*CourseRepository)(nil)
	_ IAuditStore                   = (*AuditRepository)(nil)
	_ IAuditStore                   = NoopAuditStore{}
)
