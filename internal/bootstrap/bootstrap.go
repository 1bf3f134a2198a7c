package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/noteverse/internal/app/auth"
	appControllers "github.com/yigit/noteverse/internal/app/controllers"
	appMigrations "github.com/yigit/noteverse/internal/app/migrations"
	appRepos "github.com/yigit/noteverse/internal/app/repositories"
	appRoutes "github.com/yigit/noteverse/internal/app/routes"
	appServices "github.com/yigit/noteverse/internal/app/services"
	"github.com/yigit/noteverse/internal/config"
	"github.com/yigit/noteverse/internal/db"
	appMiddleware "github.com/yigit/noteverse/internal/middleware"
	pkgAuth "github.com/yigit/noteverse/internal/pkg/auth"
	"github.com/yigit/noteverse/internal/pkg/cache"
	"github.com/yigit/noteverse/internal/pkg/email"
	"github.com/yigit/noteverse/internal/pkg/errorreport"
	"github.com/yigit/noteverse/internal/pkg/filestorage"
	"github.com/yigit/noteverse/internal/pkg/logger"
	"github.com/yigit/noteverse/internal/pkg/validation"
	"github.com/yigit/noteverse/internal/pkg/websocket"
	"github.com/yigit/noteverse/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	Audit       appRepos.IAuditStore
	Cache       cache.Cache
	FileStorage filestorage.FileStorage
	Mailer      email.EmailService
	Reporter    errorreport.Reporter
	JWTService  *pkgAuth.JWTService
	Hub         *websocket.Hub

	AuthService       appServices.AuthService
	ResourceService   appServices.ResourceService
	EngagementService appServices.EngagementService
	UserService       appServices.UserService
	AdminService      appServices.AdminService
	CourseService     appServices.CourseService

	AuthMiddleware *appMiddleware.AuthMiddleware
	AuthLimiter    *appMiddleware.RateLimiter
	Controllers    appRoutes.Controllers

	Logger zerolog.Logger

	// uploadsDir is set when files are served from local disk
	uploadsDir string
	closers    []func(context.Context) error
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join("configs", "config.yaml")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectDatabase opens the Postgres pool and checks it answers
func ConnectDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database.Pool, nil
}

// RunMigrations applies every pending migration in the configured directory
func RunMigrations(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); err != nil {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
	applied, err := appMigrations.NewMigrator(dbPool).MigrateFromDirectory(ctx, migrationsDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return nil
}

// SetupDatabase connects, migrates and seeds the relational store.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	dbPool, err := ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := RunMigrations(ctx, cfg, dbPool, lgr); err != nil {
		dbPool.Close()
		return nil, err
	}

	repos := appRepos.NewRepositories(dbPool)
	admin := seed.Admin{Name: cfg.Admin.Name, Email: cfg.Admin.Email, Password: cfg.Admin.Password}
	if err := seed.Run(ctx, repos.CourseRepository, repos.UserRepository, admin, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// setupAuditStore connects to Mongo when configured; otherwise audit records are discarded
func (d *Dependencies) setupAuditStore(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.Mongo.URI == "" {
		d.Logger.Warn().Msg("No Mongo URI configured, upload audit disabled")
		d.Audit = appRepos.NoopAuditStore{}
		return nil, nil
	}

	mongoDB, err := db.NewMongoDB(cfg)
	if err != nil {
		return nil, err
	}
	auditRepo := appRepos.NewAuditRepository(mongoDB.Database)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		_ = mongoDB.Close(context.Background())
		return nil, fmt.Errorf("failed to create audit indexes: %w", err)
	}

	d.Audit = auditRepo
	d.Logger.Info().Str("database", cfg.Mongo.Database).Msg("Upload audit store connected")
	d.closers = append(d.closers, mongoDB.Close)
	return func(ctx context.Context) error {
		return mongoDB.Client.Ping(ctx, nil)
	}, nil
}

// setupCache connects to Redis when configured. Without Redis an in-process
// cache keeps single-instance deployments fast.
func (d *Dependencies) setupCache(cfg *config.Config) (func(context.Context) error, error) {
	if cfg.Redis.Addr == "" {
		d.Logger.Info().Msg("No Redis address configured, using in-memory cache")
		d.Cache = cache.NewMemory()
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}

	d.Cache = redisCache
	d.Logger.Info().Str("addr", cfg.Redis.Addr).Msg("Redis cache connected")
	d.closers = append(d.closers, func(context.Context) error { return redisCache.Close() })
	return redisCache.Ping, nil
}

// NewFileStorage builds the configured storage driver
func NewFileStorage(cfg *config.Config) (filestorage.FileStorage, string, error) {
	switch cfg.Storage.Driver {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Endpoint:     cfg.Storage.S3.Endpoint,
			Region:       cfg.Storage.S3.Region,
			Bucket:       cfg.Storage.S3.Bucket,
			AccessKey:    cfg.Storage.S3.AccessKey,
			SecretKey:    cfg.Storage.S3.SecretKey,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
			PublicURL:    cfg.Storage.S3.PublicURL,
			PresignTTL:   config.Duration(cfg.Storage.S3.PresignTTL, 15*time.Minute),
		})
		return store, "", err
	default:
		store, err := filestorage.NewLocalStorage(cfg.Storage.LocalPath, cfg.Storage.LocalURL)
		if err != nil {
			return nil, "", err
		}
		return store, store.BasePath(), nil
	}
}

// NewMailer builds the email service over the configured transport
func NewMailer(cfg *config.Config, lgr zerolog.Logger) email.EmailService {
	var sender email.Sender
	switch cfg.Email.Driver {
	case "smtp":
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromName:  cfg.Email.FromName,
			FromEmail: cfg.Email.FromEmail,
			UseTLS:    cfg.Email.SMTPUseTLS,
		})
	case "sendgrid":
		sender = email.NewSendGridSender(cfg.Email.SendGridKey, cfg.Email.FromName, cfg.Email.FromEmail)
	default:
		sender = email.NewLogSender(lgr)
	}

	return email.NewEmailService(email.Config{
		AppName:    "Noteverse",
		AdminEmail: cfg.Admin.Email,
		BaseURL:    cfg.Server.FrontendURL,
	}, sender, lgr)
}

// NewJWTService builds the token service from configuration
func NewJWTService(cfg *config.Config) *pkgAuth.JWTService {
	return pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  config.Duration(cfg.JWT.AccessTokenExpiration, time.Hour),
		RefreshTokenExp: config.Duration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})
}

// BuildDependencies initializes infrastructure clients, services and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	if err := validation.RegisterCustomValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	deps.Repos = appRepos.NewRepositories(dbPool)

	checks := map[string]appControllers.Pinger{
		"postgres": appControllers.PingerFunc(dbPool.Ping),
	}

	mongoPing, err := deps.setupAuditStore(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize audit store")
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}
	if mongoPing != nil {
		checks["mongo"] = appControllers.PingerFunc(mongoPing)
	}

	redisPing, err := deps.setupCache(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize cache")
		_ = deps.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	if redisPing != nil {
		checks["redis"] = appControllers.PingerFunc(redisPing)
	}

	deps.FileStorage, deps.uploadsDir, err = NewFileStorage(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		_ = deps.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	lgr.Info().Str("driver", cfg.Storage.Driver).Msg("File storage initialized")

	deps.Mailer = NewMailer(cfg, lgr)
	deps.Reporter = errorreport.NewRollbarReporter(errorreport.Config{
		Token:       cfg.Rollbar.Token,
		Environment: cfg.Rollbar.Environment,
		ServerHost:  cfg.Server.PublicURL,
		CodeVersion: cfg.Rollbar.CodeVersion,
	})
	deps.JWTService = NewJWTService(cfg)
	deps.Hub = websocket.NewHub(lgr)

	repos := deps.Repos
	authz := appAuth.NewAuthorizationService(repos.ResourceRepository, repos.EngagementRepository)

	deps.AuthService = appServices.NewAuthService(
		repos.UserRepository,
		repos.TokenRepository,
		repos.PasswordResetTokenRepository,
		deps.JWTService,
		deps.Mailer,
		appServices.AuthConfig{AdminEmail: cfg.Admin.Email},
		lgr,
	)
	deps.ResourceService = appServices.NewResourceService(
		repos.ResourceRepository,
		repos.UserRepository,
		deps.Audit,
		deps.FileStorage,
		deps.Cache,
		deps.Mailer,
		authz,
		appServices.ResourceConfig{
			MaxUploadBytes: cfg.Upload.MaxBytes,
			ShareBaseURL:   cfg.Server.FrontendURL,
			FacetsTTL:      config.Duration(cfg.Redis.FacetsTTL, 5*time.Minute),
		},
		lgr,
	)
	deps.EngagementService = appServices.NewEngagementService(
		repos.EngagementRepository,
		repos.ResourceRepository,
		repos.UserRepository,
		deps.Hub,
		deps.Mailer,
		deps.Cache,
		authz,
		lgr,
	)
	deps.UserService = appServices.NewUserService(
		repos.UserRepository,
		repos.FollowRepository,
		repos.ResourceRepository,
		repos.TokenRepository,
		deps.Audit,
		deps.FileStorage,
		deps.Cache,
		deps.Hub,
		appServices.UserConfig{
			AvatarMaxBytes:  cfg.Upload.AvatarMaxBytes,
			ContributorsTTL: config.Duration(cfg.Redis.ContributorsTTL, 10*time.Minute),
		},
		lgr,
	)
	deps.AdminService = appServices.NewAdminService(
		repos.UserRepository,
		repos.ResourceRepository,
		repos.EngagementRepository,
		deps.Audit,
		deps.UserService,
		deps.ResourceService,
		deps.Mailer,
		lgr,
	)
	deps.CourseService = appServices.NewCourseService(repos.CourseRepository)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, cfg.Cookie.Name)
	if cfg.RateLimit.Enabled {
		deps.AuthLimiter = appMiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}

	authController := appControllers.NewAuthController(deps.AuthService, appControllers.CookieConfig{
		Name:         cfg.Cookie.Name,
		RefreshName:  cfg.Cookie.RefreshName,
		RefreshPath:  cfg.Cookie.RefreshPath,
		Domain:       cfg.Cookie.Domain,
		Secure:       cfg.IsProduction(),
		SignupMaxAge: config.Duration(cfg.Cookie.SignupMaxAge, time.Hour),
		LoginMaxAge:  config.Duration(cfg.Cookie.LoginMaxAge, 120*time.Hour),
	}, lgr)
	deps.Controllers = appRoutes.Controllers{
		Auth:       authController,
		Resource:   appControllers.NewResourceController(deps.ResourceService, cfg.Upload.MaxBytes, lgr),
		Engagement: appControllers.NewEngagementController(deps.EngagementService, lgr),
		User:       appControllers.NewUserController(deps.UserService, cfg.Upload.AvatarMaxBytes, authController, lgr),
		Admin:      appControllers.NewAdminController(deps.AdminService, lgr),
		Course:     appControllers.NewCourseController(deps.CourseService),
		Health:     appControllers.NewHealthController(checks, lgr),
	}

	return deps, nil
}

// Close releases the optional infrastructure clients
func (d *Dependencies) Close(ctx context.Context) error {
	var firstErr error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.closers = nil
	if d.Reporter != nil {
		d.Reporter.Flush()
	}
	return firstErr
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		appMiddleware.RequestLogger(lgr),
		appMiddleware.Recovery(deps.Reporter),
		appMiddleware.ErrorReporting(deps.Reporter),
		appMiddleware.CORS(cfg.CORS.AllowedOrigins, cfg.CORS.AllowCredentials),
	)
	// multipart parts beyond this are spooled to disk
	router.MaxMultipartMemory = 8 << 20

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, appRoutes.Options{
		AuthMiddleware: deps.AuthMiddleware,
		AuthLimiter:    deps.AuthLimiter,
		Notifications:  websocket.NewHandler(deps.Hub, cfg.CORS.AllowedOrigins, lgr),
		UploadsDir:     deps.uploadsDir,
	})

	return router
}
