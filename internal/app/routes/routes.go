package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/noteverse/internal/app/controllers"
	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/middleware"
	"github.com/yigit/noteverse/internal/pkg/websocket"
)

// Controllers bundles every HTTP handler the router mounts
type Controllers struct {
	Auth       *controllers.AuthController
	Resource   *controllers.ResourceController
	Engagement *controllers.EngagementController
	User       *controllers.UserController
	Admin      *controllers.AdminController
	Course     *controllers.CourseController
	Health     *controllers.HealthController
}

// Options carries the middleware and handlers shared across route groups
type Options struct {
	AuthMiddleware *middleware.AuthMiddleware
	AuthLimiter    *middleware.RateLimiter
	Notifications  *websocket.Handler
	// UploadsDir is served under /uploads when local storage is in use
	UploadsDir string
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, opts Options) {
	authMW := opts.AuthMiddleware

	router.GET("/ping", c.Health.Ping)
	router.GET("/health", c.Health.Health)

	if opts.UploadsDir != "" {
		router.Static("/uploads", opts.UploadsDir)
	}

	// API version group
	v1 := router.Group("/api/v1")

	// --- Auth routes ---
	auth := v1.Group("/auth")
	if opts.AuthLimiter != nil {
		auth.Use(opts.AuthLimiter.Middleware())
	}
	{
		auth.POST("/signup", c.Auth.Signup)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
		auth.POST("/logout", c.Auth.Logout)
		auth.POST("/forgot-password", c.Auth.ForgotPassword)
		auth.POST("/reset-password", c.Auth.ResetPassword)
		auth.GET("/me", authMW.JWTAuth(), c.Auth.Me)
	}

	v1.GET("/courses", c.Course.List)

	// --- Resources ---
	resources := v1.Group("/resources")
	{
		resources.GET("", authMW.OptionalAuth(), c.Resource.ListResources)
		resources.GET("/facets", c.Resource.Facets)
		resources.GET("/:id", authMW.OptionalAuth(), c.Resource.GetResource)
		resources.GET("/:id/qr", c.Resource.ShareQR)
		resources.GET("/:id/comments", c.Engagement.ListComments)

		protected := resources.Group("")
		protected.Use(authMW.JWTAuth())
		{
			protected.POST("", c.Resource.Upload)
			protected.DELETE("/:id", c.Resource.DeleteResource)
			protected.POST("/:id/download", c.Resource.Download)
			protected.POST("/:id/vote", c.Engagement.Vote)
			protected.POST("/:id/comments", c.Engagement.AddComment)
			protected.POST("/:id/report", c.Engagement.Report)
		}
	}

	v1.DELETE("/comments/:id", authMW.JWTAuth(), c.Engagement.DeleteComment)

	// --- Users ---
	users := v1.Group("/users")
	{
		users.GET("/contributors", c.User.Contributors)

		// /me routes are registered before /:id so the literal segment wins
		me := users.Group("/me")
		me.Use(authMW.JWTAuth())
		{
			me.PUT("", c.User.UpdateProfile)
			me.DELETE("", c.User.DeleteAccount)
			me.GET("/downloads", c.User.MyDownloads)
			me.GET("/votes", c.Engagement.MyVotes)
			me.GET("/comments", c.Engagement.MyComments)
		}

		users.GET("/:id", authMW.OptionalAuth(), c.User.GetProfile)
		users.GET("/:id/uploads", authMW.OptionalAuth(), c.Resource.ListUploads)
		users.GET("/:id/followers", c.User.Followers)
		users.GET("/:id/following", c.User.Following)
		users.POST("/:id/follow", authMW.JWTAuth(), c.User.Follow)
		users.DELETE("/:id/follow", authMW.JWTAuth(), c.User.Unfollow)
	}

	if opts.Notifications != nil {
		v1.GET("/notifications/ws", authMW.JWTAuth(), opts.Notifications.HandleConnection)
	}

	// --- Admin ---
	admin := v1.Group("/admin")
	admin.Use(authMW.JWTAuth(), authMW.RoleRequired(models.RoleAdmin, models.RoleOperator))
	{
		admin.GET("/users", c.Admin.Users)
		admin.GET("/resources", c.Admin.Resources)
		admin.GET("/reports", c.Admin.Reports)
		admin.GET("/uploads", c.Admin.Uploads)
		admin.GET("/export/users.csv", c.Admin.ExportUsers)
		admin.GET("/export/resources.csv", c.Admin.ExportResources)
		admin.GET("/export/report.pdf", c.Admin.ExportReport)
		admin.DELETE("/resources/:id", c.Admin.DeleteResource)

		adminOnly := admin.Group("")
		adminOnly.Use(authMW.RoleRequired(models.RoleAdmin))
		{
			adminOnly.DELETE("/users/:id", c.Admin.DeleteUser)
			adminOnly.POST("/users/:id/mail", c.Admin.SendMail)
			adminOnly.PUT("/users/:id/role", c.Admin.SetRole)
		}
	}
}
