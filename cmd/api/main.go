package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yigit/noteverse/internal/pkg/logger"
	"github.com/yigit/noteverse/internal/server"
)

// @title Noteverse API
// @version 1.0
// @description Study resource sharing for university students: uploads, votes, comments, follows and moderation
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@noteverse.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token as "Bearer <token>"; the jwt_token cookie is accepted too

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server stopped with errors")
		os.Exit(1)
	}
	logger.Info().Msg("Server stopped")
}
