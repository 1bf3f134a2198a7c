package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/noteverse/internal/bootstrap"
	"github.com/yigit/noteverse/internal/config"
)

const maintenanceInterval = time.Hour

// Server owns the HTTP listener and the background workers around it.
type Server struct {
	config *config.Config
	router *gin.Engine
	dbPool *pgxpool.Pool
	deps   *bootstrap.Dependencies
	logger zerolog.Logger
}

// NewServer loads configuration, prepares the database and wires every
// dependency. Nothing listens until Run.
func NewServer() (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	dbPool, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, dbPool, lgr)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	return &Server{
		config: cfg,
		router: bootstrap.SetupRouter(cfg, deps, lgr),
		dbPool: dbPool,
		deps:   deps,
		logger: lgr,
	}, nil
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       config.Duration(s.config.Server.ReadTimeout, 30*time.Second),
		WriteTimeout:      config.Duration(s.config.Server.WriteTimeout, 60*time.Second),
		IdleTimeout:       120 * time.Second,
	}
}

// Run serves until ctx is cancelled or the listener fails, then shuts
// everything down. The notification hub and maintenance loop share the
// lifetime of the listener.
func (s *Server) Run(ctx context.Context) error {
	srv := s.httpServer()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.deps.Hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		bootstrap.RunMaintenance(gctx, maintenanceInterval, s.deps.MaintenanceCleaners(), s.logger)
		return nil
	})
	g.Go(func() error {
		s.logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
			config.Duration(s.config.Server.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	runErr := g.Wait()
	return errors.Join(runErr, s.close())
}

// close releases dependencies once nothing serves requests any more
func (s *Server) close() error {
	ctx, cancel := context.WithTimeout(context.Background(),
		config.Duration(s.config.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()

	var err error
	if s.deps != nil {
		if cerr := s.deps.Close(ctx); cerr != nil {
			s.logger.Error().Err(cerr).Msg("Error closing dependencies")
			err = cerr
		}
	}
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info().Msg("Database connection pool closed.")
	}
	return err
}
